package module

import (
	"time"

	"jagapadi/internal/platform/config"
)

// Options holds configuration for the bridge module
type Options struct {
	Path      string
	Token     string
	ReadLimit int64
	WriteWait time.Duration
	PongWait  time.Duration
}

// FromConfig reads CORE_BRIDGE_*
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_BRIDGE_")
	return Options{
		Path:      c.MayString("PATH", "/bridge"),
		Token:     c.MayString("TOKEN", ""),
		ReadLimit: int64(c.MaySize("READ_LIMIT", 32<<20)),
		WriteWait: c.MayDuration("WRITE_WAIT", 10*time.Second),
		PongWait:  c.MayDuration("PONG_WAIT", 60*time.Second),
	}
}
