package module

import (
	"time"

	"jagapadi/internal/platform/config"
)

// Options holds configuration for the shell api
type Options struct {
	UploadLimit int64
	ViewPath    string
	ViewOrigins []string
	WriteWait   time.Duration
	PongWait    time.Duration
}

// FromConfig reads CORE_API_*
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_API_")
	return Options{
		UploadLimit: int64(c.MaySize("UPLOAD_LIMIT", 32<<20)),
		ViewPath:    c.MayString("VIEW_PATH", "/view"),
		ViewOrigins: c.MayCSV("VIEW_ORIGINS", nil),
		WriteWait:   c.MayDuration("VIEW_WRITE_WAIT", 10*time.Second),
		PongWait:    c.MayDuration("VIEW_PONG_WAIT", 60*time.Second),
	}
}
