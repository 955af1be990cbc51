// Package module wires the notify service from config
package module

import (
	"time"

	"jagapadi/internal/platform/config"
	"jagapadi/internal/services/notify/service"
)

// FromConfig reads CORE_NOTIFY_*
func FromConfig(cfg config.Conf) service.Config {
	c := cfg.Prefix("CORE_NOTIFY_")
	return service.Config{
		TTL:     c.MayDuration("TTL", 3*time.Second),
		Janitor: c.MayDuration("JANITOR", 500*time.Millisecond),
	}
}
