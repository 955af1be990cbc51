// Package module wires media intake and the host camera from config
package module

import (
	"time"

	"jagapadi/internal/platform/config"
	"jagapadi/internal/platform/logger"
	bridge "jagapadi/internal/services/bridge/domain"
	dom "jagapadi/internal/services/media/domain"
	"jagapadi/internal/services/media/service"
)

// Options holds configuration for the media module
type Options struct {
	Limits         dom.Limits
	FallbackDelay  time.Duration
	AcquireTimeout time.Duration
	ReleaseTimeout time.Duration
}

// FromConfig reads CORE_MEDIA_*
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_MEDIA_")
	return Options{
		Limits: dom.Limits{
			MaxBytes: int64(c.MaySize("MAX_BYTES", uint64(dom.DefaultLimits.MaxBytes))),
			MinBytes: int64(c.MaySize("MIN_BYTES", uint64(dom.DefaultLimits.MinBytes))),
		},
		FallbackDelay:  c.MayDuration("FALLBACK_DELAY", 2*time.Second),
		AcquireTimeout: c.MayDuration("ACQUIRE_TIMEOUT", 30*time.Second),
		ReleaseTimeout: c.MayDuration("RELEASE_TIMEOUT", 5*time.Second),
	}
}

// New builds the media service with the camera borrowed from the host
func New(o Options, caller bridge.Caller, now func() time.Time) *service.Service {
	dev := service.BridgeDevice{Caller: caller, AcquireTimeout: o.AcquireTimeout, ReleaseTimeout: o.ReleaseTimeout}
	return service.New(o.Limits, dev, *logger.Named("media"), now)
}
