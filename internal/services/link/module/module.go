// Package module wires the backend link from config
package module

import (
	"time"

	"jagapadi/internal/platform/config"
	"jagapadi/internal/platform/logger"
	bridge "jagapadi/internal/services/bridge/domain"
	"jagapadi/internal/services/link/service"
)

// FromConfig reads CORE_LINK_*
func FromConfig(cfg config.Conf) service.Config {
	c := cfg.Prefix("CORE_LINK_")
	return service.Config{
		EstablishEvery: c.MayDuration("ESTABLISH_EVERY", 2*time.Second),
		Burst:          c.MayInt("ESTABLISH_BURST", 3),
		SeverTimeout:   c.MayDuration("SEVER_TIMEOUT", 5*time.Second),
	}
}

// New builds the link over the bridge caller
func New(cfg config.Conf, caller bridge.Caller) *service.Service {
	return service.New(FromConfig(cfg), caller, *logger.Named("link"))
}
