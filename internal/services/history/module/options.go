package module

import (
	"time"

	"jagapadi/internal/platform/config"
	"jagapadi/internal/platform/logger"
	dom "jagapadi/internal/services/history/domain"
)

// Options holds configuration for the history module
type Options struct {
	Cap      int
	Location *time.Location
	Seed     bool
}

// FromConfig reads CORE_HISTORY_*
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_HISTORY_")
	return Options{
		Cap:      c.MayInt("CAP", dom.DefaultCap),
		Location: location(c.MayString("TZ", "")),
		Seed:     c.MayBool("SEED_DEMO", true),
	}
}

// location resolves an IANA zone, falling back to the machine's
func location(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Get().Warn().Err(err).Str("tz", name).Msg("unknown CORE_HISTORY_TZ, using local time")
		return time.Local
	}
	return loc
}
