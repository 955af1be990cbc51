// Package config handles shell configuration via environment variables
// An optional .env file is merged in before the first read
package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"jagapadi/internal/platform/logger"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

// Conf is a namespaced view over environment variables (e.g., "CORE_HISTORY_", "HOSTSIM_")
// Use New() for global access, or Prefix("CORE_X_") for module scopes
type Conf struct{ prefix string }

var dotenv sync.Once

// New creates a root Conf (no prefix) after loading .env files once
func New() Conf {
	LoadDotEnv()
	return Conf{}
}

// LoadDotEnv merges the files named by JAGAPADI_ENV_FILE (comma separated, default ".env")
// into the process environment; variables already set win over file values
func LoadDotEnv() {
	dotenv.Do(func() {
		files := splitCSV(os.Getenv("JAGAPADI_ENV_FILE"))
		if len(files) == 0 {
			files = []string{".env"}
		}
		for _, f := range files {
			if _, err := os.Stat(f); err != nil {
				continue
			}
			if err := godotenv.Load(f); err != nil {
				logger.Get().Warn().Err(err).Str("file", f).Msg("dotenv load failed")
			}
		}
	})
}

// Prefix creates a child Conf with an additional prefix, e.g. cfg.Prefix("CORE_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// key composes the fully-qualified env var name
func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) lookup(k string) string { return strings.TrimSpace(os.Getenv(c.key(k))) }

// MustString panics if the given key is missing or empty
func (c Conf) MustString(key string) string {
	v := c.lookup(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	return v
}

// MustInt panics if the given key is missing, empty, or not an int
func (c Conf) MustInt(key string) int {
	s := c.MustString(key)
	v, err := strconv.Atoi(s)
	if err != nil {
		logger.Get().Panic().Str("key", c.key(key)).Str("value", s).Msg("invalid int value")
	}
	return v
}

// MustDuration panics if the given key is missing, empty, or not a valid duration
func (c Conf) MustDuration(key string) time.Duration {
	s := c.MustString(key)
	d, err := time.ParseDuration(s)
	if err != nil {
		logger.Get().Panic().Str("key", c.key(key)).Str("value", s).Msg("invalid duration (e.g., 250ms, 2s, 1h)")
	}
	return d
}

// MayString returns the value or def if missing/empty
func (c Conf) MayString(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// MayInt returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayInt(key string, def int) int {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Int("default", def).Msg("invalid int; using default")
	return def
}

// MayBool returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayBool(key string, def bool) bool {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Bool("default", def).Msg("invalid bool; using default")
	return def
}

// MayDuration returns the value or def if missing/empty; logs and returns def if invalid
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Dur("default", def).Msg("invalid duration; using default")
	return def
}

// MaySize parses a byte size like "10MB", "512 KiB" or "1024"; def if missing or invalid
func (c Conf) MaySize(key string, def uint64) uint64 {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	if n, err := humanize.ParseBytes(s); err == nil {
		return n
	}
	logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Uint64("default", def).Msg("invalid size; using default")
	return def
}

// MayCSV returns a slice of strings from a comma-separated env var; def if missing/empty
func (c Conf) MayCSV(key string, def []string) []string {
	if out := splitCSV(c.lookup(key)); len(out) > 0 {
		return out
	}
	return def
}

// MayEnum ensures value is one of allowed; returns def if empty; panics if invalid
// the returned value is lowercased
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return strings.ToLower(v)
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return "" // unreachable
}

func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
