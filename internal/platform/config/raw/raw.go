// Package raw reads environment variables before the logger exists.
// It must not import the logger or the config package
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf looks keys up under a primary prefix, then under any fallbacks
type Conf struct {
	prefixes []string
}

// New returns an unprefixed view
func New() Conf { return Conf{prefixes: []string{""}} }

// Prefix extends every prefix in the view
func (c Conf) Prefix(p string) Conf {
	out := make([]string, len(c.prefixes))
	for i, have := range c.prefixes {
		out[i] = have + p
	}
	return Conf{prefixes: out}
}

// Fallback adds a prefix consulted when the earlier ones are unset
func (c Conf) Fallback(p string) Conf {
	return Conf{prefixes: append(append([]string(nil), c.prefixes...), p)}
}

func (c Conf) lookup(key string) string {
	for _, p := range c.prefixes {
		if v := strings.TrimSpace(os.Getenv(p + key)); v != "" {
			return v
		}
	}
	return ""
}

// Get returns the first non-empty value or def
func (c Conf) Get(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// GetBool treats 1, true, yes and on as true. Unset means def
func (c Conf) GetBool(key string, def bool) bool {
	switch strings.ToLower(c.lookup(key)) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// GetInt returns def when the value is unset, negative or not a number
func (c Conf) GetInt(key string, def int) int {
	n, err := strconv.Atoi(c.lookup(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}
