package store

import (
	"time"

	"jagapadi/internal/platform/config"
)

// Driver names a kv backend
type Driver string

const (
	// DriverSQLite is the default local durable store (pure Go, no cgo)
	DriverSQLite Driver = "sqlite"
	// DriverPG shares a host postgres database
	DriverPG Driver = "pg"
	// DriverMemory keeps everything in process; history is lost on exit
	DriverMemory Driver = "memory"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string
	Driver  Driver

	SQLite SQLiteConfig
	PG     PGConfig

	// Guard/boot knobs shared by sql drivers
	ConnectRetries int           // default 20 with exponential backoff capped at 2s
	PingTimeout    time.Duration // default 3s
}

// SQLiteConfig configures the modernc sqlite file
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int
}

// FromConf reads CORE_STORE_* style keys from an already prefixed Conf
//
//	DRIVER        sqlite|pg|memory (default sqlite)
//	SQLITE_PATH   default jagapadi.db
//	SQLITE_BUSY   default 5s
//	PG_URL        required when DRIVER=pg
//	PG_MAX_CONNS  default 4
//	PG_LOG_SQL    default false
//	PG_SLOW_MS    default 200
//	RETRIES       default 20
//	PING_TIMEOUT  default 3s
func FromConf(c config.Conf, appName string) Config {
	cfg := Config{
		AppName:        appName,
		Driver:         Driver(c.MayEnum("DRIVER", string(DriverSQLite), string(DriverSQLite), string(DriverPG), string(DriverMemory))),
		ConnectRetries: c.MayInt("RETRIES", 20),
		PingTimeout:    c.MayDuration("PING_TIMEOUT", 3*time.Second),
		SQLite: SQLiteConfig{
			Path:        c.MayString("SQLITE_PATH", "jagapadi.db"),
			BusyTimeout: c.MayDuration("SQLITE_BUSY", 5*time.Second),
		},
	}
	if cfg.Driver == DriverPG {
		cfg.PG = PGConfig{
			URL:         c.MustString("PG_URL"),
			MaxConns:    int32(c.MayInt("PG_MAX_CONNS", 4)),
			LogSQL:      c.MayBool("PG_LOG_SQL", false),
			SlowQueryMs: c.MayInt("PG_SLOW_MS", 200),
		}
	}
	return cfg
}
