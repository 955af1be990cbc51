package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/store/pg"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

const (
	defaultRetries  = 20
	defaultPingTO   = 3 * time.Second
	backoffStart    = 150 * time.Millisecond
	backoffCeiling  = 2 * time.Second
	sqliteDriverKey = "sqlite"
)

// sqlOpen is a seam so tests can fail the open step
var sqlOpen = sql.Open

// openPG opens pg and wraps it with our sql adapter once the pool answers a ping
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		AppName:  cfg.AppName,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, perr.FromStoragef(err, "open postgres")
	}

	// ping the pool directly so boot retries do not emit trace lines
	if err := pingWithBackoff(ctx, cfg, p.Pool.Ping); err != nil {
		p.Close()
		return nil, err
	}
	return newPGAdapter(p), nil
}

// openSQLite opens the modernc sqlite file with WAL and a busy timeout
func openSQLite(ctx context.Context, cfg Config, _ *Store) (TxRunner, error) {
	db, err := sqlOpen(sqliteDriverKey, sqliteDSN(cfg.SQLite))
	if err != nil {
		return nil, perr.FromStoragef(err, "open sqlite %s", cfg.SQLite.Path)
	}
	// one writer keeps SQLITE_BUSY out of the picture for a single process shell
	db.SetMaxOpenConns(1)

	if err := pingWithBackoff(ctx, cfg, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newSQLAdapter(db), nil
}

func sqliteDSN(c SQLiteConfig) string {
	path := c.Path
	if path == "" {
		path = "jagapadi.db"
	}
	busy := c.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

// pingWithBackoff retries ping until it succeeds, ctx ends or attempts run out
func pingWithBackoff(ctx context.Context, cfg Config, ping func(context.Context) error) error {
	attempts := cfg.ConnectRetries
	if attempts <= 0 {
		attempts = defaultRetries
	}
	pingTO := cfg.PingTimeout
	if pingTO <= 0 {
		pingTO = defaultPingTO
	}

	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, pingTO)
		lastErr = ping(toCtx)
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !perr.IsRetryable(lastErr) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < backoffCeiling {
			backoff = min(backoff*2, backoffCeiling)
		}
	}
	return perr.FromStoragef(lastErr, "store ping failed after retries")
}
