// Package store provides a unified interface to the shell's durable key value storage
package store

import (
	"context"
	"errors"
	"fmt"

	"jagapadi/internal/platform/logger"
)

// Store is the facade for the configured backend
// zero value is safe but does nothing
type Store struct {
	// Log is the logger used by subclients
	// zero means a no op zerolog logger
	Log logger.Logger

	// SQL is the active sql seam (sqlite or postgres), nil for the memory driver
	SQL TxRunner

	// KV is the key value surface every consumer uses, never nil after Open
	KV KV

	driver Driver
}

// Row exposes the minimal scan contract a single row needs
type Row interface {
	Scan(dest ...any) error
}

// Rows exposes the minimal iteration and scan for a result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag is a tiny interface to inspect command results
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the read and write surface the kv layer uses for sql
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner wraps transaction execution around a function
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// KV is the durable key value seam. Values are opaque bytes, usually JSON
// Get reports ok=false on a miss; a miss is never an error
type KV interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte) error
	Remove(ctx context.Context, key string) error
}

// Pinger is any seam that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Option mutates Store during Open
type Option func(*Store) error

// WithLogger sets the logger handed to the sql drivers
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// Open constructs a Store for the configured driver and ensures the kv table exists
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	// defaults for zero logger to avoid nil checks
	s.Log = s.Log.With().Str("component", "store").Logger()
	s.driver = cfg.Driver

	switch cfg.Driver {
	case DriverMemory, "":
		s.driver = DriverMemory
		s.KV = NewMemory()
	case DriverSQLite:
		db, err := openSQLite(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.SQL = db
	case DriverPG:
		db, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.SQL = db
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}

	if s.SQL != nil {
		kv, err := newSQLKV(ctx, s.SQL, dialectFor(s.driver))
		if err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		s.KV = kv
	}

	s.Log.Info().Str("driver", string(s.driver)).Msg("store opened")
	return s, nil
}

// Driver returns the backend in use
func (s *Store) Driver() Driver { return s.driver }

// Guard verifies the configured seam answers a ping
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	if p, ok := s.SQL.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.driver, err)
		}
	}
	return nil
}

// Close closes the initialized backend gracefully
func (s *Store) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if c, ok := s.SQL.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
