package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jagapadi/internal/platform/config"
	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/testkit"

	"github.com/rs/zerolog"
)

func openSQLiteStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, Config{
		AppName: "jagapadi-test",
		Driver:  DriverSQLite,
		SQLite:  SQLiteConfig{Path: filepath.Join(t.TempDir(), "kv.db")},
	}, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestOpen_DefaultsToMemory(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Driver() != DriverMemory || s.SQL != nil {
		t.Fatalf("expected memory driver, got %s sql=%T", s.Driver(), s.SQL)
	}
	if _, ok := s.KV.(*Memory); !ok {
		t.Fatalf("KV=%T", s.KV)
	}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("Guard: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{Driver: "redis"})
	if err == nil || !strings.Contains(err.Error(), "unknown driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestOpen_OptionError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := Open(context.Background(), Config{}, func(*Store) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected option error, got %v", err)
	}
}

func TestSQLiteKV_RoundTrip(t *testing.T) {
	t.Parallel()

	s := openSQLiteStore(t)
	ctx := context.Background()

	if err := s.Guard(ctx); err != nil {
		t.Fatalf("Guard: %v", err)
	}

	if _, ok, err := s.KV.Get(ctx, "jagapadi_history_cache"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	if err := s.KV.Set(ctx, "jagapadi_history_cache", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.KV.Set(ctx, "jagapadi_history_cache", []byte(`[{"id":"b"}]`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, ok, err := s.KV.Get(ctx, "jagapadi_history_cache")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != `[{"id":"b"}]` {
		t.Fatalf("got %s", got)
	}

	if err := s.KV.Remove(ctx, "jagapadi_history_cache"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := s.KV.Get(ctx, "jagapadi_history_cache"); ok {
		t.Fatal("expected miss after remove")
	}
	// removing a missing key is fine
	if err := s.KV.Remove(ctx, "jagapadi_history_cache"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}
}

func TestSQLiteKV_SurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()
	cfg := Config{Driver: DriverSQLite, SQLite: SQLiteConfig{Path: path}}

	s1, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s1.KV.Set(ctx, "jagapadi_theme", []byte("dark")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s1.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close(ctx)
	v, ok, err := s2.KV.Get(ctx, "jagapadi_theme")
	if err != nil || !ok || string(v) != "dark" {
		t.Fatalf("got %q ok=%v err=%v", v, ok, err)
	}
}

func TestSQLiteKV_EmptyValue(t *testing.T) {
	t.Parallel()

	s := openSQLiteStore(t)
	ctx := context.Background()
	if err := s.KV.Set(ctx, "k", nil); err != nil {
		t.Fatalf("Set nil: %v", err)
	}
	v, ok, err := s.KV.Get(ctx, "k")
	if err != nil || !ok || len(v) != 0 {
		t.Fatalf("got %q ok=%v err=%v", v, ok, err)
	}
}

func TestKV_RejectsBadKeys(t *testing.T) {
	t.Parallel()

	for name, kv := range map[string]KV{"memory": NewMemory(), "sqlite": openSQLiteStore(t).KV} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			testkit.MustCode(t, kv.Set(ctx, " ", []byte("x")), perr.ErrorCodeInvalidArgument)
			_, _, err := kv.Get(ctx, strings.Repeat("k", 300))
			testkit.MustCode(t, err, perr.ErrorCodeInvalidArgument)
			testkit.MustCode(t, kv.Remove(ctx, ""), perr.ErrorCodeInvalidArgument)
		})
	}
}

func TestSQLiteKV_ClosedDBIsPersistenceError(t *testing.T) {
	t.Parallel()

	s := openSQLiteStore(t)
	ctx := context.Background()
	_ = s.Close(ctx)

	err := s.KV.Set(ctx, "k", []byte("v"))
	if err == nil {
		t.Fatal("expected error writing to a closed db")
	}
	if c := perr.CodeOf(err); c != perr.ErrorCodePersistence && c != perr.ErrorCodeUnavailable {
		t.Fatalf("unexpected code %s", c)
	}
}

func TestFromConf(t *testing.T) {
	t.Setenv("CORE_STORE_DRIVER", "PG")
	t.Setenv("CORE_STORE_PG_URL", "postgres://u:p@h:5432/db")
	t.Setenv("CORE_STORE_PG_MAX_CONNS", "9")
	t.Setenv("CORE_STORE_PING_TIMEOUT", "1s")

	cfg := FromConf(config.New().Prefix("CORE_STORE_"), "shell")
	if cfg.Driver != DriverPG || cfg.PG.URL == "" || cfg.PG.MaxConns != 9 {
		t.Fatalf("bad cfg: %+v", cfg)
	}
	if cfg.PingTimeout != time.Second || cfg.ConnectRetries != 20 {
		t.Fatalf("bad guard knobs: %+v", cfg)
	}
	if cfg.SQLite.Path != "jagapadi.db" {
		t.Fatalf("sqlite default path=%q", cfg.SQLite.Path)
	}
}

func TestFromConf_PGRequiresURL(t *testing.T) {
	t.Setenv("CORE_STORE_DRIVER", "pg")
	t.Setenv("CORE_STORE_PG_URL", "")
	testkit.MustPanic(t, func() { FromConf(config.New().Prefix("CORE_STORE_"), "shell") })
}
