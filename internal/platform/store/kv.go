package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	perr "jagapadi/internal/platform/errors"
)

const kvTable = "jagapadi_kv"

// dialect holds the statements that differ between sqlite and postgres
type dialect struct {
	name   string
	create string
	get    string
	upsert string
	remove string
}

var (
	sqliteDialect = dialect{
		name: "sqlite",
		create: `CREATE TABLE IF NOT EXISTS ` + kvTable + ` (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		get: `SELECT value FROM ` + kvTable + ` WHERE key = ?`,
		upsert: `INSERT INTO ` + kvTable + ` (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		remove: `DELETE FROM ` + kvTable + ` WHERE key = ?`,
	}

	pgDialect = dialect{
		name: "pg",
		create: `CREATE TABLE IF NOT EXISTS ` + kvTable + ` (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		get: `SELECT value FROM ` + kvTable + ` WHERE key = $1`,
		upsert: `INSERT INTO ` + kvTable + ` (key, value, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		remove: `DELETE FROM ` + kvTable + ` WHERE key = $1`,
	}
)

func dialectFor(d Driver) dialect {
	if d == DriverPG {
		return pgDialect
	}
	return sqliteDialect
}

// sqlKV is a KV over any TxRunner
type sqlKV struct {
	db  TxRunner
	d   dialect
	now func() time.Time
}

func newSQLKV(ctx context.Context, db TxRunner, d dialect) (*sqlKV, error) {
	if _, err := Exec(ctx, db, d.create); err != nil {
		return nil, perr.FromStoragef(err, "create %s table", kvTable)
	}
	return &sqlKV{db: db, d: d, now: time.Now}, nil
}

func (k *sqlKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	val, err := One(ctx, k.db, scanBytes, k.d.get, key)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, perr.FromStoragef(err, "read %s", key)
	}
	return val, true, nil
}

func (k *sqlKV) Set(ctx context.Context, key string, val []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if val == nil {
		val = []byte{}
	}
	err := k.db.Tx(ctx, func(q RowQuerier) error {
		_, err := Exec(ctx, q, k.d.upsert, key, val, k.now().UnixMilli())
		return err
	})
	return perr.FromStoragef(err, "write %s", key)
}

func (k *sqlKV) Remove(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := Exec(ctx, k.db, k.d.remove, key)
	return perr.FromStoragef(err, "remove %s", key)
}

func scanBytes(r Row) ([]byte, error) {
	var b []byte
	err := r.Scan(&b)
	return b, err
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return perr.InvalidArgf("store key is required")
	}
	if len(key) > 256 {
		return perr.InvalidArgf("store key too long: %d", len(key))
	}
	return nil
}

// String names the backend, handy in logs
func (k *sqlKV) String() string { return fmt.Sprintf("sql(%s)", k.d.name) }
