package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jagapadi/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// emitter forwards query timings to a tracer; zero value is silent
type emitter struct {
	tracer pg.QueryTracer
	slowUS int64
}

func (e emitter) emit(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if e.tracer == nil {
		return
	}
	elapsedUS := time.Since(start).Microseconds()
	e.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: elapsedUS,
		Err:       err,
		Slow:      e.slowUS > 0 && elapsedUS >= e.slowUS,
	})
}

// pgx

// pgAdapter wraps pg.PG and implements TxRunner
type pgAdapter struct {
	p *pg.PG
	emitter
}

func newPGAdapter(p *pg.PG) *pgAdapter {
	return &pgAdapter{p: p, emitter: emitter{tracer: p.Tracer, slowUS: int64(p.SlowMs) * 1000}}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.p == nil {
		return errors.New("pg: nil adapter")
	}
	return a.p.Pool.Ping(ctx)
}

func (a *pgAdapter) Close() error { a.p.Close(); return nil }

func (a *pgAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return pgExec(ctx, a.p.Pool, a.emitter, sql, args)
}

func (a *pgAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return pgQuery(ctx, a.p.Pool, a.emitter, sql, args)
}

func (a *pgAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return pgQueryRow(ctx, a.p.Pool, a.emitter, sql, args)
}

func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(pgTx{tx: tx, emitter: a.emitter}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// pgConn is the query surface shared by *pgxpool.Pool and pgx.Tx
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgExec(ctx context.Context, c pgConn, e emitter, sql string, args []any) (CommandTag, error) {
	start := time.Now()
	ct, err := c.Exec(ctx, sql, args...)
	e.emit(ctx, sql, args, start, err)
	return ct, err
}

func pgQuery(ctx context.Context, c pgConn, e emitter, sql string, args []any) (Rows, error) {
	start := time.Now()
	rs, err := c.Query(ctx, sql, args...)
	e.emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return pgRows{r: rs}, nil
}

func pgQueryRow(ctx context.Context, c pgConn, e emitter, sql string, args []any) Row {
	start := time.Now()
	r := c.QueryRow(ctx, sql, args...)
	// emit after Scan so the scan error is captured
	return scanHook{r: r, after: func(err error) { e.emit(ctx, sql, args, start, err) }}
}

type pgTx struct {
	tx pgx.Tx
	emitter
}

func (t pgTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return pgExec(ctx, t.tx, t.emitter, sql, args)
}

func (t pgTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return pgQuery(ctx, t.tx, t.emitter, sql, args)
}

func (t pgTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return pgQueryRow(ctx, t.tx, t.emitter, sql, args)
}

type pgRows struct{ r pgx.Rows }

func (x pgRows) Next() bool            { return x.r.Next() }
func (x pgRows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x pgRows) Err() error            { return x.r.Err() }
func (x pgRows) Close()                { x.r.Close() }
func (x pgRows) Columns() []string {
	f := x.r.FieldDescriptions()
	out := make([]string, len(f))
	for i := range f {
		out[i] = f[i].Name
	}
	return out
}

// database/sql (sqlite)

// sqlAdapter wraps *sql.DB and implements TxRunner
type sqlAdapter struct {
	db *sql.DB
	emitter
}

func newSQLAdapter(db *sql.DB) *sqlAdapter { return &sqlAdapter{db: db} }

func (a *sqlAdapter) Ping(ctx context.Context) error { return a.db.PingContext(ctx) }

func (a *sqlAdapter) Close() error { return a.db.Close() }

func (a *sqlAdapter) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	return stdExec(ctx, a.db, a.emitter, q, args)
}

func (a *sqlAdapter) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	return stdQuery(ctx, a.db, a.emitter, q, args)
}

func (a *sqlAdapter) QueryRow(ctx context.Context, q string, args ...any) Row {
	return stdQueryRow(ctx, a.db, a.emitter, q, args)
}

func (a *sqlAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(stdTx{tx: tx, emitter: a.emitter}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// stdConn is the query surface shared by *sql.DB and *sql.Tx
type stdConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func stdExec(ctx context.Context, c stdConn, e emitter, q string, args []any) (CommandTag, error) {
	start := time.Now()
	res, err := c.ExecContext(ctx, q, args...)
	e.emit(ctx, q, args, start, err)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	return stdTag{n: n}, nil
}

func stdQuery(ctx context.Context, c stdConn, e emitter, q string, args []any) (Rows, error) {
	start := time.Now()
	rs, err := c.QueryContext(ctx, q, args...)
	e.emit(ctx, q, args, start, err)
	if err != nil {
		return nil, err
	}
	return stdRows{r: rs}, nil
}

func stdQueryRow(ctx context.Context, c stdConn, e emitter, q string, args []any) Row {
	start := time.Now()
	r := c.QueryRowContext(ctx, q, args...)
	return scanHook{r: r, after: func(err error) { e.emit(ctx, q, args, start, err) }}
}

type stdTx struct {
	tx *sql.Tx
	emitter
}

func (t stdTx) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	return stdExec(ctx, t.tx, t.emitter, q, args)
}

func (t stdTx) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	return stdQuery(ctx, t.tx, t.emitter, q, args)
}

func (t stdTx) QueryRow(ctx context.Context, q string, args ...any) Row {
	return stdQueryRow(ctx, t.tx, t.emitter, q, args)
}

type stdRows struct{ r *sql.Rows }

func (x stdRows) Next() bool            { return x.r.Next() }
func (x stdRows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x stdRows) Err() error            { return x.r.Err() }
func (x stdRows) Close()                { _ = x.r.Close() }
func (x stdRows) Columns() []string {
	cols, _ := x.r.Columns()
	return cols
}

type stdTag struct{ n int64 }

func (t stdTag) String() string      { return fmt.Sprintf("OK %d", t.n) }
func (t stdTag) RowsAffected() int64 { return t.n }

// scanHook calls after once Scan returns
type scanHook struct {
	r     Row
	after func(error)
}

func (x scanHook) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if x.after != nil {
		x.after(err)
	}
	return err
}
