package store

import (
	"context"
	"errors"
	"testing"

	perr "jagapadi/internal/platform/errors"
)

type fakeRows struct {
	vals []string
	i    int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.vals) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dst ...any) error {
	*(dst[0].(*string)) = r.vals[r.i-1]
	return nil
}

func (r *fakeRows) Err() error        { return r.err }
func (r *fakeRows) Close()            {}
func (r *fakeRows) Columns() []string { return []string{"value"} }

type fakeQuerier struct {
	rows *fakeRows
	err  error
}

func (q fakeQuerier) Exec(context.Context, string, ...any) (CommandTag, error) { return nil, nil }
func (q fakeQuerier) QueryRow(context.Context, string, ...any) Row              { return q.rows }
func (q fakeQuerier) Query(context.Context, string, ...any) (Rows, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func scanString(r Row) (string, error) {
	var s string
	err := r.Scan(&s)
	return s, err
}

func TestOne(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	cases := []struct {
		name string
		q    fakeQuerier
		want string
		code perr.ErrorCode
		err  error
	}{
		{name: "single row", q: fakeQuerier{rows: &fakeRows{vals: []string{"a"}}}, want: "a"},
		{name: "no rows", q: fakeQuerier{rows: &fakeRows{}}, code: perr.ErrorCodeNotFound},
		{name: "two rows", q: fakeQuerier{rows: &fakeRows{vals: []string{"a", "b"}}}, code: perr.ErrorCodeConflict},
		{name: "query error", q: fakeQuerier{err: boom}, err: boom},
		{name: "iteration error", q: fakeQuerier{rows: &fakeRows{err: boom}}, err: boom},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := One(context.Background(), tc.q, scanString, "SELECT value")
			switch {
			case tc.err != nil:
				if !errors.Is(err, tc.err) {
					t.Fatalf("err=%v want %v", err, tc.err)
				}
			case tc.code != 0:
				if !perr.IsCode(err, tc.code) {
					t.Fatalf("err=%v want code %v", err, tc.code)
				}
			default:
				if err != nil || got != tc.want {
					t.Fatalf("got %q, %v", got, err)
				}
			}
		})
	}
}
