package domain

import (
	"context"
	"io"
	"time"

	"jagapadi/internal/core/record"
)

// Repo persists whole history snapshots
type Repo interface {
	// Load returns ok=false when nothing was ever saved
	Load(ctx context.Context) (recs []record.Record, ok bool, err error)
	Save(ctx context.Context, recs []record.Record) error
}

// ReaderPort is the read side used by the api and the shell
type ReaderPort interface {
	All() []record.Record
	Get(id string) (record.Record, error)
	Len() int
	TodayStats() Stats
	Search(q string) []record.Record
	ByDate(day time.Time) []record.Record
	// ByDay parses a 2006-01-02 day in the store's location
	ByDay(day string) ([]record.Record, error)
	Groups() []Group
	ExportCSV(w io.Writer) error
	ExportJSON(w io.Writer) error
}

// WriterPort is the mutating side
type WriterPort interface {
	Load(ctx context.Context) error
	Append(r record.Record) error
	Merge(server []record.Record) int
	Clear()
	Flush(ctx context.Context) error
}

// Port is the whole history store
type Port interface {
	ReaderPort
	WriterPort
	Observe(fn func(Change)) (cancel func())
}
