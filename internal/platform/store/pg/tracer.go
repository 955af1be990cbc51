package pg

import (
	"context"
	"strings"

	"jagapadi/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one statement sent to postgres
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives query events from the store adapter
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer returns a tracer that prints SQL regardless of the process-wide level
// kv values are history snapshots, so args are reduced to their sizes
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(ctx context.Context, ev QueryEvent) {
	elapsedMs := float64(ev.ElapsedUS) / 1000.0
	evt := z.log.Debug()
	switch {
	case ev.Err != nil:
		evt = z.log.Error()
	case ev.Slow:
		evt = z.log.Warn()
	}

	evt.Float64("elapsed_ms", elapsedMs).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Interface("args", summarize(ev.Args)).
		Err(ev.Err).
		Msg("pg query")
}

// summarize keeps strings and numbers, replaces byte payloads with their length
func summarize(args any) any {
	list, ok := args.([]any)
	if !ok {
		return args
	}
	out := make([]any, len(list))
	for i, a := range list {
		if b, ok := a.([]byte); ok {
			out[i] = map[string]int{"bytes": len(b)}
			continue
		}
		out[i] = a
	}
	return out
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
