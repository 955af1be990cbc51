// Package repo stores history snapshots as one JSON blob in the local kv store
package repo

import (
	"context"
	"time"

	"jagapadi/internal/core/record"
	"jagapadi/internal/modkit/repokit"
	"jagapadi/internal/platform/logger"
	dom "jagapadi/internal/services/history/domain"
)

type repo struct {
	kv  repokit.KV
	key string
	loc *time.Location
	log logger.Logger
}

// New returns a snapshot repo over kv. loc is used for zoneless timestamps
func New(kv repokit.KV, loc *time.Location, log logger.Logger) dom.Repo {
	if loc == nil {
		loc = time.Local
	}
	return &repo{kv: kv, key: dom.CacheKey, loc: loc, log: log}
}

// Load decodes the snapshot. Entries that no longer validate are skipped
// rather than failing the whole history
func (r *repo) Load(ctx context.Context) ([]record.Record, bool, error) {
	wires, ok, err := repokit.GetJSON[[]record.WireRecord](ctx, r.kv, r.key)
	if err != nil || !ok {
		return nil, false, err
	}
	out := make([]record.Record, 0, len(wires))
	for _, w := range wires {
		rec, err := record.FromWire(w, record.ProvenanceServer, r.loc)
		if err != nil {
			r.log.Warn().Err(err).Str("id", w.ID).Msg("skipping unreadable history entry")
			continue
		}
		out = append(out, rec)
	}
	return out, true, nil
}

// Save replaces the snapshot
func (r *repo) Save(ctx context.Context, recs []record.Record) error {
	wires := make([]record.WireRecord, len(recs))
	for i, rec := range recs {
		wires[i] = rec.ToWire()
	}
	return repokit.PutJSON(ctx, r.kv, r.key, wires)
}
