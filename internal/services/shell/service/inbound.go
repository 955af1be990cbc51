package service

import (
	"context"
	"encoding/json"
	"time"

	"jagapadi/internal/core/record"
	perr "jagapadi/internal/platform/errors"
	bridge "jagapadi/internal/services/bridge/domain"
	bridgesvc "jagapadi/internal/services/bridge/service"
	detdom "jagapadi/internal/services/detection/domain"
	notifydom "jagapadi/internal/services/notify/domain"
)

// MsgConnectionLost is shown when the host reports the backend went away
const MsgConnectionLost = "Koneksi ke server terputus"

type statusPayload struct {
	Message string `json:"message" validate:"required,max=512"`
}

type lostPayload struct {
	Reason string `json:"reason,omitempty" validate:"max=512"`
}

type mergeReply struct {
	Records  int `json:"records"`
	Rejected int `json:"rejected"`
}

// registerInbound installs every call the host may make. The bridge already
// routes each one through the gate on the loop
func (a *App) registerInbound() {
	a.bridge.Register(bridge.DeliverResult, a.onDeliverResult)
	bridgesvc.Register(a.bridge, bridge.LoadHistory, a.onLoadHistory)
	bridgesvc.Register(a.bridge, bridge.AddHistoryRecord, a.onAddHistoryRecord)
	bridgesvc.RegisterEmpty(a.bridge, bridge.ClearHistory, a.onClearHistory)
	bridgesvc.Register(a.bridge, bridge.StatusMessage, a.onStatusMessage)
	bridgesvc.Register(a.bridge, bridge.ConnectionLost, a.onConnectionLost)
}

// onDeliverResult decodes by hand so an unreadable result still ends the
// detection waiting for it
func (a *App) onDeliverResult(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := bridgesvc.Decode[detdom.ResultPayload](raw)
	if err != nil {
		a.detect.RejectResult(err)
		return nil, err
	}
	r, err := a.detect.DeliverResult(ctx, p)
	if err != nil {
		return nil, err
	}
	return r.ToWire(), nil
}

// onLoadHistory merges the backend's history. Entries that fail to parse are
// skipped and counted rather than failing the whole batch
func (a *App) onLoadHistory(_ context.Context, in []record.WireRecord) (any, error) {
	recs, rejected := a.fromWire(in)
	n := a.history.Merge(recs)
	return mergeReply{Records: n, Rejected: rejected}, nil
}

func (a *App) onAddHistoryRecord(_ context.Context, in record.WireRecord) (any, error) {
	r, err := record.FromWire(in, record.ProvenanceServer, a.location())
	if err != nil {
		return nil, err
	}
	if err := a.history.Append(r); err != nil {
		return nil, err
	}
	return r.ToWire(), nil
}

func (a *App) onClearHistory(context.Context) (any, error) {
	a.history.Clear()
	return nil, nil
}

func (a *App) onStatusMessage(_ context.Context, in statusPayload) (any, error) {
	a.notify.SetStatus(in.Message)
	return nil, nil
}

func (a *App) onConnectionLost(_ context.Context, in lostPayload) (any, error) {
	reason := in.Reason
	if reason == "" {
		reason = "backend connection lost"
	}
	a.link.MarkLost(reason)
	a.notify.Push(notifydom.Warning, MsgConnectionLost)
	return nil, nil
}

func (a *App) fromWire(in []record.WireRecord) ([]record.Record, int) {
	out := make([]record.Record, 0, len(in))
	rejected := 0
	loc := a.location()
	for _, w := range in {
		r, err := record.FromWire(w, record.ProvenanceServer, loc)
		if err != nil {
			rejected++
			a.log.Warn().Err(err).Str("id", w.ID).Str("field", fieldOf(err)).Msg("history record skipped")
			continue
		}
		out = append(out, r)
	}
	return out, rejected
}

// location is where zoneless host timestamps are read
func (a *App) location() *time.Location {
	if a.cfg.Location != nil {
		return a.cfg.Location
	}
	return time.Local
}

func fieldOf(err error) string {
	if e, ok := perr.As(err); ok {
		return e.Field()
	}
	return ""
}
