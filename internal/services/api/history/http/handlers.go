// Package http provides http transport for the detection history
package http

import (
	"bytes"
	stdhttp "net/http"
	"strings"
	"time"

	"jagapadi/internal/core/record"
	"jagapadi/internal/modkit/httpkit"
	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/services/api/history/domain"
	histdom "jagapadi/internal/services/history/domain"
)

// Deps are the handler dependencies
type Deps struct {
	History  histdom.ReaderPort
	Location *time.Location
	Now      func() time.Time
}

type handlers struct{ d Deps }

// Register mounts the history endpoints
func Register(r httpkit.Router, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{d: d}

	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/today", h.today)
	httpkit.Get(r, "/groups", h.groups)
	httpkit.GetFile(r, "/export", h.export)
	httpkit.Get(r, "/{id}", h.get)
}

// GET /history?q=wereng&date=2025-03-01
// both filters may be combined; results stay newest first
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	q := httpkit.Query(r, "q")
	day := httpkit.Query(r, "date")

	var recs []record.Record
	switch {
	case day != "":
		byDay, err := h.d.History.ByDay(day)
		if err != nil {
			return nil, perr.WithField(err, "date")
		}
		recs = byDay
		if q != "" {
			recs = intersect(recs, h.d.History.Search(q))
		}
	case q != "":
		recs = h.d.History.Search(q)
	default:
		recs = h.d.History.All()
	}
	return domain.ListResponse{Total: h.d.History.Len(), Records: domain.Views(recs, h.d.Location)}, nil
}

// GET /history/today
func (h *handlers) today(_ *stdhttp.Request) (any, error) {
	return h.d.History.TodayStats(), nil
}

// GET /history/groups
func (h *handlers) groups(_ *stdhttp.Request) (any, error) {
	return domain.Groups(h.d.History.Groups(), h.d.Location), nil
}

// GET /history/{id}
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	rec, err := h.d.History.Get(httpkit.Param(r, "id"))
	if err != nil {
		return nil, err
	}
	return domain.View(rec, h.d.Location), nil
}

// GET /history/export?format=csv|json
func (h *handlers) export(r *stdhttp.Request) (httpkit.Download, error) {
	var buf bytes.Buffer
	stamp := h.d.Now().In(h.loc()).Format("2006-01-02")
	switch strings.ToLower(httpkit.Query(r, "format")) {
	case "", "csv":
		if err := h.d.History.ExportCSV(&buf); err != nil {
			return httpkit.Download{}, err
		}
		return httpkit.Download{
			Filename:    "riwayat_deteksi_" + stamp + ".csv",
			ContentType: "text/csv; charset=utf-8",
			Body:        buf.Bytes(),
		}, nil
	case "json":
		if err := h.d.History.ExportJSON(&buf); err != nil {
			return httpkit.Download{}, err
		}
		return httpkit.Download{
			Filename:    "riwayat_deteksi_" + stamp + ".json",
			ContentType: "application/json",
			Body:        buf.Bytes(),
		}, nil
	}
	return httpkit.Download{}, perr.WithField(perr.InvalidArgf("format must be csv or json"), "format")
}

func (h *handlers) loc() *time.Location {
	if h.d.Location != nil {
		return h.d.Location
	}
	return time.Local
}

func intersect(a, b []record.Record) []record.Record {
	keep := make(map[string]bool, len(b))
	for _, r := range b {
		keep[r.ID] = true
	}
	out := a[:0:0]
	for _, r := range a {
		if keep[r.ID] {
			out = append(out, r)
		}
	}
	return out
}
