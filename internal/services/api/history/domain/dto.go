// Package domain holds DTOs for the history api
package domain

import (
	"time"

	"jagapadi/internal/core/record"
	histdom "jagapadi/internal/services/history/domain"
)

// RecordView is a record as the gallery and detail modal show it
type RecordView struct {
	record.WireRecord
	SourceLabel string `json:"sourceLabel"`
	LocalTime   string `json:"localTime"` // 02/01/2006 15:04 in the shell's zone
}

// ListResponse is returned by GET /history
type ListResponse struct {
	Total   int          `json:"total"`
	Records []RecordView `json:"records"`
}

// GroupView is one day of the gallery
type GroupView struct {
	Day     string       `json:"day"`
	Label   string       `json:"label"`
	Records []RecordView `json:"records"`
}

// View converts a record for the api
func View(r record.Record, loc *time.Location) RecordView {
	if loc == nil {
		loc = time.Local
	}
	return RecordView{
		WireRecord:  r.ToWire(),
		SourceLabel: histdom.SourceLabel(r.Provenance),
		LocalTime:   r.CapturedAt.In(loc).Format("02/01/2006 15:04"),
	}
}

// Views converts a slice, never returning nil
func Views(recs []record.Record, loc *time.Location) []RecordView {
	out := make([]RecordView, len(recs))
	for i, r := range recs {
		out[i] = View(r, loc)
	}
	return out
}

// Groups converts grouped records
func Groups(gs []histdom.Group, loc *time.Location) []GroupView {
	out := make([]GroupView, len(gs))
	for i, g := range gs {
		out[i] = GroupView{Day: g.Day, Label: g.Label, Records: Views(g.Records, loc)}
	}
	return out
}
