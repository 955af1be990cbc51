// Package domain defines the history store's types and ports
package domain

import (
	"time"

	"jagapadi/internal/core/record"
)

// CacheKey is the local store key the history snapshot lives under
const CacheKey = "jagapadi_history_cache"

// DefaultCap bounds the number of records kept
const DefaultCap = 100

// Stats summarizes today's detections
type Stats struct {
	TotalDetections   int `json:"totalDetections"`
	AverageConfidence int `json:"avgConfidence"`
}

// Group is one calendar day of records, newest first
type Group struct {
	Day     string          `json:"day"`   // 2006-01-02 in the store's location
	Label   string          `json:"label"` // Hari Ini, Kemarin or "1 Maret"
	Records []record.Record `json:"-"`
}

// ChangeKind says what mutated the history
type ChangeKind string

const (
	Loaded   ChangeKind = "loaded"
	Appended ChangeKind = "appended"
	Merged   ChangeKind = "merged"
	Cleared  ChangeKind = "cleared"
)

// Change is delivered to observers after every mutation
type Change struct {
	Kind  ChangeKind `json:"kind"`
	Count int        `json:"count"`
	At    time.Time  `json:"at"`
}

// SourceLabel is the human label for a provenance, used in exports and the detail modal
func SourceLabel(p record.Provenance) string {
	switch p {
	case record.ProvenanceDemo:
		return "🎭 Data Demo"
	case record.ProvenanceLocalOnly:
		return "📱 Offline"
	case record.ProvenanceServer:
		return "🌐 Server"
	case record.ProvenanceImported:
		return "💻 Client"
	default:
		return "📊 Data"
	}
}
