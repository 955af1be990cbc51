// Package record defines the detection record kept in history and shown in the results view
package record

import (
	"fmt"
	"strings"
	"time"

	perr "jagapadi/internal/platform/errors"

	"github.com/google/uuid"
)

// Provenance says where a record came from. Informational only
type Provenance string

const (
	// ProvenanceDemo marks first run placeholders
	ProvenanceDemo Provenance = "demo"
	// ProvenanceServer marks records echoed by the backend
	ProvenanceServer Provenance = "server"
	// ProvenanceLocalOnly marks records the backend has not confirmed
	ProvenanceLocalOnly Provenance = "local-only"
	// ProvenanceImported marks records loaded from an export file
	ProvenanceImported Provenance = "imported"
)

// ParseProvenance maps wire source values, including legacy spellings, to a Provenance
// unknown and empty values are treated as server, since only the host sends them
func ParseProvenance(s string) Provenance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "demo":
		return ProvenanceDemo
	case "local-only", "local_only", "local":
		return ProvenanceLocalOnly
	case "imported":
		return ProvenanceImported
	default:
		// "server", "python_client" and anything a newer host invents
		return ProvenanceServer
	}
}

// Valid reports whether p is one of the known values
func (p Provenance) Valid() bool {
	switch p {
	case ProvenanceDemo, ProvenanceServer, ProvenanceLocalOnly, ProvenanceImported:
		return true
	}
	return false
}

// Finding is one detected pest instance
type Finding struct {
	Label      string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Aggregate summarizes the findings of one record
type Aggregate struct {
	TotalCount        int `json:"totalDetections"`
	AverageConfidence int `json:"avgConfidence"`
}

// Record is one completed detection. Records are immutable once built;
// stores hand out copies
type Record struct {
	ID                string
	Filename          string
	CapturedAt        time.Time
	ResultImage       string
	Findings          []Finding
	Aggregate         Aggregate
	Recommendations   []string
	ProcessingSeconds float64
	Provenance        Provenance
}

// NewID builds a unique record id from the capture instant
func NewID(now time.Time) string {
	return fmt.Sprintf("det_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

// MaxRecommendations is the fixed ceiling on a record's advice list
const MaxRecommendations = 8

// CapRecommendations trims blanks, drops repeats keeping first-seen order and
// truncates to limit. limit <= 0 or above MaxRecommendations means MaxRecommendations
func CapRecommendations(in []string, limit int) []string {
	if limit <= 0 || limit > MaxRecommendations {
		limit = MaxRecommendations
	}
	out := make([]string, 0, min(len(in), limit))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if len(out) == limit {
			break
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Validate checks the record invariants
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return perr.WithField(perr.Validationf("record id is required"), "id")
	}
	if r.Aggregate.TotalCount < 0 {
		return perr.WithField(perr.Validationf("total count must not be negative"), "totalDetections")
	}
	if len(r.Findings) != r.Aggregate.TotalCount {
		return perr.WithField(
			perr.Validationf("total count %d does not match %d findings", r.Aggregate.TotalCount, len(r.Findings)),
			"totalDetections",
		)
	}
	for i, f := range r.Findings {
		if f.Confidence < 0 || f.Confidence > 100 {
			return perr.WithField(perr.Validationf("finding %d confidence %.1f out of range", i, f.Confidence), "confidence")
		}
	}
	if r.Aggregate.AverageConfidence < 0 || r.Aggregate.AverageConfidence > 100 {
		return perr.WithField(perr.Validationf("average confidence out of range"), "avgConfidence")
	}
	if r.ProcessingSeconds < 0 {
		return perr.WithField(perr.Validationf("processing time must not be negative"), "processingTime")
	}
	if len(r.Recommendations) > MaxRecommendations {
		return perr.WithField(
			perr.Validationf("%d recommendations exceed the limit of %d", len(r.Recommendations), MaxRecommendations),
			"recommendations",
		)
	}
	seen := make(map[string]struct{}, len(r.Recommendations))
	for _, s := range r.Recommendations {
		if _, dup := seen[s]; dup {
			return perr.WithField(perr.Validationf("recommendation %q repeated", s), "recommendations")
		}
		seen[s] = struct{}{}
	}
	if !r.Provenance.Valid() {
		return perr.WithField(perr.Validationf("unknown provenance %q", r.Provenance), "source")
	}
	return nil
}

// Clone returns a deep copy so callers cannot reach into a store's slices
func (r Record) Clone() Record {
	c := r
	c.Findings = append([]Finding(nil), r.Findings...)
	c.Recommendations = append([]string(nil), r.Recommendations...)
	return c
}

// Labels returns the finding labels in detection order
func (r Record) Labels() []string {
	out := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		out[i] = f.Label
	}
	return out
}

// Summarize computes the aggregate: count and the floored mean confidence
func Summarize(findings []Finding) Aggregate {
	if len(findings) == 0 {
		return Aggregate{}
	}
	var sum float64
	for _, f := range findings {
		sum += f.Confidence
	}
	return Aggregate{TotalCount: len(findings), AverageConfidence: int(sum / float64(len(findings)))}
}

// Tier buckets a confidence for display
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierLow       Tier = "low"
)

// TierOf returns the display tier for a confidence percentage
func TierOf(confidence float64) Tier {
	switch {
	case confidence >= 95:
		return TierExcellent
	case confidence >= 85:
		return TierGood
	case confidence >= 75:
		return TierFair
	default:
		return TierLow
	}
}
