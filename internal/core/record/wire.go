package record

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	perr "jagapadi/internal/platform/errors"
)

// WireRecord is the JSON shape exchanged with the host and written to the kv store
type WireRecord struct {
	ID             string      `json:"id" validate:"required,max=128"`
	Filename       string      `json:"filename" validate:"max=512"`
	Timestamp      string      `json:"timestamp"`
	ResultImage    string      `json:"resultImage,omitempty"`
	Results        WireResults `json:"results"`
	ProcessingTime Seconds     `json:"processingTime"`
	Source         string      `json:"source,omitempty" validate:"provenance"`
}

// WireResults is the nested detection block
type WireResults struct {
	Detections      []WireFinding `json:"detections" validate:"dive"`
	TotalDetections *int          `json:"totalDetections,omitempty"`
	AvgConfidence   *float64      `json:"avgConfidence,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
}

// WireFinding is one detection on the wire
type WireFinding struct {
	Name       string  `json:"name" validate:"required,max=128"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=100"`
}

// Seconds accepts both 2.3 and "2.3" since older hosts send the formatted string
type Seconds float64

// UnmarshalJSON implements json.Unmarshaler
func (s *Seconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "s"))
		if str == "" {
			*s = 0
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return perr.Validationf("processingTime %q is not a number", str)
		}
		*s = Seconds(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = Seconds(v)
	return nil
}

// timestamp layouts seen from hosts: JS toISOString, Python isoformat with and without zone
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

const wireTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ParseTimestamp parses a wire timestamp; zoneless values are read in loc
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.Local
	}
	if s == "" {
		return time.Time{}, perr.WithField(perr.Validationf("timestamp is required"), "timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).In(loc), nil
	}
	return time.Time{}, perr.WithField(perr.Validationf("timestamp %q is not a recognized date", s), "timestamp")
}

// FromWire converts a wire record. totalDetections is always recomputed from the
// detection list; avgConfidence is taken from the wire when present (clamped) and
// derived otherwise. Recommendations are deduplicated and capped. Empty or
// unknown sources become def
func FromWire(w WireRecord, def Provenance, loc *time.Location) (Record, error) {
	at, err := ParseTimestamp(w.Timestamp, loc)
	if err != nil {
		return Record{}, err
	}

	findings := make([]Finding, 0, len(w.Results.Detections))
	for _, d := range w.Results.Detections {
		findings = append(findings, Finding{Label: strings.TrimSpace(d.Name), Confidence: d.Confidence})
	}
	agg := Summarize(findings)
	if w.Results.AvgConfidence != nil && len(findings) > 0 {
		agg.AverageConfidence = clampPercent(*w.Results.AvgConfidence)
	}

	prov := def
	if strings.TrimSpace(w.Source) != "" {
		prov = ParseProvenance(w.Source)
	}

	r := Record{
		ID:                strings.TrimSpace(w.ID),
		Filename:          w.Filename,
		CapturedAt:        at,
		ResultImage:       w.ResultImage,
		Findings:          findings,
		Aggregate:         agg,
		Recommendations:   CapRecommendations(w.Results.Recommendations, MaxRecommendations),
		ProcessingSeconds: float64(w.ProcessingTime),
		Provenance:        prov,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// ToWire converts a record to its wire shape
func (r Record) ToWire() WireRecord {
	dets := make([]WireFinding, len(r.Findings))
	for i, f := range r.Findings {
		dets[i] = WireFinding{Name: f.Label, Confidence: f.Confidence}
	}
	total := r.Aggregate.TotalCount
	avg := float64(r.Aggregate.AverageConfidence)
	recs := r.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return WireRecord{
		ID:          r.ID,
		Filename:    r.Filename,
		Timestamp:   r.CapturedAt.UTC().Format(wireTimeLayout),
		ResultImage: r.ResultImage,
		Results: WireResults{
			Detections:      dets,
			TotalDetections: &total,
			AvgConfidence:   &avg,
			Recommendations: recs,
		},
		ProcessingTime: Seconds(r.ProcessingSeconds),
		Source:         string(r.Provenance),
	}
}

// RoundSeconds rounds to one decimal the way processing time is displayed
func RoundSeconds(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return math.Round(d.Seconds()*10) / 10
}

func clampPercent(v float64) int {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(math.Round(v))
	}
}
