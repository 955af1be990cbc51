package service

import (
	"math"
	"strconv"
	"time"

	"jagapadi/internal/core/normalize"
	"jagapadi/internal/core/record"
	perr "jagapadi/internal/platform/errors"
	ptime "jagapadi/internal/platform/time"
	dom "jagapadi/internal/services/history/domain"
)

var months = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// TodayStats sums today's detections and averages their confidence
func (s *Service) TodayStats() dom.Stats {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st dom.Stats
	n, sum := 0, 0
	for _, r := range s.recs {
		if !ptime.SameDay(r.CapturedAt, now, s.cfg.Location) {
			continue
		}
		n++
		st.TotalDetections += r.Aggregate.TotalCount
		sum += r.Aggregate.AverageConfidence
	}
	if n > 0 {
		st.AverageConfidence = int(math.Round(float64(sum) / float64(n)))
	}
	return st
}

// Search matches q against file names and finding labels, ignoring case and
// accents. A blank query returns everything
func (s *Service) Search(q string) []record.Record {
	m := normalize.NewMatcher(q)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m.Empty() {
		return cloneAll(s.recs)
	}
	out := []record.Record{}
	for _, r := range s.recs {
		if m.Match(append([]string{r.Filename}, r.Labels()...)...) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// ByDate returns records captured on day's calendar date
func (s *Service) ByDate(day time.Time) []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []record.Record{}
	for _, r := range s.recs {
		if ptime.SameDay(r.CapturedAt, day, s.cfg.Location) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// ByDay is ByDate for a 2006-01-02 string
func (s *Service) ByDay(day string) ([]record.Record, error) {
	d, err := ptime.ParseDay(day, s.cfg.Location)
	if err != nil {
		return nil, perr.InvalidArgf("tanggal %q tidak valid, gunakan YYYY-MM-DD", day)
	}
	return s.ByDate(d), nil
}

// Groups splits the history per calendar day in display order
func (s *Service) Groups() []dom.Group {
	now := s.clock.Now()
	loc := s.cfg.Location
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []dom.Group
	for _, r := range s.recs {
		key := r.CapturedAt.In(loc).Format(time.DateOnly)
		if len(out) == 0 || out[len(out)-1].Day != key {
			out = append(out, dom.Group{Day: key, Label: dayLabel(r.CapturedAt, now, loc)})
		}
		g := &out[len(out)-1]
		g.Records = append(g.Records, r.Clone())
	}
	return out
}

func dayLabel(t, now time.Time, loc *time.Location) string {
	switch {
	case ptime.SameDay(t, now, loc):
		return "Hari Ini"
	case ptime.SameDay(t, now.AddDate(0, 0, -1), loc):
		return "Kemarin"
	}
	lt := t.In(loc)
	return strconv.Itoa(lt.Day()) + " " + months[lt.Month()-1]
}
