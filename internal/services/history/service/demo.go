package service

import (
	"fmt"
	"math/rand/v2"
	"time"

	"jagapadi/internal/core/record"
)

var demoPests = []string{"wereng", "bercak coklat", "penggerek batang", "walang sangit"}

var demoAdvice = []string{
	"Aplikasikan treatment sesuai anjuran",
	"Pantau perkembangan setiap 2-3 hari",
}

// demoRecords builds the three placeholders a first run shows, 2, 4 and 6
// hours before now. They are never sent anywhere and vanish on the first merge
func demoRecords(now time.Time) []record.Record {
	out := make([]record.Record, 0, 3)
	for i := range 3 {
		conf := float64(rand.IntN(15) + 85)
		findings := []record.Finding{{Label: demoPests[rand.IntN(len(demoPests))], Confidence: conf}}
		out = append(out, record.Record{
			ID:                fmt.Sprintf("demo_%d_%d", now.UnixMilli(), i),
			Filename:          fmt.Sprintf("demo_image_%d.jpg", i+1),
			CapturedAt:        now.Add(-time.Duration(i+1) * 2 * time.Hour),
			ResultImage:       "/placeholder-image.jpg",
			Findings:          findings,
			Aggregate:         record.Summarize(findings),
			Recommendations:   append([]string(nil), demoAdvice...),
			ProcessingSeconds: record.RoundSeconds(time.Duration((rand.Float64()*3 + 1) * float64(time.Second))),
			Provenance:        record.ProvenanceDemo,
		})
	}
	return out
}
