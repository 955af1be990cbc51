package advisory

import (
	"math/rand/v2"
	"sync"

	"jagapadi/internal/core/record"
)

// Generator produces findings when the backend delivers an annotated image
// without a detection list. Swappable so a real inference source can replace the demo
type Generator interface {
	Findings() []record.Finding
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func() []record.Finding

// Findings implements Generator
func (f GeneratorFunc) Findings() []record.Finding { return f() }

// DemoGenerator yields 1 to 3 random catalog pests at 85 to 99 percent confidence.
// Its output is placeholder data, never inference
type DemoGenerator struct {
	catalog *Catalog

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewDemoGenerator uses rnd when given, otherwise a randomly seeded source
func NewDemoGenerator(c *Catalog, rnd *rand.Rand) *DemoGenerator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &DemoGenerator{catalog: c, rnd: rnd}
}

// Findings implements Generator
func (g *DemoGenerator) Findings() []record.Finding {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.rnd.IntN(3) + 1
	out := make([]record.Finding, 0, n)
	for range n {
		p := g.catalog.Pests[g.rnd.IntN(len(g.catalog.Pests))]
		out = append(out, record.Finding{Label: p.Label, Confidence: float64(g.rnd.IntN(15) + 85)})
	}
	return out
}
