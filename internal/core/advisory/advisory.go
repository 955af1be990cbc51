// Package advisory loads the embedded pest catalog and derives the treatment
// recommendations shown next to detection results
package advisory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"jagapadi/internal/core/normalize"
	"jagapadi/internal/core/record"
)

//go:embed catalog.json
var embedded []byte

// DefaultCap bounds the recommendation list
const DefaultCap = record.MaxRecommendations

type rawPest struct {
	Label           string   `json:"label"`
	Symptoms        []string `json:"symptoms"`
	Recommendations []string `json:"recommendations"`
}

type rawCatalog struct {
	Version int       `json:"version"`
	Base    []string  `json:"base"`
	Pests   []rawPest `json:"pests"`
}

// Pest is one catalog entry
type Pest struct {
	Label           string
	Symptoms        []string
	Recommendations []string
}

// Catalog is the compiled pest table. Lookups ignore case and accents
type Catalog struct {
	Version int
	Base    []string
	Pests   []Pest // catalog order

	byKey map[string]int
}

var (
	loadOnce sync.Once
	loaded   *Catalog
	loadErr  error
)

// Load returns the embedded catalog, parsed once
func Load() (*Catalog, error) {
	loadOnce.Do(func() { loaded, loadErr = Parse(embedded) })
	return loaded, loadErr
}

// MustLoad is Load for wiring code
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse compiles a catalog document
func Parse(b []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("advisory: decode catalog: %w", err)
	}
	if len(raw.Pests) == 0 {
		return nil, fmt.Errorf("advisory: catalog has no pests")
	}
	c := &Catalog{
		Version: raw.Version,
		Base:    append([]string(nil), raw.Base...),
		Pests:   make([]Pest, 0, len(raw.Pests)),
		byKey:   make(map[string]int, len(raw.Pests)),
	}
	for _, p := range raw.Pests {
		key := normalize.Key(p.Label)
		if key == "" {
			return nil, fmt.Errorf("advisory: pest with empty label")
		}
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("advisory: duplicate pest %q", p.Label)
		}
		c.byKey[key] = len(c.Pests)
		c.Pests = append(c.Pests, Pest{
			Label:           p.Label,
			Symptoms:        append([]string(nil), p.Symptoms...),
			Recommendations: append([]string(nil), p.Recommendations...),
		})
	}
	return c, nil
}

// Lookup finds a pest by label
func (c *Catalog) Lookup(label string) (Pest, bool) {
	i, ok := c.byKey[normalize.Key(label)]
	if !ok {
		return Pest{}, false
	}
	return c.Pests[i], true
}

// Labels returns the pest labels in catalog order
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.Pests))
	for i, p := range c.Pests {
		out[i] = p.Label
	}
	return out
}

// Recommend returns the base advice followed by advice for each detected label,
// first seen order, duplicates removed, truncated to limit (<=0 or above DefaultCap means DefaultCap).
// Unknown labels contribute nothing
func (c *Catalog) Recommend(findings []record.Finding, limit int) []string {
	if limit <= 0 || limit > DefaultCap {
		limit = DefaultCap
	}
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	add := func(s string) bool {
		if len(out) >= limit {
			return false
		}
		if _, dup := seen[s]; dup {
			return true
		}
		seen[s] = struct{}{}
		out = append(out, s)
		return true
	}
	for _, s := range c.Base {
		if !add(s) {
			return out
		}
	}
	for _, f := range findings {
		p, ok := c.Lookup(f.Label)
		if !ok {
			continue
		}
		for _, s := range p.Recommendations {
			if !add(s) {
				return out
			}
		}
	}
	return out
}

// Summarize is record.Summarize, re-exported next to Recommend
func Summarize(findings []record.Finding) record.Aggregate { return record.Summarize(findings) }
