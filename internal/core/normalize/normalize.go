// Package normalize builds comparison keys for history search
// Pipeline order
// 1 UTF-8 repair, drop invalid bytes
// 2 Unicode NFKD decomposition so accents become separate marks
// 3 Case folding
// 4 Remove combining marks and format characters (zero widths, BOM)
// 5 Width fold fullwidth forms to ASCII
// 6 Collapse whitespace to single spaces and trim
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// chains are stateful, so each caller borrows its own
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
			norm.NFC,
		)
	},
}

// Key returns the search key of s. Two strings a user would call "the same
// word" (Wereng vs WERENG, Walang Sangit vs walang  sangit, Penggerek vs
// Pénggerek) produce the same key
func Key(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		// transformer failures only happen on pathological input; fall back to plain lower
		ns = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(ns), " ")
}

// Matcher holds a normalized query for repeated matching against many fields
type Matcher struct {
	q string
}

// NewMatcher normalizes q once
func NewMatcher(q string) Matcher { return Matcher{q: Key(q)} }

// Empty reports whether the query is blank after normalization
func (m Matcher) Empty() bool { return m.q == "" }

// Match reports whether any field contains the query. An empty query matches everything
func (m Matcher) Match(fields ...string) bool {
	if m.q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(Key(f), m.q) {
			return true
		}
	}
	return false
}
