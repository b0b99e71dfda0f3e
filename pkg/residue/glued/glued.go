// Package glued decides whether delimiter-free resource names can be fully
// explained by protect chunks plus the scaffold classes.
package glued

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/residue/pkg/residue/match"
	"github.com/cognicore/residue/pkg/residue/protect"
)

// ProtectTagPrefix marks coverage segments produced by protect chunks.
const ProtectTagPrefix = "P:"

// Segment is a covered span [Start, End) in runes of the normalized name.
type Segment struct {
	Tag   string
	Start int
	End   int
}

// Result is the coverage verdict for one name.
type Result struct {
	ResourceID    string
	Name          string
	Explained     bool
	Skipped       bool
	ProtectedHits []Segment
	Coverage      []Segment
	FailOffset    *int
	Masked        string

	// Failed marks a name whose analysis faulted; Error carries the cause.
	Failed bool
	Error  string
}

// Analyzer runs the two-step coverage check against a frozen protect set.
// It is read-only after construction and safe for concurrent use.
type Analyzer struct {
	chunks   [][]rune
	matchers *match.Set
	// SweepUnprotected lets names with no protect hits go through the
	// class sweep instead of being reported unexplained.
	SweepUnprotected bool
}

// NewAnalyzer binds the analyzer to a frozen protect set and compiled
// matchers.
func NewAnalyzer(set *protect.Set, matchers *match.Set, sweepUnprotected bool) *Analyzer {
	a := &Analyzer{matchers: matchers, SweepUnprotected: sweepUnprotected}
	for _, c := range set.Chunks() {
		a.chunks = append(a.chunks, []rune(c))
	}
	return a
}

// Analyze computes coverage for a single glued name.
func (a *Analyzer) Analyze(resourceID, name string) Result {
	name = norm.NFKC.String(name)
	runes := []rune(name)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	res := Result{ResourceID: resourceID, Name: name}
	covered := make([]bool, len(runes))

	res.ProtectedHits = a.overlay(lower, covered)
	if len(res.ProtectedHits) == 0 && !a.SweepUnprotected {
		res.Skipped = true
		return res
	}

	swept, fail := a.sweep(runes, covered)
	res.Coverage = mergeByStart(res.ProtectedHits, swept)
	if fail >= 0 {
		res.FailOffset = &fail
		return res
	}
	res.Explained = true
	res.Masked = render(runes, res.Coverage)
	return res
}

// overlay accepts every chunk occurrence that does not touch an already
// covered position, longest chunks first.
func (a *Analyzer) overlay(lower []rune, covered []bool) []Segment {
	var hits []Segment
	for _, chunk := range a.chunks {
		n := len(chunk)
		if n == 0 {
			continue
		}
		for start := 0; start+n <= len(lower); start++ {
			if !equalRunes(lower[start:start+n], chunk) || anyCovered(covered[start:start+n]) {
				continue
			}
			for k := start; k < start+n; k++ {
				covered[k] = true
			}
			hits = append(hits, Segment{Tag: ProtectTagPrefix + string(chunk), Start: start, End: start + n})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Start < hits[j].Start })
	return hits
}

// sweep walks the uncovered positions left to right. It returns the class
// segments found and the first offset nothing matched, or -1.
func (a *Analyzer) sweep(runes []rune, covered []bool) ([]Segment, int) {
	var segs []Segment
	for i := 0; i < len(runes); {
		if covered[i] || unicode.IsSpace(runes[i]) {
			i++
			continue
		}
		limit := i
		for limit < len(runes) && !covered[limit] && !unicode.IsSpace(runes[limit]) {
			limit++
		}
		class, n := a.matchers.Longest(match.CoverageOrder, runes, i, limit)
		if n == 0 {
			return segs, i
		}
		segs = append(segs, Segment{Tag: class.String(), Start: i, End: i + n})
		i += n
	}
	return segs, -1
}

func mergeByStart(a, b []Segment) []Segment {
	out := make([]Segment, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// render replaces every covered span with its placeholder and keeps the
// uncovered whitespace between them.
func render(runes []rune, segs []Segment) string {
	var b strings.Builder
	pos := 0
	for _, s := range segs {
		if s.Start > pos {
			b.WriteString(string(runes[pos:s.Start]))
		}
		b.WriteString(match.PlaceholderMark + s.Tag + match.PlaceholderMark)
		pos = s.End
	}
	if pos < len(runes) {
		b.WriteString(string(runes[pos:]))
	}
	return b.String()
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func anyCovered(c []bool) bool {
	for _, v := range c {
		if v {
			return true
		}
	}
	return false
}
