package mask

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/residue/pkg/residue/catalog"
	"github.com/cognicore/residue/pkg/residue/corpus"
)

// Thresholds control the per-name flags. The zero value means
// DefaultThresholds; any other value is used as given.
type Thresholds struct {
	OverstripPct     float64
	ResidualMinLen   int
	AcronymMin       int
	AcronymMax       int
	HeavyScaffoldPct float64
	HeavyHits        int
	EnvConflictMin   int
}

// DefaultThresholds returns the stock flag thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OverstripPct:     0.8,
		ResidualMinLen:   3,
		AcronymMin:       3,
		AcronymMax:       4,
		HeavyScaffoldPct: 0.5,
		HeavyHits:        3,
		EnvConflictMin:   2,
	}
}

func (t Thresholds) orDefault() Thresholds {
	if t == (Thresholds{}) {
		return DefaultThresholds()
	}
	return t
}

func (e *Engine) measure(rec *Record) {
	th := e.thresholds
	rec.OrigLen = utf8.RuneCountInString(rec.ResourceName)
	rec.RemovedChars = rec.CharsRemoved.Total()
	rec.PctRemoved = float64(rec.RemovedChars) / float64(max(1, rec.OrigLen))
	rec.ResidualLen = utf8.RuneCountInString(rec.Residual)
	rec.EntropyOrig = Entropy(rec.ResourceName)
	rec.EntropyResid = Entropy(rec.Residual)

	rec.Overstrip = rec.PctRemoved > th.OverstripPct || rec.ResidualLen < th.ResidualMinLen
	rec.AcronymOnlyResidual = acronymOnly(rec.Residual, th.AcronymMin, th.AcronymMax)
	rec.HeavyScaffold = rec.PctRemoved >= th.HeavyScaffoldPct || rec.Hits.Total() >= th.HeavyHits
	rec.IsGlued = corpus.IsGlued(rec.ResourceName)

	if !rec.IsGlued {
		return
	}
	norm := catalog.Normalize(rec.ResourceName)
	rec.EmbeddedEnv = embeddedTerms(norm, e.envTerms, false)
	rec.EmbeddedTech = embeddedTerms(norm, e.techTerms, true)
	rec.EnvConflict = len(rec.EmbeddedEnv) >= th.EnvConflictMin
}

// Entropy is the Shannon entropy of the rune distribution in bits. It is
// zero for an empty string.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	// sum in rune order so the float result does not depend on map order
	runes := make([]rune, 0, len(counts))
	for r := range counts {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	h := 0.0
	for _, r := range runes {
		p := float64(counts[r]) / float64(total)
		h -= p * math.Log2(p)
	}
	if h < 0 {
		return 0
	}
	return h
}

// acronymOnly reports whether every ASCII letter run of length three or more
// has a length inside [lo, hi]. It is false when there is no such run.
func acronymOnly(s string, lo, hi int) bool {
	found := false
	run := 0
	check := func() bool {
		if run >= 3 {
			found = true
			if run < lo || run > hi {
				return false
			}
		}
		return true
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			run++
			continue
		}
		if !check() {
			return false
		}
		run = 0
	}
	if !check() {
		return false
	}
	return found
}

// embeddedTerms returns the distinct terms occurring in name, sorted. With
// needDigit set a term only counts when a digit follows it directly.
func embeddedTerms(name string, terms []string, needDigit bool) []string {
	var out []string
	for _, term := range terms {
		if term == "" {
			continue
		}
		if !needDigit {
			if strings.Contains(name, term) {
				out = append(out, term)
			}
			continue
		}
		for from := 0; from < len(name); {
			idx := strings.Index(name[from:], term)
			if idx < 0 {
				break
			}
			end := from + idx + len(term)
			if end < len(name) && name[end] >= '0' && name[end] <= '9' {
				out = append(out, term)
				break
			}
			from += idx + 1
		}
	}
	sort.Strings(out)
	return out
}
