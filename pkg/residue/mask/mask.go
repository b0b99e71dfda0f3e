// Package mask runs the scaffold masking cascade over resource names and
// derives per-name metrics from the result.
package mask

import (
	"strings"

	"github.com/cognicore/residue/pkg/residue/catalog"
	"github.com/cognicore/residue/pkg/residue/corpus"
	"github.com/cognicore/residue/pkg/residue/match"
)

// Counts holds one counter per match class.
type Counts [match.NumClasses]int

// Get returns the counter for a class.
func (c Counts) Get(class match.Class) int { return c[class] }

// Total sums every class counter.
func (c Counts) Total() int {
	total := 0
	for _, v := range c {
		total += v
	}
	return total
}

// Record is the masking outcome for one input row.
type Record struct {
	ResourceID     string
	ResourceName   string
	SubAccount     string
	ResourceGroup  string
	BillingAccount string
	Cost           float64

	MaskedName   string
	Residual     string
	Hits         Counts
	CharsRemoved Counts

	OrigLen      int
	ResidualLen  int
	RemovedChars int
	PctRemoved   float64
	EntropyOrig  float64
	EntropyResid float64

	Overstrip           bool
	AcronymOnlyResidual bool
	HeavyScaffold       bool
	IsGlued             bool
	EnvConflict         bool

	EmbeddedEnv  []string
	EmbeddedTech []string

	// Failed marks a row whose processing faulted; Error carries the cause.
	Failed bool
	Error  string
}

// Engine applies the cascade with a fixed catalog and thresholds. It holds
// no mutable state and is safe for concurrent use.
type Engine struct {
	matchers   *match.Set
	thresholds Thresholds
	envTerms   []string
	techTerms  []string
}

// NewEngine builds an engine over a compiled matcher set.
func NewEngine(cat *catalog.Catalog, matchers *match.Set, th Thresholds) *Engine {
	if matchers == nil {
		matchers = match.Compile(cat)
	}
	return &Engine{
		matchers:   matchers,
		thresholds: th.orDefault(),
		envTerms:   cat.Terms(catalog.Env),
		techTerms:  cat.Terms(catalog.Tech),
	}
}

// MaskRow masks the row's resource name and carries the row identity onto
// the record.
func (e *Engine) MaskRow(row corpus.Row) Record {
	rec := e.Mask(row.ResourceName)
	rec.ResourceID = row.ResourceID
	rec.SubAccount = row.SubAccount
	rec.ResourceGroup = row.ResourceGroup
	rec.BillingAccount = row.BillingAccount
	rec.Cost = row.Cost
	return rec
}

// Mask runs the cascade over a single name. It never fails; an empty name
// yields a zero-valued record with only threshold flags evaluated.
func (e *Engine) Mask(name string) Record {
	rec := Record{ResourceName: name}
	segs := splitPlaceholders([]rune(name))
	for _, class := range match.CascadeOrder {
		segs = e.pass(segs, class, &rec)
	}
	rec.MaskedName = render(segs)
	rec.Residual = residual(segs)
	e.measure(&rec)
	return rec
}

// segment is either plain text or an opaque placeholder.
type segment struct {
	text        []rune
	placeholder bool
	class       match.Class
	literal     string
}

func (s segment) String() string {
	if s.placeholder {
		if s.literal != "" {
			return s.literal
		}
		return s.class.Placeholder()
	}
	return string(s.text)
}

// pass replaces every bounded match of one class inside the text segments.
func (e *Engine) pass(segs []segment, class match.Class, rec *Record) []segment {
	m := e.matchers.Get(class)
	out := make([]segment, 0, len(segs))
	for k, seg := range segs {
		if seg.placeholder {
			out = append(out, seg)
			continue
		}
		// Digits may trail a TECH hit; passes that run before TECH never see
		// that junction, so it does not count as a boundary for them.
		glued := k > 0 && segs[k-1].placeholder && segs[k-1].class == match.TECH && class <= match.TECH
		text := seg.text
		last := 0
		for i := 0; i < len(text); {
			if i == 0 && glued {
				i++
				continue
			}
			n := m.Bounded(text, i)
			if n == 0 {
				i++
				continue
			}
			if i > last {
				out = append(out, segment{text: text[last:i]})
			}
			out = append(out, segment{placeholder: true, class: class})
			rec.Hits[class]++
			rec.CharsRemoved[class] += n
			i += n
			last = i
		}
		if last < len(text) {
			out = append(out, segment{text: text[last:]})
		}
	}
	return out
}

// splitPlaceholders lifts placeholders already present in the input into
// opaque segments so a second run leaves them alone.
func splitPlaceholders(r []rune) []segment {
	mark := []rune(match.PlaceholderMark)[0]
	var segs []segment
	last := 0
	for i := 0; i < len(r); i++ {
		if r[i] != mark {
			continue
		}
		end := -1
		for j := i + 1; j < len(r); j++ {
			if r[j] == mark {
				end = j
				break
			}
		}
		if end < 0 {
			break
		}
		class, ok := match.ParseClass(string(r[i+1 : end]))
		if !ok {
			continue
		}
		if i > last {
			segs = append(segs, segment{text: r[last:i]})
		}
		segs = append(segs, segment{placeholder: true, class: class, literal: string(r[i : end+1])})
		i = end
		last = end + 1
	}
	if last < len(r) {
		segs = append(segs, segment{text: r[last:]})
	}
	return segs
}

func render(segs []segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.String())
	}
	return b.String()
}

// StripPlaceholders removes every class placeholder from a masked name and
// leaves the remaining characters untouched.
func StripPlaceholders(masked string) string {
	for _, c := range match.Classes {
		masked = strings.ReplaceAll(masked, c.Placeholder(), "")
	}
	return masked
}

// residual drops placeholders, collapses delimiter runs to a dash and trims
// dashes and underscores from both ends.
func residual(segs []segment) string {
	var b strings.Builder
	inDelim := false
	for _, s := range segs {
		if s.placeholder {
			continue
		}
		for _, r := range s.text {
			if corpus.IsDelimiter(r) {
				if !inDelim {
					b.WriteByte('-')
				}
				inDelim = true
				continue
			}
			inDelim = false
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_")
}
