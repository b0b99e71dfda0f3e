// Package protect builds the protect set: recurring, high-signal substrings
// of delimited resource names ranked by frequency and by cost.
package protect

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/residue/pkg/residue/catalog"
	"github.com/cognicore/residue/pkg/residue/corpus"
)

// Entry is one row of a protect-set table.
type Entry struct {
	Chunk          string
	DisplayForm    string
	Length         int
	SupportNames   int
	SpreadSubs     int
	SpreadRGs      int
	TotalCost      float64
	CostPctOfTotal float64
	InFrequencySet bool
	InCostSet      bool
	SampleNames    []string
}

// Options tune set selection. The zero value means DefaultOptions.
type Options struct {
	MinSupport       int
	MaxSize          int
	CostThresholdPct float64
	SampleNames      int
}

// DefaultOptions returns the stock selection options.
func DefaultOptions() Options {
	return Options{MinSupport: 3, MaxSize: 500, CostThresholdPct: 0.01, SampleNames: 2}
}

func (o Options) orDefault() Options {
	if o == (Options{}) {
		return DefaultOptions()
	}
	return o
}

// Tables is the output of Build.
type Tables struct {
	Frequency  []Entry
	Cost       []Entry
	Combined   []Entry
	CorpusCost float64
}

// Span is a candidate substring extracted from a name.
type Span struct {
	Chunk string
	Raw   string
}

// Spans returns every maximal ASCII letter run of length three or more in
// the delimiter-separated segments of the NFKC form of name, minus catalog
// vocabulary.
func Spans(name string, cat *catalog.Catalog) []Span {
	name = norm.NFKC.String(name)
	var out []Span
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		raw := name[start:end]
		start = -1
		if len(raw) < 3 {
			return
		}
		chunk := catalog.Normalize(raw)
		if cat.IsExcluded(chunk) {
			return
		}
		out = append(out, Span{Chunk: chunk, Raw: raw})
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(name))
	return out
}

type aggregate struct {
	ids      map[string]struct{}
	subs     map[string]struct{}
	rgs      map[string]struct{}
	variants map[string]int
	names    map[string]struct{}
	cost     float64
}

// Build aggregates spans across the delimited rows of the corpus and derives
// the frequency, cost and combined tables.
func Build(rows []corpus.Row, cat *catalog.Catalog, opts Options) Tables {
	opts = opts.orDefault()
	var tables Tables
	aggs := make(map[string]*aggregate)

	for _, row := range rows {
		tables.CorpusCost += row.Cost
		if !corpus.HasDelimiter(row.ResourceName) {
			continue
		}
		seen := make(map[string]bool)
		for _, sp := range Spans(row.ResourceName, cat) {
			agg, ok := aggs[sp.Chunk]
			if !ok {
				agg = &aggregate{
					ids:      make(map[string]struct{}),
					subs:     make(map[string]struct{}),
					rgs:      make(map[string]struct{}),
					variants: make(map[string]int),
					names:    make(map[string]struct{}),
				}
				aggs[sp.Chunk] = agg
			}
			agg.variants[sp.Raw]++
			if seen[sp.Chunk] {
				continue
			}
			seen[sp.Chunk] = true
			agg.ids[row.ResourceID] = struct{}{}
			agg.names[row.ResourceName] = struct{}{}
			if row.SubAccount != "" {
				agg.subs[row.SubAccount] = struct{}{}
			}
			if row.ResourceGroup != "" {
				agg.rgs[row.ResourceGroup] = struct{}{}
			}
			agg.cost += row.Cost
		}
	}

	all := make([]Entry, 0, len(aggs))
	for chunk, agg := range aggs {
		all = append(all, Entry{
			Chunk:        chunk,
			DisplayForm:  DisplayForm(agg.variants),
			Length:       utf8.RuneCountInString(chunk),
			SupportNames: len(agg.ids),
			SpreadSubs:   len(agg.subs),
			SpreadRGs:    len(agg.rgs),
			TotalCost:    agg.cost,
			SampleNames:  smallest(agg.names, opts.SampleNames),
		})
	}

	tables.Frequency = frequencySet(all, opts)
	tables.Cost = costSet(all, tables.CorpusCost, opts)
	tables.Combined = combine(tables.Frequency, tables.Cost)
	return tables
}

func frequencySet(all []Entry, opts Options) []Entry {
	var out []Entry
	for _, e := range all {
		if e.SupportNames < opts.MinSupport {
			continue
		}
		e.TotalCost = 0
		e.InFrequencySet = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Length != b.Length {
			return a.Length > b.Length
		}
		if a.SupportNames != b.SupportNames {
			return a.SupportNames > b.SupportNames
		}
		return a.Chunk < b.Chunk
	})
	if len(out) > opts.MaxSize {
		out = out[:opts.MaxSize]
	}
	return out
}

func costSet(all []Entry, corpusCost float64, opts Options) []Entry {
	if corpusCost <= 0 {
		return nil
	}
	var out []Entry
	for _, e := range all {
		pct := e.TotalCost / corpusCost
		if pct < opts.CostThresholdPct {
			continue
		}
		e.CostPctOfTotal = pct
		e.InCostSet = true
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCost != out[j].TotalCost {
			return out[i].TotalCost > out[j].TotalCost
		}
		return out[i].Chunk < out[j].Chunk
	})
	return out
}

// combine outer-joins the two sets on chunk. Cost fields come from the cost
// set and are zero for frequency-only chunks.
func combine(freq, cost []Entry) []Entry {
	byChunk := make(map[string]*Entry, len(freq)+len(cost))
	var order []string
	for _, e := range freq {
		e := e
		byChunk[e.Chunk] = &e
		order = append(order, e.Chunk)
	}
	for _, e := range cost {
		if existing, ok := byChunk[e.Chunk]; ok {
			existing.InCostSet = true
			existing.TotalCost = e.TotalCost
			existing.CostPctOfTotal = e.CostPctOfTotal
			continue
		}
		e := e
		byChunk[e.Chunk] = &e
		order = append(order, e.Chunk)
	}
	out := make([]Entry, 0, len(order))
	for _, chunk := range order {
		out = append(out, *byChunk[chunk])
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SupportNames != b.SupportNames {
			return a.SupportNames > b.SupportNames
		}
		if a.TotalCost != b.TotalCost {
			return a.TotalCost > b.TotalCost
		}
		return a.Chunk < b.Chunk
	})
	return out
}

// DisplayForm picks the most frequent raw variant. Ties prefer the smallest
// all-lowercase variant, then the smallest title-case one, then the smallest
// overall.
func DisplayForm(variants map[string]int) string {
	best := 0
	for _, n := range variants {
		if n > best {
			best = n
		}
	}
	var tied []string
	for v, n := range variants {
		if n == best {
			tied = append(tied, v)
		}
	}
	if len(tied) == 0 {
		return ""
	}
	sort.Strings(tied)
	for _, v := range tied {
		if v == strings.ToLower(v) {
			return v
		}
	}
	for _, v := range tied {
		if isTitle(v) {
			return v
		}
	}
	return tied[0]
}

func isTitle(s string) bool {
	if s == "" {
		return false
	}
	first, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(first)) == string(first) && s[size:] == strings.ToLower(s[size:])
}

func smallest(set map[string]struct{}, n int) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}
