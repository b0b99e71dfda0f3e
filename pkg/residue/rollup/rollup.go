// Package rollup aggregates per-name audit records into corpus summaries
// per scope.
package rollup

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/cognicore/residue/pkg/residue/catalog"
	"github.com/cognicore/residue/pkg/residue/glued"
	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/match"
)

// Scope kinds, in report order.
const (
	ScopeOverall        = "overall"
	ScopeSubAccount     = "sub_account"
	ScopeResourceGroup  = "resource_group"
	ScopeBillingAccount = "billing_account"
)

// TokenCount is a vocabulary term and how often it matched.
type TokenCount struct {
	Token string
	Count int
}

// Summary is the roll-up for one scope value.
type Summary struct {
	Scope string
	Key   string

	Resources int

	PctRemovedMean   float64
	PctRemovedMedian float64
	PctRemovedP90    float64

	ResidualLenMean   float64
	ResidualLenMedian float64
	ResidualLenP10    float64

	EntropyOrigMean    float64
	EntropyOrigMedian  float64
	EntropyResidMean   float64
	EntropyResidMedian float64

	OverstripRate     float64
	AcronymOnlyRate   float64
	HeavyScaffoldRate float64
	GluedRate         float64
	EnvConflictRate   float64

	// Nil when the scope has no glued names. The explained rate leaves out
	// names whose coverage check faulted.
	GluedExplainedRate *float64
	EmbeddedEnvRate    *float64

	TopTech []TokenCount
	TopEnv  []TokenCount
	TopReg  []TokenCount
}

// Builder computes summaries with a fixed vocabulary.
type Builder struct {
	Matchers  *match.Set
	TopTokens int
}

// Build summarizes the records overall and per sub account, resource group
// and billing account. Failed records are left out. coverage maps resource
// id to its glued result.
func (b *Builder) Build(records []mask.Record, coverage map[string]glued.Result) []Summary {
	var ok []mask.Record
	for _, r := range records {
		if !r.Failed {
			ok = append(ok, r)
		}
	}

	out := []Summary{b.summarize(ScopeOverall, "", ok, coverage)}
	keyed := []struct {
		scope string
		key   func(mask.Record) string
	}{
		{ScopeSubAccount, func(r mask.Record) string { return r.SubAccount }},
		{ScopeResourceGroup, func(r mask.Record) string { return r.ResourceGroup }},
		{ScopeBillingAccount, func(r mask.Record) string { return r.BillingAccount }},
	}
	for _, k := range keyed {
		groups := make(map[string][]mask.Record)
		for _, r := range ok {
			if key := k.key(r); key != "" {
				groups[key] = append(groups[key], r)
			}
		}
		keys := make([]string, 0, len(groups))
		for key := range groups {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			out = append(out, b.summarize(k.scope, key, groups[key], coverage))
		}
	}
	return out
}

func (b *Builder) summarize(scope, key string, recs []mask.Record, coverage map[string]glued.Result) Summary {
	s := Summary{Scope: scope, Key: key, Resources: len(recs)}
	if len(recs) == 0 {
		return s
	}
	pct := make([]float64, len(recs))
	resid := make([]float64, len(recs))
	eo := make([]float64, len(recs))
	er := make([]float64, len(recs))
	var overstrip, acronym, heavy, gluedN, conflict, swept, explained, embedded int
	for i, r := range recs {
		pct[i] = r.PctRemoved
		resid[i] = float64(r.ResidualLen)
		eo[i] = r.EntropyOrig
		er[i] = r.EntropyResid
		overstrip += boolInt(r.Overstrip)
		acronym += boolInt(r.AcronymOnlyResidual)
		heavy += boolInt(r.HeavyScaffold)
		conflict += boolInt(r.EnvConflict)
		if r.IsGlued {
			gluedN++
			embedded += boolInt(len(r.EmbeddedEnv) > 0)
			if res := coverage[r.ResourceID]; !res.Failed {
				swept++
				explained += boolInt(res.Explained)
			}
		}
	}
	n := float64(len(recs))
	s.PctRemovedMean, s.PctRemovedMedian, s.PctRemovedP90 = Mean(pct), Quantile(pct, 0.5), Quantile(pct, 0.9)
	s.ResidualLenMean, s.ResidualLenMedian, s.ResidualLenP10 = Mean(resid), Quantile(resid, 0.5), Quantile(resid, 0.1)
	s.EntropyOrigMean, s.EntropyOrigMedian = Mean(eo), Quantile(eo, 0.5)
	s.EntropyResidMean, s.EntropyResidMedian = Mean(er), Quantile(er, 0.5)
	s.OverstripRate = float64(overstrip) / n
	s.AcronymOnlyRate = float64(acronym) / n
	s.HeavyScaffoldRate = float64(heavy) / n
	s.GluedRate = float64(gluedN) / n
	s.EnvConflictRate = float64(conflict) / n
	if gluedN > 0 {
		ee := float64(embedded) / float64(gluedN)
		s.EmbeddedEnvRate = &ee
	}
	if swept > 0 {
		er := float64(explained) / float64(swept)
		s.GluedExplainedRate = &er
	}
	if b.Matchers != nil {
		s.TopTech = b.topTokens(match.TECH, recs)
		s.TopEnv = b.topTokens(match.ENV, recs)
		s.TopReg = b.topTokens(match.REG, recs)
	}
	return s
}

// topTokens counts bounded vocabulary matches over normalized names,
// ordered by count, then length, both descending, then token.
func (b *Builder) topTokens(class match.Class, recs []mask.Record) []TokenCount {
	m := b.Matchers.Get(class)
	counts := make(map[string]int)
	for _, r := range recs {
		runes := []rune(catalog.Normalize(r.ResourceName))
		for _, span := range m.FindAll(runes) {
			counts[string(runes[span[0]:span[1]])]++
		}
	}
	out := make([]TokenCount, 0, len(counts))
	for tok, c := range counts {
		out = append(out, TokenCount{Token: tok, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		li, lj := utf8.RuneCountInString(out[i].Token), utf8.RuneCountInString(out[j].Token)
		if li != lj {
			return li > lj
		}
		return out[i].Token < out[j].Token
	})
	if b.TopTokens > 0 && len(out) > b.TopTokens {
		out = out[:b.TopTokens]
	}
	return out
}

// Mean is the arithmetic mean, zero for no values.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Quantile interpolates linearly between the closest ranks.
func Quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	h := float64(len(sorted)-1) * q
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
