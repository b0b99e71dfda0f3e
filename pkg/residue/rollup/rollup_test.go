package rollup

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/residue/pkg/residue/catalog"
	"github.com/cognicore/residue/pkg/residue/corpus"
	"github.com/cognicore/residue/pkg/residue/glued"
	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/match"
)

func TestQuantileAndMean(t *testing.T) {
	xs := []float64{4, 1, 3, 2}
	cases := map[float64]float64{0.5: 2.5, 0.9: 3.7, 0.1: 1.3, 0: 1, 1: 4}
	for q, want := range cases {
		if got := Quantile(xs, q); math.Abs(got-want) > 1e-9 {
			t.Fatalf("Quantile(%v) = %v, want %v", q, got, want)
		}
	}
	if Mean(xs) != 2.5 || Mean(nil) != 0 || Quantile(nil, 0.5) != 0 {
		t.Fatal("mean or empty quantile mismatch")
	}
	if xs[0] != 4 {
		t.Fatal("Quantile mutated its input")
	}
}

func TestBuildScopes(t *testing.T) {
	cat := catalog.New([]string{"sql", "api"}, []string{"prod", "dev"}, nil)
	matchers := match.Compile(cat)
	engine := mask.NewEngine(cat, matchers, mask.Thresholds{})

	records := []mask.Record{
		engine.MaskRow(corpus.Row{ResourceID: "a", ResourceName: "app-prod-01", SubAccount: "s1", ResourceGroup: "g1"}),
		engine.MaskRow(corpus.Row{ResourceID: "b", ResourceName: "sql2019", SubAccount: "s1", ResourceGroup: "g2"}),
		engine.MaskRow(corpus.Row{ResourceID: "c", ResourceName: "proddevapp", SubAccount: "s2", ResourceGroup: "g1"}),
		{ResourceID: "d", ResourceName: "broken", SubAccount: "s3", Failed: true},
	}
	coverage := map[string]glued.Result{
		"b": {ResourceID: "b", Explained: true},
		"c": {ResourceID: "c"},
	}

	b := Builder{Matchers: matchers, TopTokens: 10}
	sums := b.Build(records, coverage)

	var scopes []string
	for _, s := range sums {
		scopes = append(scopes, s.Scope+"/"+s.Key)
	}
	want := []string{"overall/", "sub_account/s1", "sub_account/s2", "resource_group/g1", "resource_group/g2"}
	if diff := cmp.Diff(want, scopes); diff != "" {
		t.Fatalf("scopes mismatch (-want +got):\n%s", diff)
	}

	overall := sums[0]
	if overall.Resources != 3 {
		t.Fatalf("resources = %d", overall.Resources)
	}
	if math.Abs(overall.GluedRate-2.0/3.0) > 1e-9 {
		t.Fatalf("glued rate = %v", overall.GluedRate)
	}
	if overall.GluedExplainedRate == nil || *overall.GluedExplainedRate != 0.5 {
		t.Fatalf("glued explained rate = %v", overall.GluedExplainedRate)
	}
	if overall.EmbeddedEnvRate == nil || *overall.EmbeddedEnvRate != 0.5 {
		t.Fatalf("embedded env rate = %v", overall.EmbeddedEnvRate)
	}
	if diff := cmp.Diff([]TokenCount{{Token: "prod", Count: 1}}, overall.TopEnv); diff != "" {
		t.Fatalf("top env mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]TokenCount{{Token: "sql", Count: 1}}, overall.TopTech); diff != "" {
		t.Fatalf("top tech mismatch (-want +got):\n%s", diff)
	}

	g1 := sums[3]
	if g1.GluedExplainedRate == nil || *g1.GluedExplainedRate != 0 {
		t.Fatalf("g1 glued explained rate = %v", g1.GluedExplainedRate)
	}
	s2 := sums[2]
	if s2.Resources != 1 || s2.EnvConflictRate != 1 {
		t.Fatalf("s2 summary = %+v", s2)
	}
}

func TestNoGluedNamesLeavesRatesNil(t *testing.T) {
	engine := mask.NewEngine(catalog.Empty(), nil, mask.Thresholds{})
	b := Builder{}
	sums := b.Build([]mask.Record{engine.Mask("app-web")}, nil)
	if len(sums) != 1 || sums[0].GluedExplainedRate != nil || sums[0].EmbeddedEnvRate != nil {
		t.Fatalf("unexpected summaries %+v", sums)
	}
}

func TestTopTokensOrdering(t *testing.T) {
	cat := catalog.New(nil, []string{"dev", "prod", "qa", "uat"}, nil)
	engine := mask.NewEngine(cat, nil, mask.Thresholds{})
	var recs []mask.Record
	for _, n := range []string{"a-dev", "b-uat", "c-prod", "d-qa", "e-dev"} {
		recs = append(recs, engine.Mask(n))
	}
	b := Builder{Matchers: match.Compile(cat), TopTokens: 3}
	got := b.Build(recs, nil)[0].TopEnv
	want := []TokenCount{{"dev", 2}, {"prod", 1}, {"uat", 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("top tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedCoverageLeftOutOfExplainedRate(t *testing.T) {
	engine := mask.NewEngine(catalog.Empty(), nil, mask.Thresholds{})
	records := []mask.Record{
		engine.MaskRow(corpus.Row{ResourceID: "a", ResourceName: "alpha"}),
		engine.MaskRow(corpus.Row{ResourceID: "b", ResourceName: "beta"}),
	}

	b := Builder{}
	sums := b.Build(records, map[string]glued.Result{
		"a": {ResourceID: "a", Explained: true},
		"b": {ResourceID: "b", Failed: true, Error: "row 1: panic: boom"},
	})
	overall := sums[0]
	if overall.GluedExplainedRate == nil || *overall.GluedExplainedRate != 1 {
		t.Fatalf("glued explained rate = %v", overall.GluedExplainedRate)
	}
	if overall.EmbeddedEnvRate == nil || *overall.EmbeddedEnvRate != 0 {
		t.Fatalf("embedded env rate = %v", overall.EmbeddedEnvRate)
	}

	sums = b.Build(records[1:], map[string]glued.Result{"b": {ResourceID: "b", Failed: true}})
	if sums[0].GluedExplainedRate != nil {
		t.Fatalf("only failed coverage should leave the rate nil, got %v", *sums[0].GluedExplainedRate)
	}
}
