package protect

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/residue/pkg/residue/catalog"
	"github.com/cognicore/residue/pkg/residue/corpus"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]string{"api", "web"}, []string{"prod", "dev"}, nil)
}

func testRows() []corpus.Row {
	return []corpus.Row{
		{ResourceID: "r1", ResourceName: "billing-api-prod", SubAccount: "s1", ResourceGroup: "g1", Cost: 10},
		{ResourceID: "r2", ResourceName: "Billing-web-dev", SubAccount: "s1", ResourceGroup: "g2", Cost: 20},
		{ResourceID: "r3", ResourceName: "billing_worker", SubAccount: "s2", ResourceGroup: "g1", Cost: 30},
		{ResourceID: "r4", ResourceName: "crm-prod-01", SubAccount: "s2", ResourceGroup: "g3", Cost: 1000},
		{ResourceID: "r5", ResourceName: "billingsvc", SubAccount: "s1", ResourceGroup: "g1", Cost: 5},
		{ResourceID: "r6", ResourceName: "crm.etl", SubAccount: "s1", ResourceGroup: "g1", Cost: 1},
	}
}

func TestSpans(t *testing.T) {
	got := Spans("Billing-web-dev_x9ab.worker2", testCatalog())
	want := []Span{{Chunk: "billing", Raw: "Billing"}, {Chunk: "worker", Raw: "worker"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("spans mismatch (-want +got):\n%s", diff)
	}
}

func TestSpansUseCompatibilityForm(t *testing.T) {
	// Full-width letters fold to ASCII before extraction.
	got := Spans("\uff22\uff49\uff4c\uff4c\uff49\uff4e\uff47-\uff41\uff50\uff49", testCatalog())
	want := []Span{{Chunk: "billing", Raw: "Billing"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("spans mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFrequencySet(t *testing.T) {
	tables := Build(testRows(), testCatalog(), DefaultOptions())

	if len(tables.Frequency) != 1 {
		t.Fatalf("expected one frequency entry, got %+v", tables.Frequency)
	}
	got := tables.Frequency[0]
	want := Entry{
		Chunk:          "billing",
		DisplayForm:    "billing",
		Length:         7,
		SupportNames:   3,
		SpreadSubs:     2,
		SpreadRGs:      2,
		InFrequencySet: true,
		SampleNames:    []string{"Billing-web-dev", "billing-api-prod"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("frequency entry mismatch (-want +got):\n%s", diff)
	}
	if tables.CorpusCost != 1066 {
		t.Fatalf("corpus cost = %v", tables.CorpusCost)
	}
}

func TestBuildCostSet(t *testing.T) {
	tables := Build(testRows(), testCatalog(), DefaultOptions())

	var chunks []string
	for _, e := range tables.Cost {
		chunks = append(chunks, e.Chunk)
		if !e.InCostSet {
			t.Fatalf("%s not marked as cost entry", e.Chunk)
		}
	}
	if diff := cmp.Diff([]string{"crm", "billing", "worker"}, chunks); diff != "" {
		t.Fatalf("cost order mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(tables.Cost[1].CostPctOfTotal-60.0/1066.0) > 1e-12 {
		t.Fatalf("billing pct = %v", tables.Cost[1].CostPctOfTotal)
	}
}

func TestBuildCombined(t *testing.T) {
	tables := Build(testRows(), testCatalog(), DefaultOptions())

	var chunks []string
	for _, e := range tables.Combined {
		chunks = append(chunks, e.Chunk)
	}
	if diff := cmp.Diff([]string{"billing", "crm", "worker"}, chunks); diff != "" {
		t.Fatalf("combined order mismatch (-want +got):\n%s", diff)
	}
	billing := tables.Combined[0]
	if !billing.InFrequencySet || !billing.InCostSet || billing.TotalCost != 60 {
		t.Fatalf("billing combined entry: %+v", billing)
	}
	crm := tables.Combined[1]
	if crm.InFrequencySet || !crm.InCostSet || crm.SupportNames != 2 {
		t.Fatalf("crm combined entry: %+v", crm)
	}
}

func TestFrequencyOrderAndCap(t *testing.T) {
	opts := DefaultOptions()
	opts.MinSupport = 1
	opts.MaxSize = 2
	tables := Build(testRows(), testCatalog(), opts)

	var chunks []string
	for _, e := range tables.Frequency {
		chunks = append(chunks, e.Chunk)
	}
	if diff := cmp.Diff([]string{"billing", "worker"}, chunks); diff != "" {
		t.Fatalf("frequency order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildEmptyAndUndelimited(t *testing.T) {
	tables := Build(nil, testCatalog(), DefaultOptions())
	if len(tables.Frequency) != 0 || len(tables.Cost) != 0 || len(tables.Combined) != 0 {
		t.Fatalf("expected empty tables, got %+v", tables)
	}
	tables = Build([]corpus.Row{{ResourceID: "a", ResourceName: "billingsvc", Cost: 0}}, testCatalog(), DefaultOptions())
	if len(tables.Frequency) != 0 || tables.Cost != nil {
		t.Fatalf("glued-only corpus should yield no spans, got %+v", tables)
	}
}

func TestDisplayForm(t *testing.T) {
	cases := []struct {
		variants map[string]int
		want     string
	}{
		{map[string]int{"Foo": 1, "foo": 2, "FOO": 1}, "foo"},
		{map[string]int{"Foo": 1, "foo": 1}, "foo"},
		{map[string]int{"Foo": 1, "FOO": 1}, "Foo"},
		{map[string]int{"FOO": 1, "FoO": 1}, "FOO"},
		{map[string]int{"BAR": 3, "bar": 1}, "BAR"},
	}
	for _, tc := range cases {
		if got := DisplayForm(tc.variants); got != tc.want {
			t.Fatalf("DisplayForm(%v) = %q, want %q", tc.variants, got, tc.want)
		}
	}
}

func TestFreeze(t *testing.T) {
	set := Freeze([]Entry{{Chunk: "crm"}, {Chunk: "billing"}, {Chunk: "worker"}, {Chunk: "etl"}, {Chunk: "crm"}})
	if diff := cmp.Diff([]string{"billing", "worker", "crm", "etl"}, set.Chunks()); diff != "" {
		t.Fatalf("frozen order mismatch (-want +got):\n%s", diff)
	}
	if !set.ContainedIn("MyBillingThing") || set.ContainedIn("abc") {
		t.Fatal("ContainedIn mismatch")
	}
}
