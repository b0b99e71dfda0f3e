package export

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/residue/pkg/residue/catalog"
	"github.com/cognicore/residue/pkg/residue/entities"
	"github.com/cognicore/residue/pkg/residue/glued"
	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/protect"
	"github.com/cognicore/residue/pkg/residue/rollup"
)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func sampleRecords() []mask.Record {
	engine := mask.NewEngine(catalog.New([]string{"sql"}, []string{"prod", "dev"}, nil), nil, mask.Thresholds{})
	a := engine.Mask("app-prod-01")
	a.ResourceID = "r1"
	b := engine.Mask("proddevsql01")
	b.ResourceID = "r2"
	return []mask.Record{a, b}
}

func TestWriteRecords(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecords(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
	rows := readCSV(t, buf.Bytes())
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	header := rows[0]
	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	if len(header) != len(rows[1]) {
		t.Fatalf("row width %d != header width %d", len(rows[1]), len(header))
	}
	if rows[1][col("masked_name")] != "app-⟂ENV⟂-⟂NUM⟂" || rows[1][col("hits_env")] != "1" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[2][col("embedded_env")] != "dev|prod" || rows[2][col("env_conflict")] != "true" {
		t.Fatalf("unexpected second row %v", rows[2])
	}
}

func TestWriteProtectSetAndGlued(t *testing.T) {
	var buf bytes.Buffer
	err := WriteProtectSet(&buf, []protect.Entry{{Chunk: "billing", DisplayForm: "Billing", Length: 7, SupportNames: 3, TotalCost: 12.5, InFrequencySet: true, SampleNames: []string{"a", "b"}}})
	if err != nil {
		t.Fatalf("WriteProtectSet: %v", err)
	}
	rows := readCSV(t, buf.Bytes())
	want := []string{"billing", "Billing", "7", "3", "0", "0", "12.5", "0", "true", "false", "a|b"}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Fatalf("protect row mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	fail := 9
	err = WriteGlued(&buf, []glued.Result{{
		ResourceID: "r1",
		Name:       "prod01sqlbackup",
		Coverage:   []glued.Segment{{Tag: "ENV", Start: 0, End: 4}, {Tag: "NUM", Start: 4, End: 6}},
		FailOffset: &fail,
	}})
	if err != nil {
		t.Fatalf("WriteGlued: %v", err)
	}
	rows = readCSV(t, buf.Bytes())
	if rows[1][5] != "ENV[0:4]|NUM[4:6]" || rows[1][6] != "9" || rows[1][2] != "false" || rows[1][8] != "false" {
		t.Fatalf("unexpected glued row %v", rows[1])
	}
}

func TestWriteRollups(t *testing.T) {
	rate := 0.5
	var buf bytes.Buffer
	err := WriteRollups(&buf, []rollup.Summary{
		{Scope: rollup.ScopeOverall, Resources: 2, GluedExplainedRate: &rate, TopEnv: []rollup.TokenCount{{Token: "prod", Count: 2}, {Token: "dev", Count: 1}}},
		{Scope: rollup.ScopeSubAccount, Key: "s1", Resources: 1},
	})
	if err != nil {
		t.Fatalf("WriteRollups: %v", err)
	}
	rows := readCSV(t, buf.Bytes())
	if rows[1][18] != "0.5" || rows[1][21] != "prod:2|dev:1" {
		t.Fatalf("unexpected overall row %v", rows[1])
	}
	if rows[2][18] != "" || rows[2][1] != "s1" {
		t.Fatalf("unexpected scoped row %v", rows[2])
	}
}

func TestSuggestionsRoundTrip(t *testing.T) {
	f := entities.SuggestionFile{
		SnapshotID:     "01HZX0000000000000000000A1",
		GenerationDate: "2026-03-01",
		Source:         entities.SourceStatistical,
		Entities: []entities.Candidate{
			{Name: "Billing", Abbreviations: []string{"bil"}, FoundInChunks: []string{"billing-api"}},
		},
	}
	path := filepath.Join(t.TempDir(), "p2.yml")
	var buf bytes.Buffer
	if err := WriteSuggestions(&buf, f); err != nil {
		t.Fatalf("WriteSuggestions: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadSuggestions(path)
	if err != nil {
		t.Fatalf("LoadSuggestions: %v", err)
	}
	if diff := cmp.Diff(f, *got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteMaster(t *testing.T) {
	m := entities.Master{
		SnapshotID: "01HZX0000000000000000000A1",
		Method:     "tfidf_char_3_5_cosine",
		Linking:    "reciprocal_top_k_5",
		Groups: []entities.MasterGroup{{
			Canonical: "Payroll",
			Status:    entities.StatusPending,
			Members:   []entities.MasterMember{{Name: "Payroll Svc", Similarity: 0.85, LinkType: "related"}},
		}},
	}
	var buf bytes.Buffer
	if err := WriteMaster(&buf, m); err != nil {
		t.Fatalf("WriteMaster: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	for _, key := range []string{"snapshot_id", "generation_date", "method", "thresholds", "linking", "groups", "distinct_entities"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("missing key %s in\n%s", key, buf.String())
		}
	}
	if !strings.Contains(buf.String(), "status: pending") {
		t.Fatalf("expected pending status in\n%s", buf.String())
	}
}

func TestWriteMaskedParquet(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMaskedParquet(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteMaskedParquet: %v", err)
	}
	data := buf.Bytes()
	if len(data) < 8 || string(data[:4]) != "PAR1" || string(data[len(data)-4:]) != "PAR1" {
		t.Fatalf("output is not a parquet file (%d bytes)", len(data))
	}
}

func TestWriteMaskedParquetRejectsNonFiniteCost(t *testing.T) {
	recs := sampleRecords()
	recs[1].Cost = math.NaN()
	var buf bytes.Buffer
	err := WriteMaskedParquet(&buf, recs)
	if err == nil || !strings.Contains(err.Error(), "parquet encode r2") {
		t.Fatalf("expected encode error for r2, got %v", err)
	}
}

func TestParquetSchemaTypes(t *testing.T) {
	schema := buildParquetSchema(recordColumns())
	for _, want := range []string{
		"name=resource_id, type=BYTE_ARRAY, convertedtype=UTF8",
		"name=hits_guid, type=INT64",
		"name=pct_removed, type=DOUBLE",
		"name=is_glued, type=BOOLEAN",
	} {
		if !strings.Contains(schema, want) {
			t.Fatalf("schema missing %q:\n%s", want, schema)
		}
	}
}
