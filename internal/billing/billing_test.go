package billing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cognicore/residue/pkg/residue/corpus"
)

func TestDecodeSkipsMalformedLines(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	input := strings.Join([]string{
		`{"resource_id":"r1","resource_name":"billing-api-prod","sub_account":"s1","resource_group":"g1","cost":12.5}`,
		``,
		`{"resource_id":"r2",`,
		`{"resource_id":"r3","resource_name":"crmetl","billing_account":"b1"}`,
	}, "\n")

	rows, err := Decode(strings.NewReader(input), "test.jsonl", zap.New(core))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []corpus.Row{
		{ResourceID: "r1", ResourceName: "billing-api-prod", SubAccount: "s1", ResourceGroup: "g1", Cost: 12.5},
		{ResourceID: "r3", ResourceName: "crmetl", BillingAccount: "b1"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
	if line := logs.All()[0].ContextMap()["line"]; line != int64(3) {
		t.Fatalf("warning line = %v", line)
	}
}

func TestDecodeEmpty(t *testing.T) {
	if _, err := Decode(strings.NewReader("\n\n"), "empty", nil); err == nil {
		t.Fatal("expected error for input without rows")
	}
}

func TestLoadFromJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	if err := os.WriteFile(path, []byte(`{"resource_id":"r1","resource_name":"a"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rows, err := LoadFromJSONL(path, nil)
	if err != nil {
		t.Fatalf("LoadFromJSONL: %v", err)
	}
	if len(rows) != 1 || rows[0].ResourceID != "r1" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if _, err := LoadFromJSONL(filepath.Join(t.TempDir(), "missing.jsonl"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}
