package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cognicore/residue/pkg/residue/export"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func TestAuditThenMerge(t *testing.T) {
	root := repoRoot(t)
	out := t.TempDir()
	db := filepath.Join(out, "audit.db")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{
		"audit",
		"--log-level", "error",
		"--config", filepath.Join(root, "configs", "audit.yml"),
		"--catalog", filepath.Join(root, "testdata", "audit", "terms.yml"),
		"--input", filepath.Join(root, "testdata", "audit", "rows.jsonl"),
		"--out", out,
		"--db", db,
		"--parquet",
	})
	require.NoError(t, rootCmd.Execute())
	require.Contains(t, stdout.String(), "records:        7")
	require.Contains(t, stdout.String(), "failed rows:    1")

	for _, name := range []string{
		"masked_records.csv", "protect_frequency.csv", "protect_cost.csv", "protect_combined.csv",
		"glued_coverage.csv", "rollups.csv", "suggested_entities.yml", "masked_records.parquet",
	} {
		info, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, name)
		require.NotZero(t, info.Size(), name)
	}

	masked, err := os.ReadFile(filepath.Join(out, "masked_records.csv"))
	require.NoError(t, err)
	require.Contains(t, string(masked), "billing-⟂TECH⟂-⟂ENV⟂")

	suggestions, err := export.LoadSuggestions(filepath.Join(out, "suggested_entities.yml"))
	require.NoError(t, err)
	require.Len(t, suggestions.Entities, 1)
	require.Equal(t, "billing", suggestions.Entities[0].Name)

	master := filepath.Join(out, "master.yml")
	stdout.Reset()
	rootCmd.SetArgs([]string{
		"merge",
		"--log-level", "error",
		"--statistical", filepath.Join(out, "suggested_entities.yml"),
		"--out", master,
		"--db", db,
	})
	require.NoError(t, rootCmd.Execute())
	require.True(t, strings.HasSuffix(strings.TrimSpace(stdout.String()), master))

	data, err := os.ReadFile(master)
	require.NoError(t, err)
	require.Contains(t, string(data), "distinct_entities:")
	require.Contains(t, string(data), "entity_name: billing")
}
