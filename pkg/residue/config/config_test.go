package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cognicore/residue/pkg/residue/internalerr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultSettingsValid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	require.Equal(t, 0.8, s.Masking.OverstripPct)
	require.Equal(t, 500, s.ProtectSet.MaxSize)
	require.Equal(t, CoverageFrequency, s.ProtectSet.CoverageSource)
	require.True(t, s.Glued.SweepUnprotected)
	require.Equal(t, 5, s.Similarity.TopK)
	require.Equal(t, 10, s.Rollup.TopTokens)
}

func TestLoadSettingsOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "audit.yaml", `
masking:
  overstrip_pct: 0.9
protect_set:
  min_support: 5
  coverage_source: combined
glued:
  sweep_unprotected: false
workers: 4
`)
	s, err := LoadSettings(path)
	require.NoError(t, err)
	require.Equal(t, 0.9, s.Masking.OverstripPct)
	require.Equal(t, 3, s.Masking.ResidualMinLen)
	require.Equal(t, 5, s.ProtectSet.MinSupport)
	require.Equal(t, CoverageCombined, s.ProtectSet.CoverageSource)
	require.False(t, s.Glued.SweepUnprotected)
	require.Equal(t, 4, s.Workers)
	require.Equal(t, 0.92, s.Similarity.Duplicate)
}

func TestLoadSettingsRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"source":      "protect_set:\n  coverage_source: cost\n",
		"thresholds":  "similarity:\n  related: 0.95\n  duplicate: 0.9\n",
		"acronym":     "masking:\n  acronym_min: 5\n  acronym_max: 4\n",
		"ngram":       "similarity:\n  ngram_min: 0\n",
		"temperature": "extraction:\n  temperature: 2.5\n",
	}
	for name, body := range cases {
		path := writeFile(t, dir, name+".yaml", body)
		_, err := LoadSettings(path)
		if !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	if _, err := LoadSettings("/nonexistent/audit.yaml"); err == nil {
		t.Error("Should error on nonexistent settings")
	}
}

func TestLoadTermFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "environments.txt", "prod dev\n# comment line\n  uat\tqa  \n\n")
	terms, err := LoadTermFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"prod", "dev", "uat", "qa"}, terms)
}

func TestSettingsConversions(t *testing.T) {
	s := DefaultSettings()
	require.Equal(t, 3, s.MaskThresholds().ResidualMinLen)
	require.Equal(t, 0.01, s.ProtectOptions().CostThresholdPct)
	sim := s.SimilarityThresholds()
	require.Equal(t, 3, sim.MinN)
	require.Equal(t, 5, sim.MaxN)
}
