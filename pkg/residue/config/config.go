package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/residue/pkg/residue/internalerr"
	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/protect"
	"github.com/cognicore/residue/pkg/residue/similarity"
)

// Coverage sources for the glued sweep.
const (
	CoverageFrequency = "frequency"
	CoverageCombined  = "combined"
)

// Settings is the audit configuration document.
type Settings struct {
	Masking    MaskingSettings    `yaml:"masking"`
	ProtectSet ProtectSettings    `yaml:"protect_set"`
	Glued      GluedSettings      `yaml:"glued"`
	Similarity SimilaritySettings `yaml:"similarity"`
	Rollup     RollupSettings     `yaml:"rollup"`
	Extraction ExtractionSettings `yaml:"extraction"`
	Workers    int                `yaml:"workers"`
}

// MaskingSettings holds the per-name flag thresholds.
type MaskingSettings struct {
	OverstripPct     float64 `yaml:"overstrip_pct"`
	ResidualMinLen   int     `yaml:"residual_min_len"`
	AcronymMin       int     `yaml:"acronym_min"`
	AcronymMax       int     `yaml:"acronym_max"`
	HeavyScaffoldPct float64 `yaml:"heavy_scaffold_pct"`
	HeavyHits        int     `yaml:"heavy_hits"`
	EnvConflictMin   int     `yaml:"env_conflict_min"`
}

// ProtectSettings controls protect-set selection.
type ProtectSettings struct {
	MinSupport       int     `yaml:"min_support"`
	MaxSize          int     `yaml:"max_size"`
	CostThresholdPct float64 `yaml:"cost_threshold_pct"`
	// CoverageSource picks which table feeds the glued sweep.
	CoverageSource string `yaml:"coverage_source"`
}

// GluedSettings controls the coverage sweep.
type GluedSettings struct {
	SweepUnprotected bool `yaml:"sweep_unprotected"`
}

// SimilaritySettings controls entity clustering.
type SimilaritySettings struct {
	Duplicate  float64 `yaml:"duplicate"`
	Related    float64 `yaml:"related"`
	Confidence float64 `yaml:"confidence"`
	TopK       int     `yaml:"top_k"`
	NgramMin   int     `yaml:"ngram_min"`
	NgramMax   int     `yaml:"ngram_max"`
}

// RollupSettings controls corpus summaries.
type RollupSettings struct {
	TopTokens int `yaml:"top_tokens"`
}

// ExtractionSettings controls residue selection and model batching.
type ExtractionSettings struct {
	MinResidueLen int     `yaml:"min_residue_len"`
	BatchSize     int     `yaml:"batch_size"`
	Temperature   float64 `yaml:"temperature"`
}

// DefaultSettings returns the stock configuration.
func DefaultSettings() Settings {
	mt := mask.DefaultThresholds()
	po := protect.DefaultOptions()
	st := similarity.DefaultThresholds()
	return Settings{
		Masking: MaskingSettings{
			OverstripPct:     mt.OverstripPct,
			ResidualMinLen:   mt.ResidualMinLen,
			AcronymMin:       mt.AcronymMin,
			AcronymMax:       mt.AcronymMax,
			HeavyScaffoldPct: mt.HeavyScaffoldPct,
			HeavyHits:        mt.HeavyHits,
			EnvConflictMin:   mt.EnvConflictMin,
		},
		ProtectSet: ProtectSettings{
			MinSupport:       po.MinSupport,
			MaxSize:          po.MaxSize,
			CostThresholdPct: po.CostThresholdPct,
			CoverageSource:   CoverageFrequency,
		},
		Glued: GluedSettings{SweepUnprotected: true},
		Similarity: SimilaritySettings{
			Duplicate:  st.Duplicate,
			Related:    st.Related,
			Confidence: st.Confidence,
			TopK:       st.TopK,
			NgramMin:   st.MinN,
			NgramMax:   st.MaxN,
		},
		Rollup:     RollupSettings{TopTokens: 10},
		Extraction: ExtractionSettings{MinResidueLen: 2, BatchSize: 20},
	}
}

// LoadSettings reads a YAML settings file over the defaults and validates
// the result.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	var problems []string
	check := func(ok bool, msg string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(msg, args...))
		}
	}
	m := s.Masking
	check(m.OverstripPct > 0 && m.OverstripPct <= 1, "masking.overstrip_pct must be in (0,1], got %v", m.OverstripPct)
	check(m.HeavyScaffoldPct > 0 && m.HeavyScaffoldPct <= 1, "masking.heavy_scaffold_pct must be in (0,1], got %v", m.HeavyScaffoldPct)
	check(m.ResidualMinLen >= 0, "masking.residual_min_len must be >= 0")
	check(m.AcronymMin > 0 && m.AcronymMin <= m.AcronymMax, "masking.acronym_min must be in [1, acronym_max]")
	check(m.HeavyHits > 0, "masking.heavy_hits must be > 0")
	check(m.EnvConflictMin > 0, "masking.env_conflict_min must be > 0")

	p := s.ProtectSet
	check(p.MinSupport > 0, "protect_set.min_support must be > 0")
	check(p.MaxSize > 0, "protect_set.max_size must be > 0")
	check(p.CostThresholdPct > 0 && p.CostThresholdPct <= 1, "protect_set.cost_threshold_pct must be in (0,1], got %v", p.CostThresholdPct)
	check(p.CoverageSource == CoverageFrequency || p.CoverageSource == CoverageCombined,
		"protect_set.coverage_source must be %q or %q, got %q", CoverageFrequency, CoverageCombined, p.CoverageSource)

	sim := s.Similarity
	check(sim.Related > 0 && sim.Related <= sim.Duplicate && sim.Duplicate <= 1,
		"similarity thresholds must satisfy 0 < related <= duplicate <= 1")
	check(sim.Confidence > 0 && sim.Confidence <= 1, "similarity.confidence must be in (0,1]")
	check(sim.TopK > 0, "similarity.top_k must be > 0")
	check(sim.NgramMin > 0 && sim.NgramMin <= sim.NgramMax, "similarity n-gram range must satisfy 0 < ngram_min <= ngram_max")

	check(s.Rollup.TopTokens >= 0, "rollup.top_tokens must be >= 0")
	check(s.Extraction.MinResidueLen >= 0, "extraction.min_residue_len must be >= 0")
	check(s.Extraction.BatchSize > 0, "extraction.batch_size must be > 0")
	check(s.Extraction.Temperature >= 0 && s.Extraction.Temperature <= 2, "extraction.temperature must be in [0,2]")
	check(s.Workers >= 0, "workers must be >= 0")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// MaskThresholds converts the masking section.
func (s Settings) MaskThresholds() mask.Thresholds {
	m := s.Masking
	return mask.Thresholds{
		OverstripPct:     m.OverstripPct,
		ResidualMinLen:   m.ResidualMinLen,
		AcronymMin:       m.AcronymMin,
		AcronymMax:       m.AcronymMax,
		HeavyScaffoldPct: m.HeavyScaffoldPct,
		HeavyHits:        m.HeavyHits,
		EnvConflictMin:   m.EnvConflictMin,
	}
}

// ProtectOptions converts the protect_set section.
func (s Settings) ProtectOptions() protect.Options {
	return protect.Options{
		MinSupport:       s.ProtectSet.MinSupport,
		MaxSize:          s.ProtectSet.MaxSize,
		CostThresholdPct: s.ProtectSet.CostThresholdPct,
		SampleNames:      protect.DefaultOptions().SampleNames,
	}
}

// SimilarityThresholds converts the similarity section.
func (s Settings) SimilarityThresholds() similarity.Thresholds {
	sim := s.Similarity
	return similarity.Thresholds{
		Duplicate:  sim.Duplicate,
		Related:    sim.Related,
		Confidence: sim.Confidence,
		TopK:       sim.TopK,
		MinN:       sim.NgramMin,
		MaxN:       sim.NgramMax,
	}
}
