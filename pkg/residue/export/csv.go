// Package export writes audit outputs as CSV tables, YAML documents and
// Parquet files.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/cognicore/residue/pkg/residue/glued"
	"github.com/cognicore/residue/pkg/residue/mask"
	"github.com/cognicore/residue/pkg/residue/match"
	"github.com/cognicore/residue/pkg/residue/protect"
	"github.com/cognicore/residue/pkg/residue/rollup"
)

// ListSep joins multi-valued cells.
const ListSep = "|"

func writeTable(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func btoa(b bool) string { return strconv.FormatBool(b) }

// RecordHeader is the column list of WriteRecords.
func RecordHeader() []string {
	h := []string{"resource_id", "resource_name", "sub_account", "resource_group", "billing_account", "cost", "masked_name", "residual"}
	for _, c := range match.Classes {
		h = append(h, "hits_"+strings.ToLower(c.String()))
	}
	for _, c := range match.Classes {
		h = append(h, "chars_"+strings.ToLower(c.String()))
	}
	return append(h,
		"orig_len", "residual_len", "removed_chars", "pct_removed", "entropy_orig", "entropy_resid",
		"overstrip", "acronym_only_residual", "heavy_scaffold", "is_glued", "env_conflict",
		"embedded_env", "embedded_tech", "failed", "error")
}

// WriteRecords writes one row per masked record.
func WriteRecords(w io.Writer, recs []mask.Record) error {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		row := []string{r.ResourceID, r.ResourceName, r.SubAccount, r.ResourceGroup, r.BillingAccount, ftoa(r.Cost), r.MaskedName, r.Residual}
		for _, c := range match.Classes {
			row = append(row, strconv.Itoa(r.Hits.Get(c)))
		}
		for _, c := range match.Classes {
			row = append(row, strconv.Itoa(r.CharsRemoved.Get(c)))
		}
		row = append(row,
			strconv.Itoa(r.OrigLen), strconv.Itoa(r.ResidualLen), strconv.Itoa(r.RemovedChars),
			ftoa(r.PctRemoved), ftoa(r.EntropyOrig), ftoa(r.EntropyResid),
			btoa(r.Overstrip), btoa(r.AcronymOnlyResidual), btoa(r.HeavyScaffold), btoa(r.IsGlued), btoa(r.EnvConflict),
			strings.Join(r.EmbeddedEnv, ListSep), strings.Join(r.EmbeddedTech, ListSep),
			btoa(r.Failed), r.Error)
		rows = append(rows, row)
	}
	return writeTable(w, RecordHeader(), rows)
}

// WriteProtectSet writes a protect-set table.
func WriteProtectSet(w io.Writer, entries []protect.Entry) error {
	header := []string{"chunk", "display_form", "length", "support_names", "spread_subs", "spread_rgs",
		"total_cost", "cost_pct_of_total", "in_frequency_set", "in_cost_set", "sample_names"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Chunk, e.DisplayForm, strconv.Itoa(e.Length), strconv.Itoa(e.SupportNames),
			strconv.Itoa(e.SpreadSubs), strconv.Itoa(e.SpreadRGs), ftoa(e.TotalCost), ftoa(e.CostPctOfTotal),
			btoa(e.InFrequencySet), btoa(e.InCostSet), strings.Join(e.SampleNames, ListSep),
		})
	}
	return writeTable(w, header, rows)
}

// WriteGlued writes coverage results. Segments are rendered as
// tag[start:end] joined by ListSep.
func WriteGlued(w io.Writer, results []glued.Result) error {
	header := []string{"resource_id", "name", "explained", "skipped", "protected_hits", "coverage_sequence", "coverage_fail_offset", "masked", "failed", "error"}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		fail := ""
		if r.FailOffset != nil {
			fail = strconv.Itoa(*r.FailOffset)
		}
		rows = append(rows, []string{
			r.ResourceID, r.Name, btoa(r.Explained), btoa(r.Skipped),
			segments(r.ProtectedHits), segments(r.Coverage), fail, r.Masked,
			btoa(r.Failed), r.Error,
		})
	}
	return writeTable(w, header, rows)
}

func segments(segs []glued.Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.Tag + "[" + strconv.Itoa(s.Start) + ":" + strconv.Itoa(s.End) + "]"
	}
	return strings.Join(parts, ListSep)
}

// WriteRollups writes scope summaries. Absent glued rates are left blank.
func WriteRollups(w io.Writer, sums []rollup.Summary) error {
	header := []string{"scope", "key", "n_resources",
		"pct_removed_mean", "pct_removed_median", "pct_removed_p90",
		"residual_len_mean", "residual_len_median", "residual_len_p10",
		"entropy_orig_mean", "entropy_orig_median", "entropy_resid_mean", "entropy_resid_median",
		"overstrip_rate", "acronym_only_rate", "heavy_scaffold_rate", "glued_rate", "env_conflict_rate",
		"glued_explained_rate", "embedded_env_rate", "top_tech", "top_env", "top_reg"}
	rows := make([][]string, 0, len(sums))
	for _, s := range sums {
		rows = append(rows, []string{
			s.Scope, s.Key, strconv.Itoa(s.Resources),
			ftoa(s.PctRemovedMean), ftoa(s.PctRemovedMedian), ftoa(s.PctRemovedP90),
			ftoa(s.ResidualLenMean), ftoa(s.ResidualLenMedian), ftoa(s.ResidualLenP10),
			ftoa(s.EntropyOrigMean), ftoa(s.EntropyOrigMedian), ftoa(s.EntropyResidMean), ftoa(s.EntropyResidMedian),
			ftoa(s.OverstripRate), ftoa(s.AcronymOnlyRate), ftoa(s.HeavyScaffoldRate), ftoa(s.GluedRate), ftoa(s.EnvConflictRate),
			optional(s.GluedExplainedRate), optional(s.EmbeddedEnvRate),
			tokens(s.TopTech), tokens(s.TopEnv), tokens(s.TopReg),
		})
	}
	return writeTable(w, header, rows)
}

func optional(f *float64) string {
	if f == nil {
		return ""
	}
	return ftoa(*f)
}

// tokens renders counts as token:count joined by ListSep.
func tokens(tc []rollup.TokenCount) string {
	parts := make([]string, len(tc))
	for i, t := range tc {
		parts[i] = t.Token + ":" + strconv.Itoa(t.Count)
	}
	return strings.Join(parts, ListSep)
}
