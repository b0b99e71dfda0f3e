package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/residue/pkg/residue/audit"
	"github.com/cognicore/residue/pkg/residue/entities"
	"github.com/cognicore/residue/pkg/residue/export"
	"github.com/cognicore/residue/pkg/residue/store/sqlite"
)

var auditFlags struct {
	input   string
	out     string
	db      string
	parquet bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Mask names, build the protect set and check glued coverage",
	Example: `  residue audit --input rows.jsonl --catalog terms.yml --out out/
  residue audit --input rows.jsonl --tech tech.txt --env env.txt --reg reg.txt --out out/ --db audit.db --parquet`,
	RunE: runAudit,
}

func init() {
	f := auditCmd.Flags()
	f.StringVar(&auditFlags.input, "input", "", "JSONL corpus rows (required)")
	f.StringVar(&auditFlags.out, "out", "out", "Output directory")
	f.StringVar(&auditFlags.db, "db", "", "Optional SQLite database recording the run")
	f.BoolVar(&auditFlags.parquet, "parquet", false, "Also write masked records as Parquet")
	auditCmd.MarkFlagRequired("input")
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rows, err := loadRows(auditFlags.input)
	if err != nil {
		return err
	}
	a, err := newAuditor()
	if err != nil {
		return err
	}
	if auditFlags.db != "" {
		st, err := sqlite.OpenSQLite(ctx, auditFlags.db)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		a.Store = st
	}

	rep, err := a.Run(ctx, rows)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if err := writeReport(auditFlags.out, rep, auditFlags.parquet); err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), rep)
	return nil
}

// writeReport writes every phase table of rep into dir.
func writeReport(dir string, rep *audit.Report, parquet bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{"masked_records.csv", func(w io.Writer) error { return export.WriteRecords(w, rep.Records) }},
		{"protect_frequency.csv", func(w io.Writer) error { return export.WriteProtectSet(w, rep.Frequency) }},
		{"protect_cost.csv", func(w io.Writer) error { return export.WriteProtectSet(w, rep.Cost) }},
		{"protect_combined.csv", func(w io.Writer) error { return export.WriteProtectSet(w, rep.Combined) }},
		{"glued_coverage.csv", func(w io.Writer) error { return export.WriteGlued(w, rep.Glued) }},
		{"rollups.csv", func(w io.Writer) error { return export.WriteRollups(w, rep.Rollups) }},
		{"suggested_entities.yml", func(w io.Writer) error {
			return export.WriteSuggestions(w, entities.SuggestionFile{
				SnapshotID:     rep.RunID,
				GenerationDate: rep.StartedAt.UTC().Format("2006-01-02"),
				Source:         entities.SourceStatistical,
				Entities:       rep.Suggestions,
			})
		}},
	}
	if parquet {
		outputs = append(outputs, struct {
			name  string
			write func(io.Writer) error
		}{"masked_records.parquet", func(w io.Writer) error { return export.WriteMaskedParquet(w, rep.Records) }})
	}
	for _, o := range outputs {
		path := filepath.Join(dir, o.name)
		if err := writeFile(path, o.write); err != nil {
			return err
		}
		logger.Debug("wrote output", zap.String("path", path))
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printSummary(w io.Writer, rep *audit.Report) {
	title := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)
	ok := color.New(color.FgGreen)

	failed, glued, explained := 0, len(rep.Glued), 0
	for _, r := range rep.Records {
		if r.Failed {
			failed++
		}
	}
	for _, g := range rep.Glued {
		if g.Explained {
			explained++
		}
	}

	title.Fprintf(w, "Audit %s\n", rep.RunID)
	fmt.Fprintf(w, "  records:        %d\n", len(rep.Records))
	if failed > 0 {
		warn.Fprintf(w, "  failed rows:    %d\n", failed)
	}
	fmt.Fprintf(w, "  protect set:    %d frequency, %d cost, %d combined\n", len(rep.Frequency), len(rep.Cost), len(rep.Combined))
	if glued > 0 {
		c := ok
		if explained < glued {
			c = warn
		}
		c.Fprintf(w, "  glued names:    %d/%d explained\n", explained, glued)
	}
	fmt.Fprintf(w, "  suggestions:    %d statistical, %d residues for extraction\n", len(rep.Suggestions), len(rep.Residues))
}
