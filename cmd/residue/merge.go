package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cognicore/residue/pkg/residue/entities"
	"github.com/cognicore/residue/pkg/residue/export"
	"github.com/cognicore/residue/pkg/residue/store/sqlite"
)

var mergeFlags struct {
	statistical string
	inferred    string
	out         string
	db          string
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge statistical and inferred entities into a master list",
	RunE:  runMerge,
}

func init() {
	f := mergeCmd.Flags()
	f.StringVar(&mergeFlags.statistical, "statistical", "", "Suggestion file from audit")
	f.StringVar(&mergeFlags.inferred, "inferred", "", "Suggestion file from extract")
	f.StringVar(&mergeFlags.out, "out", "master_entities.yml", "Master entity file")
	f.StringVar(&mergeFlags.db, "db", "", "Optional SQLite database recording the groups")
}

func loadCandidates(path string) ([]entities.Candidate, error) {
	if path == "" {
		return nil, nil
	}
	f, err := export.LoadSuggestions(path)
	if err != nil {
		return nil, fmt.Errorf("load suggestions: %w", err)
	}
	return f.Entities, nil
}

func runMerge(cmd *cobra.Command, args []string) error {
	if mergeFlags.statistical == "" && mergeFlags.inferred == "" {
		return fmt.Errorf("at least one of --statistical or --inferred required")
	}
	ctx := cmd.Context()
	statistical, err := loadCandidates(mergeFlags.statistical)
	if err != nil {
		return err
	}
	inferred, err := loadCandidates(mergeFlags.inferred)
	if err != nil {
		return err
	}

	a, err := newAuditor()
	if err != nil {
		return err
	}
	if mergeFlags.db != "" {
		st, err := sqlite.OpenSQLite(ctx, mergeFlags.db)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		a.Store = st
	}

	master, err := a.Merge(ctx, statistical, inferred)
	if err != nil {
		return err
	}
	if err := writeFile(mergeFlags.out, func(w io.Writer) error { return export.WriteMaster(w, master) }); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%d groups, %d distinct entities written to %s\n",
		len(master.Groups), len(master.DistinctEntities), mergeFlags.out)
	return nil
}
