package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cognicore/residue/internal/llm"
	"github.com/cognicore/residue/pkg/residue/entities"
	"github.com/cognicore/residue/pkg/residue/export"
)

var extractFlags struct {
	input     string
	out       string
	llmBase   string
	llmModel  string
	llmAPIKey string
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Ask an LLM which entities the leftover name residues mention",
	RunE:  runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractFlags.input, "input", "", "JSONL corpus rows (required)")
	f.StringVar(&extractFlags.out, "out", "inferred_entities.yml", "Output suggestion file")
	f.StringVar(&extractFlags.llmBase, "llm-base", "", "OpenAI-compatible chat completion URL (required)")
	f.StringVar(&extractFlags.llmModel, "llm-model", "", "Model name (required)")
	f.StringVar(&extractFlags.llmAPIKey, "llm-api-key", os.Getenv("RESIDUE_LLM_API_KEY"), "API key (or set RESIDUE_LLM_API_KEY)")
	extractCmd.MarkFlagRequired("input")
	extractCmd.MarkFlagRequired("llm-base")
	extractCmd.MarkFlagRequired("llm-model")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rows, err := loadRows(extractFlags.input)
	if err != nil {
		return err
	}
	a, err := newAuditor()
	if err != nil {
		return err
	}
	rep, err := a.Run(ctx, rows)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	client := &llm.Client{
		BaseURL: extractFlags.llmBase,
		Model:   extractFlags.llmModel,
		APIKey:  extractFlags.llmAPIKey,

		Temperature: a.Context.Settings.Extraction.Temperature,
	}
	inferred, err := a.Extract(ctx, client, rep.Residues)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	for i := range inferred {
		inferred[i].ValidationSource = []string{entities.SourceInferred}
	}

	file := entities.SuggestionFile{
		SnapshotID:     rep.RunID,
		GenerationDate: rep.StartedAt.UTC().Format("2006-01-02"),
		Source:         entities.SourceInferred,
		Entities:       inferred,
	}
	if err := writeFile(extractFlags.out, func(w io.Writer) error { return export.WriteSuggestions(w, file) }); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d residues, %d inferred entities written to %s\n", len(rep.Residues), len(inferred), extractFlags.out)
	return nil
}
