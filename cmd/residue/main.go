package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/residue/internal/billing"
	"github.com/cognicore/residue/pkg/residue/audit"
	"github.com/cognicore/residue/pkg/residue/catalog"
	"github.com/cognicore/residue/pkg/residue/config"
	"github.com/cognicore/residue/pkg/residue/corpus"
)

var (
	logLevel string
	workers  int
	loader   config.Loader

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "residue",
	Short: "Audit cloud billing resource names",
	Long: `residue separates scaffold (ids, environment, region and technology
vocabulary, numeric runs) from the business signal left in cloud resource
names, builds the protect set, checks glued names for full coverage and
clusters entity candidates into a master list.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&loader.SettingsPath, "config", "", "Audit settings YAML")
	pf.StringVar(&loader.CatalogPath, "catalog", "", "Term catalog YAML (tech, env, reg lists)")
	pf.StringVar(&loader.TechPath, "tech", "", "Plain TECH term file")
	pf.StringVar(&loader.EnvPath, "env", "", "Plain ENV term file")
	pf.StringVar(&loader.RegPath, "reg", "", "Plain REG term file")
	pf.IntVar(&workers, "workers", 0, "Worker count override (0 keeps the configured value)")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(mergeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newAuditor loads configuration and builds an auditor without a store.
func newAuditor() (*audit.Auditor, error) {
	comp, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configs: %w", err)
	}
	if workers > 0 {
		comp.Settings.Workers = workers
	}
	logger.Info("catalog loaded",
		zap.Int("tech", comp.Catalog.Len(catalog.Tech)),
		zap.Int("env", comp.Catalog.Len(catalog.Env)),
		zap.Int("reg", comp.Catalog.Len(catalog.Reg)))
	return &audit.Auditor{
		Context: audit.NewContext(comp.Catalog, comp.Settings),
		Logger:  logger,
	}, nil
}

func loadRows(path string) ([]corpus.Row, error) {
	if path == "" {
		return nil, fmt.Errorf("--input required")
	}
	rows, err := billing.LoadFromJSONL(path, logger)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	return rows, nil
}
