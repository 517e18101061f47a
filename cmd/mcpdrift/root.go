package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"mcpdrift/internal/infra/catalog"
)

type cliOptions struct {
	configPath string
	storePath  string
	jsonOutput bool
	verbose    bool
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		configPath: "mcpdrift.yaml",
		logger:     zap.NewNop(),
	}

	root := &cobra.Command{
		Use:   "mcpdrift",
		Short: "Baseline and drift probe for MCP tool servers",
		// main prints errors itself so exit-code-only errors stay quiet.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := buildLogger(opts.verbose)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		// --db is an alias for --store.
		if name == "db" {
			name = "store"
		}
		return pflag.NormalizedName(name)
	})
	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to probe config file")
	root.PersistentFlags().StringVar(&opts.storePath, "store", "", "baseline database path (overrides config)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newProbeCmd(&opts),
		newDiffCmd(&opts),
		newAcceptCmd(&opts),
		newListCmd(&opts),
	)

	return root
}

// storePathFromConfig resolves the baseline database path when no --store
// flag was given. A missing or broken config file falls back to the default
// path so read-only verbs work without one.
func storePathFromConfig(opts *cliOptions) string {
	cfg, err := catalog.NewLoader(opts.logger).Load(context.Background(), opts.configPath)
	if err != nil {
		return catalog.DefaultStorePath
	}
	return cfg.StorePath
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	// CLI output goes to stdout; keep logs off it.
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
