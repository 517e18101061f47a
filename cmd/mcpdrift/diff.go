package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mcpdrift/internal/domain"
	"mcpdrift/internal/infra/baselinestore"
)

func newDiffCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <previous-key> [current-key]",
		Short: "Compare two stored baselines and report drift",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			previous, err := store.Load(args[0])
			if err != nil {
				return err
			}

			var current domain.Baseline
			if len(args) == 2 {
				current, err = store.Load(args[1])
			} else {
				current, err = store.Latest()
			}
			if err != nil {
				return err
			}

			diff, err := domain.CompareBaselines(previous, current, nil)
			if err != nil {
				var mismatch *domain.VersionMismatchError
				if errors.As(err, &mismatch) {
					return exitWithCode(2, fmt.Sprintf("baseline formats are incompatible: %s vs %s",
						mismatch.BaselineVersion, mismatch.CurrentVersion))
				}
				return err
			}

			if err := printDiff(diff, opts.jsonOutput); err != nil {
				return err
			}
			switch diff.Severity {
			case domain.SeverityBreaking:
				return exitWithCode(2, "")
			case domain.SeverityWarning:
				return exitWithCode(1, "")
			default:
				return nil
			}
		},
	}
	return cmd
}

func openStore(opts *cliOptions) (*baselinestore.Store, error) {
	path := opts.storePath
	if path == "" {
		path = storePathFromConfig(opts)
	}
	return baselinestore.Open(path, opts.logger)
}
