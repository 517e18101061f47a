package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"mcpdrift/internal/domain"
)

func newListCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored baselines, newest first",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			infos, err := store.List()
			if err != nil {
				return err
			}
			return printBaselineList(infos, opts.jsonOutput)
		},
	}
	return cmd
}

// formatStatus describes how a stored format version relates to the current
// one. Unparseable versions read as current, matching how loading treats them.
func formatStatus(version string) string {
	stored := "v" + version
	current := "v" + domain.BaselineFormatVersion
	if !semver.IsValid(stored) {
		return "current"
	}
	switch {
	case semver.Major(stored) == semver.Major(current):
		return "current"
	case semver.Compare(stored, current) < 0:
		return "migrates on load"
	default:
		return "unreadable (newer format)"
	}
}
