package main

import (
	"fmt"
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"mcpdrift/internal/domain"
)

func newAcceptCmd(opts *cliOptions) *cobra.Command {
	var (
		acceptedBy string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "accept <previous-key> [current-key]",
		Short: "Accept the drift from a previous baseline and stamp the current one",
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
				return err
			}
			if diff.Severity == domain.SeverityNone {
				return fmt.Errorf("no drift between %s and the current baseline", args[0])
			}

			if acceptedBy == "" {
				if u, err := user.Current(); err == nil {
					acceptedBy = u.Username
				}
			}

			accepted, err := domain.AcceptDrift(current, diff, acceptedBy, reason, time.Now().UTC())
			if err != nil {
				return err
			}
			key, err := store.Save(accepted)
			if err != nil {
				return err
			}
			return printAccepted(key, accepted, diff, opts.jsonOutput)
		},
	}

	cmd.Flags().StringVar(&acceptedBy, "by", "", "who accepts the drift (defaults to the current user)")
	cmd.Flags().StringVar(&reason, "reason", "", "why the drift is acceptable")

	return cmd
}
