package main

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"fhvclean/internal/runlog"
)

func newHistoryCommand(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs recorded in the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadPipeline(root, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			if p.RunLog.Kind == "" {
				return errors.New("run_log is not configured")
			}

			ledger, err := runlog.Open(p.RunLog.Kind, p.RunLog.DSN)
			if err != nil {
				return err
			}
			defer ledger.Close()

			runs, err := ledger.Recent(cmd.Context(), p.Job, limit)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(runs, "", "  ")
			if err != nil {
				return fmt.Errorf("format runs: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}
