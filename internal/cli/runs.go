package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/icvial/internal/wire"
)

// RunsCmd returns the runs command
func RunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the ledger of reconciliation runs",
		Long:  `List, show and prune the runs recorded by icvial assign.`,
	}

	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	cmd.AddCommand(runsPruneCmd())

	return cmd
}

func runsListCmd() *cobra.Command {
	var logfile string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.RunAdapter().List(context.Background(), logfile, limit)
			return err
		},
	}

	cmd.Flags().StringVar(&logfile, "logfile", "", "Only runs of this vial info file (base name)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs (0 for all)")

	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.RunAdapter().Show(context.Background(), args[0])
			return err
		},
	}
}

func runsPruneCmd() *cobra.Command {
	var olderThan int
	var yes bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete ledger entries older than a number of days",
		Long: `Delete ledger entries older than --older-than days.
Assignment tables and metadata files are never touched.

Examples:
  icvial runs prune --older-than 365
  icvial runs prune --older-than 30 --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be a positive number of days")
			}
			if !yes && !confirmPrompt(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete runs older than %d days?", olderThan)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			_, err := wire.RunAdapter().Prune(context.Background(), olderThan)
			return err
		},
	}

	cmd.Flags().IntVar(&olderThan, "older-than", 0, "Age in days")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	_ = cmd.MarkFlagRequired("older-than")

	return cmd
}
