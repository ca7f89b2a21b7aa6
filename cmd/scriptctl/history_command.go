package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scriptboard/backend/internal/service"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and maintain quiz history",
	}

	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var (
		learnerID string
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop history entries older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			keeper := service.NewHistoryKeeper(st, ctx.logger(cmd.ErrOrStderr()))

			if learnerID != "" {
				removed, err := keeper.Prune(cmd.Context(), learnerID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d expired entries for %s\n", removed, learnerID)
				return nil
			}

			report, err := keeper.PruneAll(cmd.Context(), workers)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Learners: %d\n", report.Learners)
			fmt.Fprintf(out, "Removed:  %d\n", report.Removed)
			if report.Failed > 0 {
				return fmt.Errorf("prune failed for %d learners", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&learnerID, "learner", "", "Only prune this learner")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent learners when pruning everyone")
	return cmd
}
