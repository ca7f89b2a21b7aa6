package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scriptboard/backend/internal/importer"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var learnerID string
	cfg := importer.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "import <file.xlsx|file.csv>",
		Short: "Import scripts for a learner from a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLearner(learnerID); err != nil {
				return err
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			res, err := importer.Import(cmd.Context(), st, args[0], learnerID, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rows processed: %d\n", res.TotalProcessed)
			fmt.Fprintf(out, "Imported:       %d\n", len(res.Scripts))
			fmt.Fprintf(out, "Skipped:        %d\n", res.Skipped)
			for _, msg := range res.Errors {
				fmt.Fprintf(out, "  %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&learnerID, "learner", "", "Learner that owns the imported scripts")
	cmd.Flags().StringVar(&cfg.SheetName, "sheet", "", "Sheet name (default: first sheet)")
	cmd.Flags().StringVar(&cfg.TextColumn, "text-column", cfg.TextColumn, "Column holding the script text")
	cmd.Flags().StringVar(&cfg.CategoryColumn, "category-column", cfg.CategoryColumn, "Column holding the category (standard or target)")
	cmd.Flags().IntVar(&cfg.StartRow, "start-row", cfg.StartRow, "First data row (1-based)")

	return cmd
}
