package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScriptsCommand(ctx *commandContext) *cobra.Command {
	var learnerID string

	cmd := &cobra.Command{
		Use:   "scripts",
		Short: "List a learner's scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLearner(learnerID); err != nil {
				return err
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			scripts, err := st.ListScripts(cmd.Context(), learnerID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(scripts) == 0 {
				fmt.Fprintln(out, "No scripts")
				return nil
			}

			const stampLayout = "2006-01-02 15:04"
			rows := make([][]string, 0, len(scripts))
			for _, sc := range scripts {
				rows = append(rows, []string{sc.ID, sc.Text, titleCase(string(sc.Category)), sc.CreatedAt.Local().Format(stampLayout)})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Text", "Category", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&learnerID, "learner", "", "Learner ID")
	return cmd
}
