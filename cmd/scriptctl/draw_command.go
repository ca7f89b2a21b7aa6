package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/scriptboard/backend/internal/domain/history"
	"github.com/scriptboard/backend/internal/domain/selection"
)

func newDrawCommand(ctx *commandContext) *cobra.Command {
	var (
		learnerID string
		seed      uint64
	)

	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Run one selection round without starting a quiz",
		Long: "Shows each script's selection weight and the options one draw would " +
			"produce. Nothing is written to history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLearner(learnerID); err != nil {
				return err
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			pool, err := st.ListScripts(cmd.Context(), learnerID)
			if err != nil {
				return err
			}
			entries, err := st.ListHistory(cmd.Context(), learnerID)
			if err != nil {
				return err
			}
			now := time.Now()
			entries = history.Prune(entries, now)

			opts := []selection.Option{selection.WithClock(func() time.Time { return now })}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, selection.WithRand(selection.Seeded(seed)))
			}
			sel := selection.New(opts...)

			out := cmd.OutOrStdout()
			weights := selection.Weights(pool, entries, now)
			rows := make([][]string, 0, len(pool))
			for i, sc := range pool {
				rows = append(rows, []string{sc.Text, titleCase(string(sc.Category)), strconv.FormatFloat(weights[i], 'f', 2, 64)})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Script", "Category", "Weight"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))

			res, err := sel.Select(pool, entries)
			if err != nil {
				return err
			}

			rows = rows[:0]
			for i, o := range res.Options {
				mark := ""
				if o.ID == res.Correct.ID {
					mark = "*"
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), o.Text, mark})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"#", "Option", "Correct"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&learnerID, "learner", "", "Learner ID")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for a reproducible draw")
	return cmd
}
