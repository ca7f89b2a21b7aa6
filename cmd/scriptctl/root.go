package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var dbFlag string

	ctx := newCommandContext(&dbFlag)

	rootCmd := &cobra.Command{
		Use:           "scriptctl",
		Short:         "Manage learner scripts and quiz history",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite database path (default $DATABASE_PATH or scriptboard.db)")

	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newScriptsCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newDrawCommand(ctx))

	return rootCmd
}
