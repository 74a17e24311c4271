package main

import (
	"context"

	"github.com/spf13/cobra"
)

// execute runs the command tree and releases the log sink afterwards.
// Cobra skips post-run hooks when a command fails, so the close lives here.
func execute(ctx context.Context, cmd *cobra.Command, cc *commandContext) error {
	defer cc.close()
	return cmd.ExecuteContext(ctx)
}

func newRootCommand() (*cobra.Command, *commandContext) {
	var flags rootFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "magnet",
		Short:         "Find and rank magnet links for video codes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx.bind(cmd)
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.history, "history", "", "History database path")
	rootCmd.PersistentFlags().BoolVar(&flags.noHistory, "no-history", false, "Neither read nor record selection history")

	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newJableCommand(ctx))
	rootCmd.AddCommand(newSehuatangCommand(ctx))
	rootCmd.AddCommand(newBrowseCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newSourcesCommand(ctx))
	rootCmd.AddCommand(newVersionCommand(ctx))

	return rootCmd, ctx
}

// shouldSkipConfig lets commands that never read settings run with a
// broken config file
func shouldSkipConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "version", "completion":
		return true
	}
	return false
}
