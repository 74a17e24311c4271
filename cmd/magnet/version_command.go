package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-magnet/internal/version"
)

func newVersionCommand(ctx *commandContext) *cobra.Command {
	var check bool
	var apiBase string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "magnet v%s\n", version.Version)
			if !check {
				return nil
			}

			info, err := version.NewChecker(apiBase).Check(cmd.Context(), version.Version)
			if err != nil {
				return fmt.Errorf("check for updates: %w", err)
			}
			if info.UpdateAvailable {
				fmt.Fprintf(out, "v%s is available: %s\n", info.LatestVersion, version.InstallCommand())
			} else {
				fmt.Fprintln(out, "up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	cmd.Flags().StringVar(&apiBase, "github-api", version.GitHubAPI, "GitHub API root")
	_ = cmd.Flags().MarkHidden("github-api")

	return cmd
}
