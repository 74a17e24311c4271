package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-magnet/internal/config"
	"github.com/litescript/ls-magnet/internal/output"
	"github.com/litescript/ls-magnet/internal/scraper"
)

func newSourcesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage extra torrent sites searched with --source",
	}
	cmd.AddCommand(newSourcesListCommand(ctx))
	cmd.AddCommand(newSourcesAddCommand(ctx))
	cmd.AddCommand(newSourcesRemoveCommand(ctx))
	return cmd
}

func newSourcesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(cfg.Sources) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No sources configured")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), output.SourcesTable(cfg.Sources))
			return nil
		},
	}
}

func newSourcesAddCommand(ctx *commandContext) *cobra.Command {
	var skipCheck bool
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add or replace a source",
		Long: `Add a torrent site. Unless --skip-check is given the site is fetched
first and must look like a torrent index; the stored URL is reduced to its
scheme and host.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			switch strings.ToLower(name) {
			case "":
				return errors.New("source name is empty")
			case "all", "sukebei":
				return fmt.Errorf("%q is a reserved source name", name)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			siteURL := strings.TrimRight(strings.TrimSpace(args[1]), "/")
			if !skipCheck {
				siteURL, err = scraper.ValidateURL(cmd.Context(), ctx.fetch(), siteURL)
				if err != nil {
					return fmt.Errorf("add %s: %w", name, err)
				}
			}

			cfg.AddSource(config.SourceConfig{Name: name, URL: siteURL, Enabled: !disabled})
			if err := config.Save(cfg, ctx.configPath()); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", name, siteURL)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Store the URL without fetching it")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Store the source disabled")

	return cmd
}

func newSourcesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a source",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.RemoveSource(args[0]) {
				return fmt.Errorf("no source named %q", args[0])
			}
			if err := config.Save(cfg, ctx.configPath()); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}
