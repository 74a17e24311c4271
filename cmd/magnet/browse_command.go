package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-magnet/internal/scraper"
	"github.com/litescript/ls-magnet/internal/tui"
)

var errNoTerminal = errors.New("browse needs an interactive terminal on stdin and stderr")

func newBrowseCommand(ctx *commandContext) *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "browse [code]",
		Short: "Pick a candidate interactively",
		Long: `Open the picker. The best candidate is marked and selected; enter prints
its magnet line on stdout, a sends it to qBittorrent. Editing the config
file while the picker is open re-ranks the list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdin) || !isTerminal(cmd.ErrOrStderr()) {
				return errNoTerminal
			}
			opts, err := flags.filterOptions()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src, err := ctx.candidateSource(flags.source)
			if err != nil {
				return err
			}
			client, add, err := ctx.qbitClient()
			if err != nil {
				return err
			}

			key := ""
			if len(args) == 1 {
				key = strings.TrimSpace(args[0])
			}

			chosen, err := tui.Run(cmd.Context(), tui.Options{
				Query:   scraper.SearchQuery{Key: key, Page: flags.page, Sort: flags.siteSort()},
				Source:  src,
				Filter:  opts,
				Policy:  cfg.Policy(),
				Sender:  client,
				Add:     add,
				Palette: tui.LoadPalette(),
				Log:     ctx.log("tui"),
			}, ctx.configPath())
			if err != nil {
				return err
			}
			if chosen != "" {
				fmt.Fprintln(cmd.OutOrStdout(), chosen)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.sort, "sort", "", "Initial order: downloads, leechers or size")
	cmd.Flags().IntVar(&flags.page, "page", 1, "Result page")
	cmd.Flags().StringVar(&flags.source, "source", "", "Source to search: sukebei, all, or a configured source")
	cmd.Flags().Float64Var(&flags.minSize, "min-size", 0, "Keep candidates larger than this many GiB (0 = no bound)")
	cmd.Flags().Float64Var(&flags.maxSize, "max-size", 0, "Keep candidates smaller than this many GiB (0 = no bound)")
	cmd.Flags().IntVar(&flags.minPopularity, "min-popularity", 0, "Keep candidates more popular than this (0 = no bound)")
	cmd.Flags().IntVar(&flags.maxPopularity, "max-popularity", 0, "Keep candidates less popular than this (0 = no bound)")

	return cmd
}
