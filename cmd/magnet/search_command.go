package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-magnet/internal/history"
	"github.com/litescript/ls-magnet/internal/output"
	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/litescript/ls-magnet/internal/scraper"
)

type searchFlags struct {
	sort          string
	page          int
	source        string
	minSize       float64
	maxSize       float64
	minPopularity int
	maxPopularity int
	best          bool
	table         bool
	send          bool
}

// filterOptions maps the bound flags onto the filter. The sort flag names
// the site's sort column; the same name orders the list locally when it is
// a ranking key.
func (f searchFlags) filterOptions() (ranking.FilterOptions, error) {
	opts := ranking.FilterOptions{
		MinSizeGiB:    f.minSize,
		MaxSizeGiB:    f.maxSize,
		MinPopularity: f.minPopularity,
		MaxPopularity: f.maxPopularity,
	}
	key, err := ranking.ParseSortKey(f.sort)
	if err != nil {
		return opts, err
	}
	opts.SortKey = key
	return opts, nil
}

func (f searchFlags) siteSort() string {
	switch ranking.SortKey(f.sort) {
	case ranking.SortByPopularity:
		return "downloads"
	case ranking.SortBySize:
		return "size"
	}
	return f.sort
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "search <code>",
		Short: "Search candidates for a video code and print magnet lines",
		Long: `Search the index for a video code.

Without --best every candidate inside the size and popularity bounds is
printed, ordered by --sort. With --best only the candidate picked by the
selection policy (size floor, subtitle markers, then hot-then-big) is
printed. Nothing is printed when nothing qualifies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return errors.New("search code is empty")
			}
			opts, err := flags.filterOptions()
			if err != nil {
				return err
			}
			if flags.page < 0 {
				return fmt.Errorf("page must be positive, got %d", flags.page)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			src, err := ctx.candidateSource(flags.source)
			if err != nil {
				return err
			}
			log := ctx.log("search")

			q := scraper.SearchQuery{Key: key, Page: flags.page, Sort: flags.siteSort()}
			found := scraper.SearchOrEmpty(cmd.Context(), src, q, log)
			log.Debug().Int("count", len(found)).Str("key", key).Msg("candidates found")

			out := cmd.OutOrStdout()
			policy := cfg.Policy()

			if flags.best {
				// bounds still narrow the field; the order is left to the selector
				opts.SortKey = ranking.SortNone
				best, ok := ranking.Best(ranking.FilterAndSort(found, opts), policy)
				if !ok {
					log.Info().Str("key", key).Msg("no candidate qualifies")
					return nil
				}
				if flags.table {
					fmt.Fprintln(out, output.CandidateTable([]ranking.Candidate{best}, best.Locator))
				} else {
					fmt.Fprintln(out, output.MagnetLine(best, key))
				}
				if store := ctx.optionalHistory(cmd.Context()); store != nil {
					if err := store.Record(cmd.Context(), history.FromCandidate(key, best)); err != nil {
						log.Warn().Err(err).Msg("record history")
					}
					store.Close()
				}
				if flags.send {
					return ctx.sendMagnets(cmd.Context(), []string{best.Locator})
				}
				return nil
			}

			results := ranking.FilterAndSort(found, opts)
			if flags.table {
				bestLocator := ""
				if best, ok := ranking.Best(results, policy); ok {
					bestLocator = best.Locator
				}
				if len(results) > 0 {
					fmt.Fprintln(out, output.CandidateTable(results, bestLocator))
				}
			} else {
				for _, c := range results {
					fmt.Fprintln(out, output.MagnetLine(c, key))
				}
			}

			if flags.send {
				magnets := make([]string, len(results))
				for i, c := range results {
					magnets[i] = c.Locator
				}
				return ctx.sendMagnets(cmd.Context(), magnets)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.sort, "sort", "", "Order by popularity or size (site columns: downloads, size, leechers)")
	cmd.Flags().IntVar(&flags.page, "page", 1, "Result page")
	cmd.Flags().StringVar(&flags.source, "source", "", "Source to search: sukebei, all, or a configured source")
	cmd.Flags().Float64Var(&flags.minSize, "min-size", 0, "Keep candidates larger than this many GiB (0 = no bound)")
	cmd.Flags().Float64Var(&flags.maxSize, "max-size", 0, "Keep candidates smaller than this many GiB (0 = no bound)")
	cmd.Flags().IntVar(&flags.minPopularity, "min-popularity", 0, "Keep candidates more popular than this (0 = no bound)")
	cmd.Flags().IntVar(&flags.maxPopularity, "max-popularity", 0, "Keep candidates less popular than this (0 = no bound)")
	cmd.Flags().BoolVar(&flags.best, "best", false, "Print only the best candidate")
	cmd.Flags().BoolVar(&flags.table, "table", false, "Print a table instead of magnet lines")
	cmd.Flags().BoolVar(&flags.send, "send", false, "Also add the printed magnets to qBittorrent")

	return cmd
}
