package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-magnet/internal/history"
	"github.com/litescript/ls-magnet/internal/output"
	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/litescript/ls-magnet/internal/scraper"
)

func newSehuatangCommand(ctx *commandContext) *cobra.Command {
	var page int
	var skipSeen bool
	var send bool

	cmd := &cobra.Command{
		Use:   "sehuatang [path]",
		Short: "Print the magnet posted in every thread of a sehuatang board page",
		Long: `Read one board page (default ` + scraper.SehuatangForums[0] + `) and print the magnet
posted in each thread as <magnet>&dn=<code>. Threads without a magnet are
skipped. Paths look like /forum-103 or /forum-103-2.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := scraper.SehuatangForums[0]
			if len(args) == 1 {
				path = args[0]
			}
			sht, err := ctx.sehuatang()
			if err != nil {
				return err
			}
			q := scraper.ListQuery{Path: path, Page: page}
			pageURL, err := sht.PageURL(q)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), pageURL)

			videos, err := sht.Videos(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("list %s: %w", pageURL, err)
			}

			log := ctx.log("sehuatang")
			store := ctx.optionalHistory(cmd.Context())
			if store != nil {
				defer store.Close()
			}

			var picked []string
			for _, v := range videos {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				if skipSeen && store != nil {
					if seen, err := store.Seen(cmd.Context(), v.Code); err == nil && seen {
						log.Debug().Str("code", v.Code).Msg("already picked, skipping")
						continue
					}
				}

				magnet, err := sht.Magnet(cmd.Context(), v.URL)
				if err != nil {
					log.Warn().Err(err).Str("thread", v.URL).Msg("read thread")
					continue
				}
				if !strings.HasPrefix(magnet, "magnet:") {
					log.Debug().Str("thread", v.URL).Msg("no magnet in thread")
					continue
				}

				fmt.Fprintln(cmd.OutOrStdout(), output.ThreadLine(magnet, v.Code))
				picked = append(picked, magnet)

				if store != nil {
					c := ranking.Candidate{Locator: magnet, Label: v.Name, Source: sht.Name()}
					if err := store.Record(cmd.Context(), history.FromCandidate(v.Code, c)); err != nil {
						log.Warn().Err(err).Str("code", v.Code).Msg("record history")
					}
				}
			}

			if send {
				return ctx.sendMagnets(cmd.Context(), picked)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Board page (default: the page in the path, else 1)")
	cmd.Flags().BoolVar(&skipSeen, "skip-seen", false, "Skip codes already in the history")
	cmd.Flags().BoolVar(&send, "send", false, "Also add the magnets to qBittorrent")

	cmd.AddCommand(&cobra.Command{
		Use:   "forums",
		Short: "List the suggested board paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range scraper.SehuatangForums {
				fmt.Fprintln(cmd.OutOrStdout(), "sehuatang "+f)
			}
			return nil
		},
	})

	return cmd
}
