package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/litescript/ls-magnet/internal/history"
	"github.com/litescript/ls-magnet/internal/output"
	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/litescript/ls-magnet/internal/scraper"
)

type batchFlags struct {
	page     int
	sort     string
	source   string
	skipSeen bool
	delay    time.Duration
	send     bool
}

func newJableCommand(ctx *commandContext) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "jable [path]",
		Short: "Pick the best magnet for every video on a jable listing page",
		Long: `List one jable page (default /hot/) and, for every video code on it,
search the index and print the best candidate's magnet line. Codes with no
qualifying candidate are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			jable, err := ctx.jable()
			if err != nil {
				return err
			}
			src, err := ctx.candidateSource(flags.source)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			b := &batch{
				out:    cmd.OutOrStdout(),
				log:    ctx.log("jable"),
				policy: cfg.Policy(),
				source: src,
				flags:  flags,
			}
			if store := ctx.optionalHistory(cmd.Context()); store != nil {
				defer store.Close()
				b.history = store
			}

			q := scraper.ListQuery{Path: path, Page: flags.page, Sort: flags.sort}
			picked, err := b.run(cmd.Context(), jable, q)
			if err != nil {
				return err
			}
			if flags.send {
				return ctx.sendMagnets(cmd.Context(), picked)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&flags.page, "page", 1, "Listing page")
	cmd.Flags().StringVar(&flags.sort, "sort", "", "Listing sort_by override (e.g. video_viewed, post_date)")
	cmd.Flags().StringVar(&flags.source, "source", "", "Source to search: sukebei, all, or a configured source")
	cmd.Flags().BoolVar(&flags.skipSeen, "skip-seen", false, "Skip codes already in the history")
	cmd.Flags().DurationVar(&flags.delay, "delay", 0, "Pause between searches")
	cmd.Flags().BoolVar(&flags.send, "send", false, "Also add the picked magnets to qBittorrent")

	cmd.AddCommand(newJableAPIsCommand(ctx))

	return cmd
}

func newJableAPIsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "apis",
		Short: "List the listing paths jable advertises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jable, err := ctx.jable()
			if err != nil {
				return err
			}
			apis, err := jable.APIs(cmd.Context())
			if err != nil {
				return fmt.Errorf("list jable paths: %w", err)
			}
			for _, api := range apis {
				fmt.Fprintln(cmd.OutOrStdout(), output.APILine(api))
			}
			return nil
		},
	}
}

// batch picks one candidate per listed video
type batch struct {
	out     io.Writer
	log     zerolog.Logger
	policy  ranking.SelectionPolicy
	source  scraper.CandidateSource
	history *history.Store
	flags   batchFlags
}

// run lists one page, searches every video in listing order and prints
// each pick as soon as it is made. It returns the picked locators.
func (b *batch) run(ctx context.Context, list scraper.VideoListSource, q scraper.ListQuery) ([]string, error) {
	videos, err := list.Videos(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%s listing: %w", list.Name(), err)
	}

	var picked []string
	searched := 0

	for _, v := range videos {
		if err := ctx.Err(); err != nil {
			return picked, err
		}
		if b.skip(ctx, v.Code) {
			continue
		}
		if searched > 0 && b.flags.delay > 0 {
			select {
			case <-ctx.Done():
				return picked, ctx.Err()
			case <-time.After(b.flags.delay):
			}
		}
		searched++

		found := scraper.SearchOrEmpty(ctx, b.source, scraper.SearchQuery{Key: v.Code}, b.log)
		best, ok := ranking.Best(found, b.policy)
		if !ok {
			b.log.Info().Str("code", v.Code).Int("candidates", len(found)).Msg("no candidate qualifies")
			continue
		}

		fmt.Fprintln(b.out, output.MagnetLine(best, v.Code))
		picked = append(picked, best.Locator)

		if b.history != nil {
			if err := b.history.Record(ctx, history.FromCandidate(v.Code, best)); err != nil {
				b.log.Warn().Err(err).Str("code", v.Code).Msg("record history")
			}
		}
	}

	b.log.Info().Int("videos", len(videos)).Int("picked", len(picked)).Msg("batch done")
	return picked, nil
}

func (b *batch) skip(ctx context.Context, code string) bool {
	if !b.flags.skipSeen || b.history == nil {
		return false
	}
	seen, err := b.history.Seen(ctx, code)
	if err != nil {
		b.log.Warn().Err(err).Str("code", code).Msg("history lookup")
		return false
	}
	if seen {
		b.log.Debug().Str("code", code).Msg("already picked, skipping")
	}
	return seen
}
