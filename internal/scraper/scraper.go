// Package scraper provides the sources that feed the ranking core. Each
// source fetches an index page over HTTP, extracts rows with goquery and
// returns plain ranking values. Sites are modelled as two interfaces: one
// yields magnet candidates for a search key, the other yields video codes
// for a listing page.
package scraper

import (
	"context"
	"errors"

	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/rs/zerolog"
)

// ErrUnsupportedPath is returned when a listing path has no URL mapping
var ErrUnsupportedPath = errors.New("unsupported listing path")

// SearchQuery describes one candidate search
type SearchQuery struct {
	Key  string
	Page int
	Sort string // "", "downloads", "size" or "leechers"
}

// ListQuery describes one listing page
type ListQuery struct {
	Path string
	Page int
	Sort string
}

// CandidateSource yields magnet candidates for a search key
type CandidateSource interface {
	// Name returns the source name
	Name() string

	// Search queries for candidates
	Search(ctx context.Context, q SearchQuery) ([]ranking.Candidate, error)
}

// VideoListSource yields the videos listed on one page
type VideoListSource interface {
	Name() string
	Videos(ctx context.Context, q ListQuery) ([]ranking.VideoRef, error)
}

// MultiSource aggregates results from multiple sources
type MultiSource struct {
	sources []CandidateSource
	log     zerolog.Logger
}

// NewMultiSource creates a source that queries every given source in order
func NewMultiSource(log zerolog.Logger, sources ...CandidateSource) *MultiSource {
	return &MultiSource{sources: sources, log: log}
}

// Name returns the source name
func (m *MultiSource) Name() string {
	return "all"
}

// Search queries all sources and merges results. A failing source is logged
// and skipped; the merged list may be empty.
func (m *MultiSource) Search(ctx context.Context, q SearchQuery) ([]ranking.Candidate, error) {
	var results []ranking.Candidate

	for _, s := range m.sources {
		found, err := s.Search(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			m.log.Warn().Err(err).Str("source", s.Name()).Str("key", q.Key).Msg("source failed")
			continue
		}
		results = append(results, found...)
	}

	return results, nil
}

// SearchOrEmpty runs a search and collapses any failure into an empty list,
// logging it. The ranking core never sees fetch errors.
func SearchOrEmpty(ctx context.Context, src CandidateSource, q SearchQuery, log zerolog.Logger) []ranking.Candidate {
	found, err := src.Search(ctx, q)
	if err != nil {
		log.Warn().Err(err).Str("source", src.Name()).Str("key", q.Key).Msg("search failed")
		return nil
	}
	return found
}

func normalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
