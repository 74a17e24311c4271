package scraper

import (
	"context"
	"strings"

	"github.com/litescript/ls-magnet/internal/ranking"
)

// StaticSource serves fixed candidates keyed by search key. It stands in
// for a site when none is configured and backs command tests.
type StaticSource struct {
	name       string
	candidates map[string][]ranking.Candidate
	err        error
}

// NewStaticSource creates a static source. Keys are matched case-insensitively.
func NewStaticSource(name string, candidates map[string][]ranking.Candidate) *StaticSource {
	norm := make(map[string][]ranking.Candidate, len(candidates))
	for k, v := range candidates {
		norm[strings.ToLower(k)] = v
	}
	return &StaticSource{name: name, candidates: norm}
}

// Failing returns a copy of s whose searches all return err
func (s *StaticSource) Failing(err error) *StaticSource {
	return &StaticSource{name: s.name, candidates: s.candidates, err: err}
}

// Name returns the source name
func (s *StaticSource) Name() string {
	return s.name
}

// Search returns a copy of the candidates registered for q.Key
func (s *StaticSource) Search(ctx context.Context, q SearchQuery) ([]ranking.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	found := s.candidates[strings.ToLower(q.Key)]
	out := make([]ranking.Candidate, len(found))
	copy(out, found)
	return out, nil
}

// StaticVideos serves a fixed video list for every page
type StaticVideos struct {
	name   string
	videos []ranking.VideoRef
}

// NewStaticVideos creates a fixed video listing
func NewStaticVideos(name string, videos ...ranking.VideoRef) *StaticVideos {
	return &StaticVideos{name: name, videos: videos}
}

// Name returns the source name
func (s *StaticVideos) Name() string {
	return s.name
}

// Videos returns the fixed list
func (s *StaticVideos) Videos(ctx context.Context, q ListQuery) ([]ranking.VideoRef, error) {
	return s.videos, nil
}
