package ranking

import (
	"fmt"
	"sort"
)

// SortKey selects the descending order applied by FilterAndSort
type SortKey string

const (
	SortNone         SortKey = ""
	SortByPopularity SortKey = "popularity"
	SortBySize       SortKey = "sizeGiB"
)

// ParseSortKey maps the CLI sort names to a key. "downloads" and "leechers"
// both rank by popularity; the source decides which count fills it.
func ParseSortKey(name string) (SortKey, error) {
	switch name {
	case "":
		return SortNone, nil
	case "size", string(SortBySize):
		return SortBySize, nil
	case "downloads", "leechers", string(SortByPopularity):
		return SortByPopularity, nil
	default:
		return SortNone, fmt.Errorf("unknown sort %q (want size, downloads or leechers)", name)
	}
}

// FilterOptions bounds the candidates kept by FilterAndSort.
// A zero bound means no constraint on that side.
type FilterOptions struct {
	SortKey       SortKey
	MinSizeGiB    float64
	MaxSizeGiB    float64
	MinPopularity int
	MaxPopularity int
}

// Keep reports whether c passes the bounds. Both ends are exclusive.
func (o FilterOptions) Keep(c Candidate) bool {
	if o.MinSizeGiB != 0 && !(c.SizeGiB > o.MinSizeGiB) {
		return false
	}
	if o.MaxSizeGiB != 0 && !(c.SizeGiB < o.MaxSizeGiB) {
		return false
	}
	if o.MinPopularity != 0 && !(c.Popularity > o.MinPopularity) {
		return false
	}
	if o.MaxPopularity != 0 && !(c.Popularity < o.MaxPopularity) {
		return false
	}
	return true
}

// FilterAndSort returns the candidates that pass opts, ordered descending by
// opts.SortKey. Ties keep their input order. The input is not modified.
func FilterAndSort(candidates []Candidate, opts FilterOptions) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range usable(candidates) {
		if opts.Keep(c) {
			kept = append(kept, c)
		}
	}

	switch opts.SortKey {
	case SortBySize:
		sortBySize(kept)
	case SortByPopularity:
		sortByPopularity(kept)
	}
	return kept
}

func sortBySize(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].SizeGiB > cs[j].SizeGiB
	})
}

func sortByPopularity(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Popularity > cs[j].Popularity
	})
}
