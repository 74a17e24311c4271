package ranking

import "strings"

// DefaultTopN is the popularity cut used when a policy leaves it unset
const DefaultTopN = 3

// DefaultSubtitleMarkers are three spellings of "Chinese subtitles"
var DefaultSubtitleMarkers = []string{"中文", "中字", "字幕"}

// SelectionPolicy configures Best. Fields are taken literally except
// PopularityTopN, which falls back to DefaultTopN since an empty pool could
// never pick. Start from DefaultPolicy to get the stock floor and markers.
type SelectionPolicy struct {
	// MinSizeGiB is an advisory floor: it is ignored when nothing reaches it.
	// Zero disables it.
	MinSizeGiB float64

	// SubtitleMarkers are matched as case-sensitive substrings of the label.
	// An empty list skips the subtitle stage.
	SubtitleMarkers []string

	// PopularityTopN bounds the unsubtitled pool before the size sort.
	// Values <= 0 use DefaultTopN.
	PopularityTopN int
}

// DefaultPolicy returns the policy the batch driver uses out of the box
func DefaultPolicy() SelectionPolicy {
	markers := make([]string, len(DefaultSubtitleMarkers))
	copy(markers, DefaultSubtitleMarkers)
	return SelectionPolicy{
		MinSizeGiB:      2,
		SubtitleMarkers: markers,
		PopularityTopN:  DefaultTopN,
	}
}

// HasSubtitle reports whether the label carries any of the policy markers
func (p SelectionPolicy) HasSubtitle(c Candidate) bool {
	for _, m := range p.SubtitleMarkers {
		if m != "" && strings.Contains(c.Label, m) {
			return true
		}
	}
	return false
}

func (p SelectionPolicy) topN() int {
	if p.PopularityTopN <= 0 {
		return DefaultTopN
	}
	return p.PopularityTopN
}

// WorkingSet applies the size floor. When the floor would remove every
// candidate the original list is returned instead.
func (p SelectionPolicy) WorkingSet(candidates []Candidate) []Candidate {
	sizeFiltered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.SizeGiB >= p.MinSizeGiB {
			sizeFiltered = append(sizeFiltered, c)
		}
	}
	if len(sizeFiltered) > 0 {
		return sizeFiltered
	}
	return candidates
}

// Best picks at most one candidate:
//
//  1. size floor (inclusive), falling back to the full list
//  2. subtitled candidates win the branch if any exist
//  3. subtitled: largest first; otherwise top-N by popularity, then largest
//
// The second result is false when there is nothing to pick.
func Best(candidates []Candidate, policy SelectionPolicy) (Candidate, bool) {
	original := usable(candidates)
	if len(original) == 0 {
		return Candidate{}, false
	}

	workingSet := policy.WorkingSet(original)

	subtitled := make([]Candidate, 0, len(workingSet))
	for _, c := range workingSet {
		if policy.HasSubtitle(c) {
			subtitled = append(subtitled, c)
		}
	}

	var pool []Candidate
	if len(subtitled) > 0 {
		pool = subtitled
		sortBySize(pool)
	} else {
		pool = make([]Candidate, len(workingSet))
		copy(pool, workingSet)
		sortByPopularity(pool)
		if n := policy.topN(); len(pool) > n {
			pool = pool[:n]
		}
		sortBySize(pool)
	}

	if len(pool) == 0 {
		return Candidate{}, false
	}
	return pool[0], true
}
