// Package ranking holds the magnet decision logic: candidate filtering,
// ordering, and the best-candidate policy used by the batch driver.
// Everything here is a pure function over in-memory slices. Sources convert
// their failures to empty slices before calling in.
package ranking

import (
	"math"
	"strconv"
	"strings"
)

// Candidate is a single magnet record found by a source
type Candidate struct {
	Locator    string  // magnet URI, the only identity
	Label      string  // release name as listed
	SizeGiB    float64 // size in gibibytes, 0 when unknown
	Popularity int     // downloads or leechers, ranking only
	Source     string  // name of the index that produced it
}

// Usable reports whether the candidate can be selected at all
func (c Candidate) Usable() bool {
	return c.Locator != ""
}

// VideoRef identifies a video on a listing page
type VideoRef struct {
	Code string
	Name string
	URL  string // detail page, when the listing has one
}

var unitFactors = map[string]float64{
	"TIB": 1024,
	"TB":  1024,
	"GIB": 1,
	"GB":  1,
	"MIB": 1.0 / 1024,
	"MB":  1.0 / 1024,
	"KIB": 1.0 / (1024 * 1024),
	"KB":  1.0 / (1024 * 1024),
}

// ParseSizeGiB converts a listed size such as "1.4 GiB" or "700 MiB" to GiB.
// Unknown or missing units contribute a zero factor, so the result is 0
// rather than an error.
func ParseSizeGiB(text string) float64 {
	fields := strings.Fields(strings.ReplaceAll(text, ",", ""))
	if len(fields) == 0 {
		return 0
	}

	raw, unit := fields[0], ""
	if len(fields) > 1 {
		unit = strings.ToUpper(fields[1])
	} else if i := strings.IndexFunc(raw, isUnitRune); i > 0 {
		// "1.4GiB"
		raw, unit = raw[:i], strings.ToUpper(raw[i:])
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return sanitizeSize(n * unitFactors[unit])
}

func isUnitRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// sanitizeSize maps NaN, infinities and negatives to zero.
func sanitizeSize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func sanitizePopularity(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// usable returns the candidates with a locator, with numeric fields coerced.
// The input slice is never modified.
func usable(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Usable() {
			continue
		}
		c.SizeGiB = sanitizeSize(c.SizeGiB)
		c.Popularity = sanitizePopularity(c.Popularity)
		out = append(out, c)
	}
	return out
}
