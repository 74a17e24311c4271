package scraper

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/rs/zerolog"
)

// SukebeiURL is the public index
const SukebeiURL = "https://sukebei.nyaa.si/"

// Sukebei searches the sukebei torrent index
type Sukebei struct {
	baseURL string
	fetch   *Fetcher
	log     zerolog.Logger
}

// NewSukebei creates a sukebei source rooted at baseURL
func NewSukebei(baseURL string, f *Fetcher, log zerolog.Logger) *Sukebei {
	if baseURL == "" {
		baseURL = SukebeiURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Sukebei{baseURL: baseURL, fetch: f, log: log}
}

// Name returns the source name
func (s *Sukebei) Name() string {
	return "sukebei"
}

// SearchURL builds the listing URL for q: live-action videos, newest first
// unless a sort column is given.
func (s *Sukebei) SearchURL(q SearchQuery) string {
	var b strings.Builder
	b.WriteString(s.baseURL)
	b.WriteString("?f=0&c=2_2&q=")
	b.WriteString(url.QueryEscape(q.Key))
	b.WriteString("&p=")
	b.WriteString(strconv.Itoa(normalizePage(q.Page)))
	if q.Sort != "" {
		b.WriteString("&s=")
		b.WriteString(url.QueryEscape(q.Sort))
	}
	b.WriteString("&o=desc")
	return b.String()
}

// Search fetches one result page
func (s *Sukebei) Search(ctx context.Context, q SearchQuery) ([]ranking.Candidate, error) {
	searchURL := s.SearchURL(q)
	s.log.Debug().Str("url", searchURL).Msg("searching")

	doc, err := s.fetch.Document(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	found := ParseSukebei(doc, q.Sort == "leechers")
	s.log.Debug().Int("count", len(found)).Str("key", q.Key).Msg("parsed results")
	return found, nil
}

// ParseSukebei extracts candidates from a result page. Popularity carries
// the completed-download count, or the leecher count when byLeechers is set.
// Rows without a magnet are skipped.
func ParseSukebei(doc *goquery.Document, byLeechers bool) []ranking.Candidate {
	var results []ranking.Candidate

	doc.Find("table.torrent-list tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")

		locator := sukebeiMagnet(cells.Eq(2))
		if locator == "" {
			return
		}

		c := ranking.Candidate{
			Locator: locator,
			Label:   sukebeiName(cells.Eq(1)),
			SizeGiB: ranking.ParseSizeGiB(cells.Eq(3).Text()),
			Source:  "sukebei",
		}
		if byLeechers {
			c.Popularity = atoi(cells.Eq(6).Text())
		} else {
			c.Popularity = atoi(cells.Last().Text())
		}
		results = append(results, c)
	})

	return results
}

// sukebeiMagnet reads the second link of the links cell and drops the
// tracker parameters.
func sukebeiMagnet(cell *goquery.Selection) string {
	href, _ := cell.Find("a").Eq(1).Attr("href")
	if href == "" {
		return ""
	}
	return strings.SplitN(href, "&", 2)[0]
}

func sukebeiName(cell *goquery.Selection) string {
	link := cell.Find("a:not(.comments)").First()
	if link.Length() == 0 {
		link = cell.Find("a").First()
	}
	return strings.NewReplacer("\n", "", "\t", "").Replace(link.Text())
}

// atoi parses a listed count, treating anything malformed as zero
func atoi(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(text, ",", "")))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
