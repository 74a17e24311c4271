package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/rs/zerolog"
)

// ErrNoResults is returned when no search pattern produced any candidate
var ErrNoResults = errors.New("no results found with any search pattern")

// GenericScraper attempts to scrape any torrent site using heuristics
type GenericScraper struct {
	name      string
	baseURL   string
	searchURL string // Discovered search URL pattern, %s is the key
	fetch     *Fetcher
	log       zerolog.Logger
}

// NewGenericScraper creates a scraper for a user-configured site
func NewGenericScraper(name, baseURL string, f *Fetcher, log zerolog.Logger) *GenericScraper {
	return &GenericScraper{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		fetch:   f,
		log:     log,
	}
}

// Name returns the source name
func (s *GenericScraper) Name() string {
	return s.name
}

// Search tries common search URL patterns until one yields candidates.
// Page and sort are not portable across sites and are ignored.
func (s *GenericScraper) Search(ctx context.Context, q SearchQuery) ([]ranking.Candidate, error) {
	searchPatterns := []string{
		s.baseURL + "/search/" + url.PathEscape(q.Key) + "/",
		s.baseURL + "/search/" + url.PathEscape(q.Key),
		s.baseURL + "/search?q=" + url.QueryEscape(q.Key),
		s.baseURL + "/?s=" + url.QueryEscape(q.Key),
		s.baseURL + "/torrents/?search=" + url.QueryEscape(q.Key),
	}

	if s.searchURL != "" {
		searchPatterns = append([]string{
			strings.Replace(s.searchURL, "%s", url.PathEscape(q.Key), 1),
		}, searchPatterns...)
	}

	var lastErr error
	for _, searchURL := range searchPatterns {
		doc, err := s.fetch.get(ctx, searchURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		results := s.extractCandidates(doc)
		if len(results) > 0 {
			s.searchURL = strings.Replace(searchURL, url.PathEscape(q.Key), "%s", 1)
			s.log.Debug().Str("pattern", s.searchURL).Int("count", len(results)).Msg("search pattern matched")
			return results, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoResults
}

// extractCandidates finds magnet links and reads size and seeders from the
// surrounding markup. Falls back to scanning tables.
func (s *GenericScraper) extractCandidates(doc *goquery.Document) []ranking.Candidate {
	var results []ranking.Candidate
	seen := make(map[string]bool)

	doc.Find("a[href^='magnet:']").Each(func(i int, link *goquery.Selection) {
		magnet, _ := link.Attr("href")
		if seen[magnet] {
			return
		}
		seen[magnet] = true

		c := ranking.Candidate{
			Locator: magnet,
			Label:   extractMagnetName(magnet),
			Source:  s.name,
		}
		s.extractInfoFromContext(link, &c)

		if c.Label != "" {
			results = append(results, c)
		}
	})

	if len(results) == 0 {
		results = s.extractFromTables(doc, seen)
	}

	return results
}

// extractInfoFromContext walks up to the nearest container carrying
// metadata for the link.
func (s *GenericScraper) extractInfoFromContext(link *goquery.Selection, c *ranking.Candidate) {
	containers := []string{"tr", "div.torrent", "div.result", "li", "article", "div"}

	for _, sel := range containers {
		parent := link.Closest(sel)
		if parent.Length() == 0 {
			continue
		}

		text := parent.Text()

		if c.Label == "" {
			parent.Find("a").Each(func(i int, a *goquery.Selection) {
				href, _ := a.Attr("href")
				if href == "" || strings.HasPrefix(href, "magnet:") {
					return
				}
				label := strings.TrimSpace(a.Text())
				if len(label) > len(c.Label) && !isBoilerplate(label) {
					c.Label = label
				}
			})
		}

		if c.Popularity == 0 {
			c.Popularity = extractNumber(text, []string{"seed", "se", "s:"})
		}
		if c.SizeGiB == 0 {
			c.SizeGiB = ranking.ParseSizeGiB(extractSize(text))
		}

		if c.Popularity > 0 || c.SizeGiB > 0 {
			break
		}
	}
}

// extractFromTables reads table rows that hold a magnet link
func (s *GenericScraper) extractFromTables(doc *goquery.Document, seen map[string]bool) []ranking.Candidate {
	var results []ranking.Candidate

	doc.Find("table tr").Each(func(i int, row *goquery.Selection) {
		if row.Find("th").Length() > 0 {
			return
		}

		c := ranking.Candidate{Source: s.name}
		row.Find("a").Each(func(k int, link *goquery.Selection) {
			href, _ := link.Attr("href")
			switch {
			case strings.HasPrefix(href, "magnet:"):
				c.Locator = href
				if c.Label == "" {
					c.Label = extractMagnetName(href)
				}
			case c.Label == "" && strings.Contains(href, "torrent"):
				c.Label = strings.TrimSpace(link.Text())
			}
		})
		if c.Locator == "" || seen[c.Locator] {
			return
		}
		seen[c.Locator] = true

		text := row.Text()
		c.Popularity = extractNumber(text, []string{"seed"})
		c.SizeGiB = ranking.ParseSizeGiB(extractSize(text))
		results = append(results, c)
	})

	return results
}

// ValidateURL normalizes rawURL and checks it is reachable and looks like a
// torrent site
func ValidateURL(ctx context.Context, f *Fetcher, rawURL string) (string, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL must be http or https")
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must have a host")
	}

	normalizedURL := parsed.Scheme + "://" + parsed.Host

	doc, err := f.get(ctx, normalizedURL)
	if err != nil {
		return "", fmt.Errorf("site unreachable: %w", err)
	}

	pageText := strings.ToLower(doc.Text())
	hasMagnet := doc.Find("a[href^='magnet:']").Length() > 0
	hasSearch := doc.Find("input[type='search'], input[name='q'], input[name='search'], form[action*='search']").Length() > 0
	hasTorrentWords := strings.Contains(pageText, "torrent") ||
		strings.Contains(pageText, "magnet") ||
		strings.Contains(pageText, "seeders") ||
		strings.Contains(pageText, "leechers")

	if !hasMagnet && !hasSearch && !hasTorrentWords {
		return "", fmt.Errorf("doesn't look like a torrent site")
	}

	return normalizedURL, nil
}

func extractMagnetName(magnet string) string {
	u, err := url.Parse(magnet)
	if err != nil {
		return ""
	}
	return u.Query().Get("dn")
}

var sizeRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(TIB|GIB|MIB|KIB|TB|GB|MB|KB)\b`)

// extractSize returns the first size-looking token, e.g. "1.5 GB"
func extractSize(text string) string {
	matches := sizeRegex.FindStringSubmatch(strings.ToUpper(text))
	if len(matches) >= 3 {
		return matches[1] + " " + matches[2]
	}
	return ""
}

var numberRegex = regexp.MustCompile(`\d+`)

// extractNumber returns the first number within 50 bytes of a hint
func extractNumber(text string, hints []string) int {
	textLower := strings.ToLower(text)

	for _, hint := range hints {
		idx := strings.Index(textLower, hint)
		if idx == -1 {
			continue
		}

		start := max(idx-50, 0)
		end := min(idx+len(hint)+50, len(textLower))

		for _, m := range numberRegex.FindAllString(textLower[start:end], -1) {
			if n, err := strconv.Atoi(m); err == nil && n < 1000000 {
				return n
			}
		}
	}

	return 0
}

func isBoilerplate(text string) bool {
	switch strings.ToLower(text) {
	case "home", "search", "login", "register", "about", "contact",
		"download", "magnet", "torrent", "category", "browse":
		return true
	}
	return len(text) < 3 || len(text) > 300
}
