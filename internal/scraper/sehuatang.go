package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/rs/zerolog"
)

// SehuatangURL is the public forum
const SehuatangURL = "https://www.sehuatang.org"

// SehuatangForums are the boards the CLI suggests
var SehuatangForums = []string{"/forum-103", "/forum-151", "/forum-36", "/forum-37"}

var (
	forumRe     = regexp.MustCompile(`^/forum-(\d+)$`)
	forumPageRe = regexp.MustCompile(`^/forum-(\d+)-(\d+)$`)
)

// Sehuatang lists forum threads and reads the magnet posted in each
type Sehuatang struct {
	baseURL string
	fetch   *Fetcher
	log     zerolog.Logger
}

// NewSehuatang creates a sehuatang source rooted at baseURL
func NewSehuatang(baseURL string, f *Fetcher, log zerolog.Logger) *Sehuatang {
	if baseURL == "" {
		baseURL = SehuatangURL
	}
	return &Sehuatang{baseURL: strings.TrimRight(baseURL, "/"), fetch: f, log: log}
}

// Name returns the source name
func (s *Sehuatang) Name() string {
	return "sehuatang"
}

// ForumURL maps a board path to the page path served for it:
//
//	/forum-103        -> /forum-103-<page>.html (page 1 when unset)
//	/forum-103-4      -> /forum-103-<page>.html, or /forum-103-4.html when unset
//
// A trailing ".html" on the input is ignored.
func ForumURL(path string, page int) (string, error) {
	p := strings.Replace(path, ".html", "", 1)

	if m := forumRe.FindStringSubmatch(p); m != nil {
		return fmt.Sprintf("/forum-%s-%d.html", m[1], normalizePage(page)), nil
	}
	if m := forumPageRe.FindStringSubmatch(p); m != nil {
		if page > 0 {
			return fmt.Sprintf("/forum-%s-%d.html", m[1], page), nil
		}
		return p + ".html", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPath, path)
}

// PageURL returns the absolute URL of a board page
func (s *Sehuatang) PageURL(q ListQuery) (string, error) {
	path, err := ForumURL(q.Path, q.Page)
	if err != nil {
		return "", err
	}
	return s.baseURL + path, nil
}

// Videos fetches the thread list of one board page
func (s *Sehuatang) Videos(ctx context.Context, q ListQuery) ([]ranking.VideoRef, error) {
	pageURL, err := s.PageURL(q)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("url", pageURL).Msg("listing threads")

	doc, err := s.fetch.Document(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	videos := ParseSehuatangThreads(doc)
	for i := range videos {
		videos[i].URL = resolve(s.baseURL+"/", videos[i].URL)
	}
	return videos, nil
}

// ParseSehuatangThreads extracts normal (non-pinned) threads
func ParseSehuatangThreads(doc *goquery.Document) []ranking.VideoRef {
	var videos []ranking.VideoRef

	doc.Find(`table#threadlisttableid tbody[id^="normalthread"] a.xst`).Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		name := a.Text()
		if href == "" || strings.TrimSpace(name) == "" {
			return
		}
		videos = append(videos, ranking.VideoRef{
			Code: strings.Fields(name)[0],
			Name: name,
			URL:  href,
		})
	})

	return videos
}

// Magnet reads the magnet posted in a thread. A thread without one yields
// an empty string and no error.
func (s *Sehuatang) Magnet(ctx context.Context, threadURL string) (string, error) {
	doc, err := s.fetch.Document(ctx, resolve(s.baseURL+"/", threadURL))
	if err != nil {
		return "", err
	}
	return ParseSehuatangMagnet(doc), nil
}

// ParseSehuatangMagnet returns the first code block entry of a thread,
// with entities decoded.
func ParseSehuatangMagnet(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("div.blockcode li").First().Text())
}
