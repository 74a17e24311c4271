package scraper

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/rs/zerolog"
)

// JableURL is the public listing site
const JableURL = "https://jable.tv"

const (
	jableDefaultPath  = "/hot/"
	jableCommonBlock  = "list_videos_common_videos_list"
	jableLatestBlock  = "list_videos_latest_videos_list"
	jableAdvertMarker = "[廣告]"
)

// jableListing is the block and default sort a listing path is served with
type jableListing struct {
	block string
	sort  string
}

var jableListings = map[string]jableListing{
	"/hot/":            {block: jableCommonBlock, sort: "video_viewed_week"},
	"/latest-updates/": {block: jableLatestBlock, sort: "post_date"},
	"/new-release/":    {block: jableCommonBlock, sort: "release_year"},
}

var jableOtherListing = jableListing{block: jableCommonBlock, sort: "post_date_and_popularity"}

// JableRootAPIs are always listed first by APIs
var JableRootAPIs = []string{"/hot/", "/latest-updates/", "/new-release/"}

// Jable lists videos from jable listing pages
type Jable struct {
	baseURL string
	fetch   *Fetcher
	log     zerolog.Logger
	now     func() time.Time
}

// NewJable creates a jable source rooted at baseURL
func NewJable(baseURL string, f *Fetcher, log zerolog.Logger) *Jable {
	if baseURL == "" {
		baseURL = JableURL
	}
	return &Jable{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetch:   f,
		log:     log,
		now:     time.Now,
	}
}

// Name returns the source name
func (j *Jable) Name() string {
	return "jable"
}

// NormalizeJablePath appends the trailing slash jable expects; an empty
// path means the hot list.
func NormalizeJablePath(path string) string {
	if path == "" {
		return jableDefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}

// ListURL builds the async block URL for q. An explicit sort overrides the
// path default; now supplies the cache-busting timestamp.
func (j *Jable) ListURL(q ListQuery, now time.Time) string {
	path := NormalizeJablePath(q.Path)

	listing, ok := jableListings[path]
	if !ok {
		listing = jableOtherListing
	}
	sortBy := listing.sort
	if q.Sort != "" {
		sortBy = q.Sort
	}

	return fmt.Sprintf("%s%s?mode=async&function=get_block&block_id=%s&sort_by=%s&from=%d&_=%d",
		j.baseURL, path,
		url.QueryEscape(listing.block), url.QueryEscape(sortBy),
		normalizePage(q.Page), now.UnixMilli())
}

// Videos fetches one listing page
func (j *Jable) Videos(ctx context.Context, q ListQuery) ([]ranking.VideoRef, error) {
	listURL := j.ListURL(q, j.now())
	j.log.Debug().Str("url", listURL).Msg("listing videos")

	doc, err := j.fetch.Document(ctx, listURL)
	if err != nil {
		return nil, err
	}
	return ParseJableVideos(doc), nil
}

// ParseJableVideos extracts video codes from a listing block. Adverts and
// entries without a link or title are skipped.
func ParseJableVideos(doc *goquery.Document) []ranking.VideoRef {
	var videos []ranking.VideoRef

	doc.Find("div.video-img-box .detail a").Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" {
			return
		}

		name := strings.TrimSpace(a.Text())
		if name == "" || strings.Contains(name, jableAdvertMarker) {
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

// APIs lists the listing paths advertised on the home page
func (j *Jable) APIs(ctx context.Context) ([]string, error) {
	doc, err := j.fetch.Document(ctx, j.baseURL+"/")
	if err != nil {
		return nil, err
	}
	return ParseJableAPIs(doc, j.baseURL), nil
}

// ParseJableAPIs collects tag and category links: deduped, sorted, made
// relative to baseURL, and prefixed with the root listings.
func ParseJableAPIs(doc *goquery.Document, baseURL string) []string {
	baseURL = strings.TrimRight(baseURL, "/")
	selector := fmt.Sprintf(`a[href^="%[1]s/tags/"], a[href^="%[1]s/categories/"]`, baseURL)

	seen := make(map[string]bool)
	doc.Find(selector).Each(func(i int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		seen[href] = true
	})

	links := make([]string, 0, len(seen))
	for href := range seen {
		links = append(links, href)
	}
	sort.Strings(links)

	apis := append([]string{}, JableRootAPIs...)
	for _, href := range links {
		path := strings.TrimPrefix(href, baseURL)
		switch path {
		case "", "/categories/", "/tags/":
			continue
		}
		apis = append(apis, path)
	}
	return apis
}
