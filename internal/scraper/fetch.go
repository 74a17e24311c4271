package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// DefaultUserAgent is sent when the config does not set one
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"

// ErrHTTPStatus wraps non-200 responses
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// Fetcher downloads pages and parses them into goquery documents
type Fetcher struct {
	client    *http.Client
	userAgent string
	log       zerolog.Logger
}

// NewFetcher creates a fetcher with the given per-request timeout
func NewFetcher(timeout time.Duration, userAgent string, log zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		log:       log,
	}
}

// Document fetches rawURL and parses it. A failed attempt is retried once
// before the error is returned.
func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	doc, err := f.get(ctx, rawURL)
	if err == nil {
		return doc, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	f.log.Debug().Err(err).Str("url", rawURL).Msg("retrying fetch")
	return f.get(ctx, rawURL)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s", ErrHTTPStatus, resp.StatusCode, rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, nil
}

// resolve joins a possibly relative href onto base
func resolve(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
