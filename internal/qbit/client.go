// Package qbit sends selected magnets to qBittorrent through its Web API.
// It handles authentication, adding magnets with a save path and category,
// and listing existing torrents so duplicates can be skipped.
package qbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// ErrLoginFailed is returned when qBittorrent rejects the credentials
var ErrLoginFailed = errors.New("qBittorrent login failed")

// Client interfaces with qBittorrent Web API
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	loggedIn   bool
}

// TorrentInfo is the subset of torrent fields the CLI reads
type TorrentInfo struct {
	Hash     string `json:"hash"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	State    string `json:"state"`
	Category string `json:"category"`
	SavePath string `json:"save_path"`
}

// AddOptions are applied to every magnet of one add call
type AddOptions struct {
	SavePath string
	Category string
	Paused   bool
}

// BaseURL builds the Web UI address for host and port
func BaseURL(host string, port int) string {
	if strings.Contains(host, "://") {
		return fmt.Sprintf("%s:%d", strings.TrimRight(host, "/"), port)
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// NewClient creates a new qBittorrent API client for baseURL
func NewClient(baseURL, username, password string) *Client {
	jar, _ := cookiejar.New(nil)

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// Login authenticates with the qBittorrent API
func (c *Client) Login(ctx context.Context) error {
	data := url.Values{}
	data.Set("username", c.username)
	data.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v2/auth/login", strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// qBittorrent rejects logins whose Referer does not match the host
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to qBittorrent: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "Ok." {
		return fmt.Errorf("%w: %s", ErrLoginFailed, strings.TrimSpace(string(body)))
	}

	c.loggedIn = true
	return nil
}

// Version returns the qBittorrent application version
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v2/app/version", nil)
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return strings.TrimSpace(string(body)), nil
}

// AddMagnet adds a torrent via magnet link
func (c *Client) AddMagnet(ctx context.Context, magnet string, opts AddOptions) error {
	return c.AddMagnets(ctx, []string{magnet}, opts)
}

// AddMagnets adds several magnets in one request
func (c *Client) AddMagnets(ctx context.Context, magnets []string, opts AddOptions) error {
	if len(magnets) == 0 {
		return nil
	}

	data := url.Values{}
	data.Set("urls", strings.Join(magnets, "\n"))
	if opts.SavePath != "" {
		data.Set("savepath", opts.SavePath)
	}
	if opts.Category != "" {
		data.Set("category", opts.Category)
	}
	if opts.Paused {
		data.Set("paused", "true")
	}
	encoded := data.Encode()

	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v2/torrents/add", strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) == "Fails." {
		return fmt.Errorf("failed to add torrent: qBittorrent refused %d magnet(s)", len(magnets))
	}
	return nil
}

// Torrents lists torrents, restricted to category when it is set
func (c *Client) Torrents(ctx context.Context, category string) ([]TorrentInfo, error) {
	endpoint := c.baseURL + "/api/v2/torrents/info"
	if category != "" {
		endpoint += "?category=" + url.QueryEscape(category)
	}

	resp, err := c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var torrents []TorrentInfo
	if err := json.NewDecoder(resp.Body).Decode(&torrents); err != nil {
		return nil, fmt.Errorf("decode torrents: %w", err)
	}
	return torrents, nil
}

// do logs in when needed, sends the request built by newReq and retries
// once after re-authenticating if the session has expired.
func (c *Client) do(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	if !c.loggedIn {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	for attempt := 0; ; attempt++ {
		req, err := newReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusForbidden && attempt == 0 {
			resp.Body.Close()
			c.loggedIn = false
			if err := c.Login(ctx); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("qBittorrent %s: %d %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return resp, nil
	}
}

// HashFromMagnet returns the lower-cased info hash of a magnet link, or ""
func HashFromMagnet(magnet string) string {
	u, err := url.Parse(magnet)
	if err != nil || u.Scheme != "magnet" {
		return ""
	}
	for _, xt := range u.Query()["xt"] {
		if h, ok := strings.CutPrefix(xt, "urn:btih:"); ok {
			return strings.ToLower(h)
		}
	}
	return ""
}
