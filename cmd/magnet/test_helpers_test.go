package main

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-magnet/internal/ranking"
)

var (
	candA = ranking.Candidate{Locator: "magnet:?xt=urn:btih:aaaa", Label: "[HD] SSIS-177", SizeGiB: 7.9, Popularity: 124}
	candB = ranking.Candidate{Locator: "magnet:?xt=urn:btih:bbbb", Label: "SSIS-177 中文字幕", SizeGiB: 3.3, Popularity: 511}
	candC = ranking.Candidate{Locator: "magnet:?xt=urn:btih:cccc", Label: "SSIS-177", SizeGiB: 2.7, Popularity: 1179}
	candD = ranking.Candidate{Locator: "magnet:?xt=urn:btih:dddd", Label: "FSDSS-288", SizeGiB: 4.2, Popularity: 80}
)

var sukebeiResults = map[string][]ranking.Candidate{
	"SSIS-177":  {candA, candB, candC},
	"FSDSS-288": {candD},
}

// sites serves every scraped site from one test server:
//
//	/sukebei/  search results keyed by the q parameter
//	/jable/    home page and the /hot/ listing
//	/sht/      one board page and its threads
//	/          a generic torrent site with a search form
type sites struct {
	*httptest.Server

	mu       sync.Mutex
	searches []string
}

func newSites(t *testing.T) *sites {
	t.Helper()
	s := &sites{}
	mux := http.NewServeMux()

	mux.HandleFunc("/sukebei/", func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("q")
		s.mu.Lock()
		s.searches = append(s.searches, key)
		s.mu.Unlock()
		fmt.Fprint(w, sukebeiPage(sukebeiResults[key]))
	})
	mux.HandleFunc("/jable/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jable/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><body>
<a href="%[1]s/jable/tags/pov/">POV</a>
<a href="%[1]s/jable/categories/chinese-subtitle/">中文字幕</a>
<a href="%[1]s/jable/tags/pov/">POV again</a>
</body></html>`, s.URL)
	})
	mux.HandleFunc("/jable/hot/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, jableList("SSIS-177", "FSDSS-288", "DVAJ-532"))
	})
	mux.HandleFunc("/sht/forum-103-1.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><table id="threadlisttableid">
<tbody id="stickthread_1"><tr><th><a href="thread-1-1-1.html" class="xst">Rules</a></th></tr></tbody>
<tbody id="normalthread_1001"><tr><th><a href="thread-1001-1-1.html" class="xst">SSIS-177 [7.9G]</a></th></tr></tbody>
<tbody id="normalthread_1002"><tr><th><a href="thread-1002-1-1.html" class="xst">FSDSS-288 no magnet</a></th></tr></tbody>
</table></body></html>`)
	})
	mux.HandleFunc("/sht/thread-1001-1-1.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="blockcode"><ol><li>magnet:?xt=urn:btih:eeee</li></ol></div></body></html>`)
	})
	mux.HandleFunc("/sht/thread-1002-1-1.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>see attachment</p></body></html>`)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><table>
<tr><td>seeders: 9</td><td><a href="magnet:?xt=urn:btih:ffff&amp;dn=%[1]s">%[1]s</a></td><td>1.5 GB</td></tr>
</table></body></html>`, html.EscapeString(r.URL.Query().Get("q")))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><form action="/search"><input name="q"></form></body></html>`)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *sites) searched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.searches...)
}

func sukebeiPage(cs []ranking.Candidate) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="torrent-list"><tbody>`)
	for i, c := range cs {
		fmt.Fprintf(&b, `<tr><td>cat</td><td><a href="/view/%d">%s</a></td>`, i, html.EscapeString(c.Label))
		fmt.Fprintf(&b, `<td><a href="/download/%d.torrent">t</a><a href="%s&amp;tr=udp%%3A%%2F%%2Ftracker">m</a></td>`, i, c.Locator)
		fmt.Fprintf(&b, `<td>%.1f GiB</td><td>2021-09-10 12:01</td><td>1</td><td>2</td><td>%d</td></tr>`, c.SizeGiB, c.Popularity)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

func jableList(codes ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	for _, code := range codes {
		fmt.Fprintf(&b, `<div class="video-img-box"><div class="detail"><h6 class="title"><a href="/videos/%s/">%s title</a></h6></div></div>`,
			strings.ToLower(code), code)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// fakeQbit records the magnets added through the Web API
type fakeQbit struct {
	*httptest.Server

	mu       sync.Mutex
	added    []string
	category string
	existing string
}

func newFakeQbit(t *testing.T) *fakeQbit {
	t.Helper()
	q := &fakeQbit{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "SID", Value: "test"})
		fmt.Fprint(w, "Ok.")
	})
	mux.HandleFunc("/api/v2/torrents/info", func(w http.ResponseWriter, r *http.Request) {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.existing == "" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprintf(w, `[{"hash":%q,"name":"x"}]`, q.existing)
	})
	mux.HandleFunc("/api/v2/torrents/add", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q.mu.Lock()
		q.added = append(q.added, strings.Split(r.PostForm.Get("urls"), "\n")...)
		q.category = r.PostForm.Get("category")
		q.mu.Unlock()
		fmt.Fprint(w, "Ok.")
	})
	q.Server = httptest.NewServer(mux)
	t.Cleanup(q.Close)
	return q
}

func (q *fakeQbit) snapshot() ([]string, string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.added...), q.category
}

// tomlSection returns the [qbittorrent] section pointing at q
func (q *fakeQbit) tomlSection(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(q.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return fmt.Sprintf("[qbittorrent]\nhost = %q\nport = %s\ncategory = \"jav\"\n", host, port)
}

type cliEnv struct {
	sites       *sites
	configPath  string
	historyPath string
}

// newCLIEnv writes a config pointing every site at a local test server.
// extra is appended to the config file.
func newCLIEnv(t *testing.T, extra string) *cliEnv {
	t.Helper()
	s := newSites(t)
	dir := t.TempDir()

	env := &cliEnv{
		sites:       s,
		configPath:  filepath.Join(dir, "config.toml"),
		historyPath: filepath.Join(dir, "history.db"),
	}

	cfg := fmt.Sprintf(`[sites]
sukebei = "%[1]s/sukebei/"
jable = "%[1]s/jable"
sehuatang = "%[1]s/sht"
timeout_seconds = 5

[history]
enabled = true
path = %[2]q

[logging]
level = "warn"

%[3]s`, s.URL, env.historyPath, extra)
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o644))
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr, _, err := runCLIContext(t, args...)
	return stdout, stderr, err
}

// runCLIContext is runCLI that also hands back the command context for
// inspection after the run
func runCLIContext(t *testing.T, args ...string) (string, string, *commandContext, error) {
	t.Helper()
	cmd, cc := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := execute(context.Background(), cmd, cc)
	return stdout.String(), stderr.String(), cc, err
}

func lines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
