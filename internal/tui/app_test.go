package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/litescript/ls-magnet/internal/qbit"
	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/litescript/ls-magnet/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	candA = ranking.Candidate{Locator: "magnet:?xt=urn:btih:aaaa", Label: "[HD] SSIS-177", SizeGiB: 7.9, Popularity: 124, Source: "sukebei"}
	candB = ranking.Candidate{Locator: "magnet:?xt=urn:btih:bbbb", Label: "SSIS-177 中文字幕", SizeGiB: 3.3, Popularity: 511, Source: "sukebei"}
	candC = ranking.Candidate{Locator: "magnet:?xt=urn:btih:cccc", Label: "SSIS-177", SizeGiB: 2.7, Popularity: 1179, Source: "sukebei"}
)

type fakeSender struct {
	mu   sync.Mutex
	got  []string
	opts qbit.AddOptions
	err  error
}

func (f *fakeSender) AddMagnet(ctx context.Context, magnet string, opts qbit.AddOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, magnet)
	f.opts = opts
	return f.err
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func noSubtitlePolicy() ranking.SelectionPolicy {
	p := ranking.DefaultPolicy()
	p.SubtitleMarkers = []string{"no-such-marker"}
	return p
}

// loaded returns a model that has received the search results
func loaded(t *testing.T, opts Options) Model {
	t.Helper()
	if opts.Source == nil {
		opts.Source = scraper.NewStaticSource("sukebei", map[string][]ranking.Candidate{
			"SSIS-177": {candA, candB, candC},
		})
	}
	if opts.Query.Key == "" {
		opts.Query.Key = "SSIS-177"
	}
	m := NewModel(context.Background(), opts)
	require.True(t, m.searching)

	msg := m.fetch(m.key)()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func TestResultsMarkHotThenBigWinner(t *testing.T) {
	m := loaded(t, Options{Policy: noSubtitlePolicy()})

	assert.False(t, m.searching)
	require.Len(t, m.Results(), 3)

	best, ok := m.Best()
	require.True(t, ok)
	assert.Equal(t, candA.Locator, best.Locator)
	assert.Equal(t, 0, m.cursor, "cursor starts on the best candidate")
	assert.Contains(t, m.View(), "★")
}

func TestConfigReloadReranks(t *testing.T) {
	m := loaded(t, Options{Policy: noSubtitlePolicy()})

	m, _ = update(t, m, ConfigReloadMsg{Policy: ranking.DefaultPolicy()})

	best, ok := m.Best()
	require.True(t, ok)
	assert.Equal(t, candB.Locator, best.Locator, "subtitle marker now matches")
	assert.Equal(t, "Selection policy reloaded", m.statusMsg)

	m, _ = update(t, m, ConfigReloadMsg{Err: errors.New("bad toml")})
	assert.Contains(t, m.statusMsg, "bad toml")
	best, _ = m.Best()
	assert.Equal(t, candB.Locator, best.Locator, "failed reload keeps the last policy")
}

func TestSortCycleKeepsCursorOnCandidate(t *testing.T) {
	m := loaded(t, Options{Policy: noSubtitlePolicy()})
	require.Equal(t, candA.Locator, m.Results()[m.cursor].Locator)

	m, _ = update(t, m, keyMsg("s"))
	assert.Equal(t, ranking.SortByPopularity, m.sortKey)
	assert.Equal(t, []string{candC.Locator, candB.Locator, candA.Locator}, locators(m.Results()))
	assert.Equal(t, candA.Locator, m.Results()[m.cursor].Locator)

	m, _ = update(t, m, keyMsg("s"))
	assert.Equal(t, ranking.SortBySize, m.sortKey)
	assert.Equal(t, []string{candA.Locator, candB.Locator, candC.Locator}, locators(m.Results()))

	m, _ = update(t, m, keyMsg("s"))
	assert.Equal(t, ranking.SortNone, m.sortKey)
}

func TestFilterBoundsApply(t *testing.T) {
	m := loaded(t, Options{Filter: ranking.FilterOptions{MinSizeGiB: 3}, Policy: noSubtitlePolicy()})
	assert.Equal(t, []string{candA.Locator, candB.Locator}, locators(m.Results()))
}

func TestEnterPrintsMagnetLine(t *testing.T) {
	m := loaded(t, Options{Policy: noSubtitlePolicy()})

	m, _ = update(t, m, keyMsg("j"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	_, quit := cmd().(tea.QuitMsg)
	assert.True(t, quit)
	assert.Equal(t, candB.Locator+"&dn=SSIS-177&size=3.30GB", m.Chosen())
}

func TestSendToQbittorrent(t *testing.T) {
	sender := &fakeSender{}
	m := loaded(t, Options{
		Policy: noSubtitlePolicy(),
		Sender: sender,
		Add:    qbit.AddOptions{Category: "jav"},
	})

	m, cmd := update(t, m, keyMsg("a"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Equal(t, []string{candA.Locator}, sender.got)
	assert.Equal(t, "jav", sender.opts.Category)
	assert.True(t, m.sent[candA.Locator])
	assert.Contains(t, m.View(), "✓")
}

func TestSendFailureAndMissingSender(t *testing.T) {
	m := loaded(t, Options{Policy: noSubtitlePolicy()})
	m, cmd := update(t, m, keyMsg("a"))
	assert.Nil(t, cmd)
	assert.Equal(t, "qBittorrent is not configured", m.statusMsg)

	m = loaded(t, Options{Policy: noSubtitlePolicy(), Sender: &fakeSender{err: errors.New("refused")}})
	m, cmd = update(t, m, keyMsg("a"))
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.statusMsg, "refused")
	assert.Empty(t, m.sent)
}

func TestSearchFailureShowsNoCandidates(t *testing.T) {
	failing := scraper.NewStaticSource("sukebei", nil).Failing(errors.New("timeout"))
	m := loaded(t, Options{Source: failing, Policy: noSubtitlePolicy()})

	assert.Contains(t, m.statusMsg, "timeout")
	assert.Empty(t, m.Results())
	_, ok := m.Best()
	assert.False(t, ok)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "No candidates")
}

func TestStaleResultsIgnored(t *testing.T) {
	m := loaded(t, Options{Policy: noSubtitlePolicy()})

	m, _ = update(t, m, searchResultMsg{key: "OTHER-1", results: []ranking.Candidate{candC}})
	assert.Len(t, m.Results(), 3)
}

func TestNewSearchFromInput(t *testing.T) {
	m := loaded(t, Options{Policy: noSubtitlePolicy()})

	m, _ = update(t, m, keyMsg("/"))
	require.True(t, m.input.Focused())

	m.input.SetValue("FSDSS-288")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.False(t, m.input.Focused())
	assert.True(t, m.searching)
	assert.Equal(t, "FSDSS-288", m.key)

	m, _ = update(t, m, m.fetch("FSDSS-288")())
	assert.Empty(t, m.Results())
}

func TestEmptyKeyStartsInInput(t *testing.T) {
	m := NewModel(context.Background(), Options{Source: scraper.NewStaticSource("s", nil)})
	assert.True(t, m.input.Focused())
	assert.False(t, m.searching)
}

func TestQuitKeys(t *testing.T) {
	m := loaded(t, Options{Policy: noSubtitlePolicy()})
	_, cmd := update(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	_, quit := cmd().(tea.QuitMsg)
	assert.True(t, quit)
	assert.Empty(t, m.Chosen())
}

func TestStyleHelpers(t *testing.T) {
	s := TruncateString("SSIS-177 中文字幕", 12)
	assert.LessOrEqual(t, lipgloss.Width(s), 12)
	assert.True(t, strings.HasSuffix(s, "…"))
	assert.Equal(t, "short", TruncateString("short", 12))

	assert.Equal(t, "  7.90", PadLeft("7.90", 6))
	assert.Equal(t, "ab    ", PadRight("ab", 6))

	assert.Equal(t, "#ffffff", normalizeHex("fff"))
	assert.Equal(t, "#112233", normalizeHex("0x112233"))

	bar := NewStyles(DefaultPalette()).PopularityBar(50, 100, 6)
	assert.Equal(t, 3, strings.Count(bar, "█"))
	assert.Equal(t, 3, strings.Count(bar, "░"))
}

func TestPaletteFromEnv(t *testing.T) {
	t.Setenv("LS_MAGNET_ACCENT", "abc")
	p := PaletteFromEnv()
	assert.Equal(t, "#aabbcc", p.Accent)
	assert.Equal(t, DefaultPalette().FG, p.FG)
}

func locators(cs []ranking.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Locator
	}
	return out
}
