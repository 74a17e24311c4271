// Package tui implements the interactive candidate picker using Bubble Tea.
// It fetches candidates for a search key, shows them filtered and sorted
// with the best candidate starred, and either prints the chosen magnet on
// exit or sends it to qBittorrent.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/litescript/ls-magnet/internal/config"
	"github.com/litescript/ls-magnet/internal/output"
	"github.com/litescript/ls-magnet/internal/qbit"
	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/litescript/ls-magnet/internal/scraper"
	"github.com/rs/zerolog"
)

// Sender hands a magnet to a download client
type Sender interface {
	AddMagnet(ctx context.Context, magnet string, opts qbit.AddOptions) error
}

// Options configure a picker session
type Options struct {
	Query  scraper.SearchQuery
	Source scraper.CandidateSource
	Filter ranking.FilterOptions
	Policy ranking.SelectionPolicy

	// Sender enables the send key; nil leaves it disabled
	Sender Sender
	Add    qbit.AddOptions

	Palette Palette
	Log     zerolog.Logger
}

// Model is the picker state
type Model struct {
	ctx    context.Context
	opts   Options
	styles Styles

	input     textinput.Model
	spinner   spinner.Model
	searching bool

	key     string
	raw     []ranking.Candidate
	results []ranking.Candidate
	best    ranking.Candidate
	hasBest bool
	sortKey ranking.SortKey
	policy  ranking.SelectionPolicy
	cursor  int
	sent    map[string]bool

	statusMsg string
	chosen    string
	width     int
	height    int
}

// ConfigReloadMsg carries a reloaded selection policy into the picker
type ConfigReloadMsg struct {
	Policy ranking.SelectionPolicy
	Err    error
}

type searchResultMsg struct {
	key     string
	results []ranking.Candidate
	err     error
}

type sentMsg struct {
	locator string
	label   string
	err     error
}

// NewModel creates the initial model
func NewModel(ctx context.Context, opts Options) Model {
	if opts.Palette == (Palette{}) {
		opts.Palette = DefaultPalette()
	}
	styles := NewStyles(opts.Palette)

	ti := textinput.New()
	ti.Placeholder = "Search key, e.g. SSIS-177"
	ti.CharLimit = 128
	ti.Width = 40
	ti.SetValue(opts.Query.Key)
	if opts.Query.Key == "" {
		ti.Focus()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(opts.Palette.Accent))

	return Model{
		ctx:       ctx,
		opts:      opts,
		styles:    styles,
		input:     ti,
		spinner:   sp,
		key:       opts.Query.Key,
		sortKey:   opts.Filter.SortKey,
		policy:    opts.Policy,
		sent:      make(map[string]bool),
		searching: opts.Query.Key != "",
		width:     100,
		height:    24,
	}
}

// Init starts the first search
func (m Model) Init() tea.Cmd {
	if m.key == "" {
		return textinput.Blink
	}
	return tea.Batch(m.spinner.Tick, m.fetch(m.key))
}

// Chosen returns the magnet line picked with enter, or "" when the user
// quit without choosing
func (m Model) Chosen() string {
	return m.chosen
}

// Best returns the starred candidate
func (m Model) Best() (ranking.Candidate, bool) {
	return m.best, m.hasBest
}

// Results returns the candidates in display order
func (m Model) Results() []ranking.Candidate {
	return m.results
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.input.Focused() {
			return m.handleInputKey(msg)
		}
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-20, 10)

	case spinner.TickMsg:
		if m.searching {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case searchResultMsg:
		if msg.key != m.key {
			// stale result from a replaced search
			break
		}
		m.searching = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Search failed: %v", msg.err)
			m.raw = nil
		} else {
			m.raw = msg.results
			m.statusMsg = fmt.Sprintf("Found %d candidates", len(m.raw))
		}
		m.rerank()
		m.cursor = m.bestIndex()

	case sentMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Send failed: %v", msg.err)
		} else {
			m.sent[msg.locator] = true
			m.statusMsg = "Sent: " + TruncateString(msg.label, 40)
		}

	case ConfigReloadMsg:
		if msg.Err != nil {
			m.statusMsg = fmt.Sprintf("Config reload failed: %v", msg.Err)
			break
		}
		m.policy = msg.Policy
		m.rerank()
		m.statusMsg = "Selection policy reloaded"
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		m.input.SetValue(m.key)
		return m, nil
	case tea.KeyEnter:
		key := strings.TrimSpace(m.input.Value())
		if key == "" {
			return m, nil
		}
		m.input.Blur()
		m.key = key
		cmd := m.search(key)
		return m, tea.Batch(m.spinner.Tick, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.results)-1 {
			m.cursor++
		}

	case "home", "g":
		m.cursor = 0

	case "end", "G":
		m.cursor = max(len(m.results)-1, 0)

	case "s":
		m.sortKey = nextSortKey(m.sortKey)
		m.rerank()
		m.statusMsg = "Sort: " + sortLabel(m.sortKey)

	case "b":
		m.cursor = m.bestIndex()

	case "r":
		if m.key != "" && !m.searching {
			cmd := m.search(m.key)
			return m, tea.Batch(m.spinner.Tick, cmd)
		}

	case "/":
		m.input.SetValue(m.key)
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd

	case "enter":
		c, ok := m.current()
		if !ok {
			return m, nil
		}
		m.chosen = output.MagnetLine(c, m.key)
		return m, tea.Quit

	case "a":
		c, ok := m.current()
		if !ok {
			return m, nil
		}
		if m.opts.Sender == nil {
			m.statusMsg = "qBittorrent is not configured"
			return m, nil
		}
		m.statusMsg = "Sending..."
		return m, m.send(c)
	}

	return m, nil
}

// rerank reapplies the filter, sort and policy to the fetched candidates,
// keeping the cursor on the same candidate when it survives
func (m *Model) rerank() {
	var keep string
	if c, ok := m.current(); ok {
		keep = c.Locator
	}

	filter := m.opts.Filter
	filter.SortKey = m.sortKey
	m.results = ranking.FilterAndSort(m.raw, filter)
	m.best, m.hasBest = ranking.Best(m.results, m.policy)

	m.cursor = 0
	for i, c := range m.results {
		if c.Locator == keep {
			m.cursor = i
			break
		}
	}
}

func (m Model) current() (ranking.Candidate, bool) {
	if m.cursor < 0 || m.cursor >= len(m.results) {
		return ranking.Candidate{}, false
	}
	return m.results[m.cursor], true
}

func (m Model) bestIndex() int {
	if !m.hasBest {
		return 0
	}
	for i, c := range m.results {
		if c.Locator == m.best.Locator {
			return i
		}
	}
	return 0
}

// search marks a search as running and returns the command that fetches
func (m *Model) search(key string) tea.Cmd {
	m.searching = true
	m.statusMsg = "Searching " + key + "..."
	return m.fetch(key)
}

func (m Model) fetch(key string) tea.Cmd {
	ctx, src := m.ctx, m.opts.Source
	q := m.opts.Query
	q.Key = key
	return func() tea.Msg {
		results, err := src.Search(ctx, q)
		return searchResultMsg{key: key, results: results, err: err}
	}
}

func (m Model) send(c ranking.Candidate) tea.Cmd {
	ctx, sender, opts := m.ctx, m.opts.Sender, m.opts.Add
	return func() tea.Msg {
		err := sender.AddMagnet(ctx, c.Locator, opts)
		return sentMsg{locator: c.Locator, label: c.Label, err: err}
	}
}

func nextSortKey(k ranking.SortKey) ranking.SortKey {
	switch k {
	case ranking.SortNone:
		return ranking.SortByPopularity
	case ranking.SortByPopularity:
		return ranking.SortBySize
	default:
		return ranking.SortNone
	}
}

func sortLabel(k ranking.SortKey) string {
	switch k {
	case ranking.SortByPopularity:
		return "popularity"
	case ranking.SortBySize:
		return "size"
	default:
		return "as listed"
	}
}

// View renders the picker
func (m Model) View() string {
	var b strings.Builder

	title := m.styles.Title.Render("magnet")
	if m.key != "" {
		title += m.styles.Muted.Render("  " + m.key)
	}
	b.WriteString(title + "\n")

	if m.input.Focused() {
		b.WriteString(m.input.View() + "\n\n")
	} else {
		b.WriteString(m.styles.Muted.Render(m.policyLine()) + "\n\n")
	}

	if m.searching {
		b.WriteString(m.spinner.View() + " " + m.styles.Muted.Render("searching...") + "\n")
	} else {
		b.WriteString(m.renderResults(m.height - 6))
	}

	b.WriteString("\n" + m.renderStatusBar())
	return b.String()
}

func (m Model) policyLine() string {
	return fmt.Sprintf("floor %s GiB · top %d by popularity · markers %s",
		output.Size(m.policy.MinSizeGiB),
		max(m.policy.PopularityTopN, 0),
		strings.Join(m.policy.SubtitleMarkers, " "))
}

func (m Model) renderResults(height int) string {
	if len(m.results) == 0 {
		return m.styles.Muted.Render("No candidates") + "\n"
	}

	var b strings.Builder

	const (
		sizeWidth   = 10
		popWidth    = 8
		barWidth    = 6
		sourceWidth = 9
	)
	labelWidth := max(m.width-2-sizeWidth-popWidth-barWidth-sourceWidth-5, 20)

	header := "  " + strings.Join([]string{
		m.headerCell("LABEL", labelWidth, false, ranking.SortNone),
		m.headerCell("SIZE GiB", sizeWidth, true, ranking.SortBySize),
		m.headerCell("POP", popWidth, true, ranking.SortByPopularity),
		PadRight("", barWidth),
		m.headerCell("SOURCE", sourceWidth, false, "-"),
	}, " ")
	b.WriteString(m.styles.TableHeader.Render(header))
	b.WriteString("\n")

	maxPop := 0
	for _, c := range m.results {
		maxPop = max(maxPop, c.Popularity)
	}

	visibleRows := max(height-3, 1)
	startIdx := 0
	if m.cursor >= visibleRows {
		startIdx = m.cursor - visibleRows + 1
	}
	endIdx := min(startIdx+visibleRows, len(m.results))

	for i := startIdx; i < endIdx; i++ {
		c := m.results[i]
		row := strings.Join([]string{
			PadRight(c.Label, labelWidth),
			PadLeft(output.Size(c.SizeGiB), sizeWidth),
			PadLeft(fmt.Sprintf("%d", c.Popularity), popWidth),
			m.styles.PopularityBar(c.Popularity, maxPop, barWidth),
			PadRight(c.Source, sourceWidth),
		}, " ")

		prefix := "  "
		switch {
		case m.sent[c.Locator]:
			prefix = m.styles.Accent.Render("✓ ")
		case m.hasBest && c.Locator == m.best.Locator:
			prefix = m.styles.Accent.Render("★ ")
		}

		if i == m.cursor {
			b.WriteString(prefix + m.styles.TableSelected.Render(row))
		} else {
			b.WriteString(prefix + m.styles.TableRow.Render(row))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) headerCell(name string, width int, right bool, key ranking.SortKey) string {
	var cell string
	if right {
		cell = PadLeft(name, width)
	} else {
		cell = PadRight(name, width)
	}
	if key == m.sortKey && key != ranking.SortNone {
		return m.styles.SortedHeader.Render(cell)
	}
	return m.styles.Muted.Render(cell)
}

func (m Model) renderStatusBar() string {
	var help string
	if m.input.Focused() {
		help = "[esc]Cancel [enter]Search"
	} else {
		help = "[enter]Print [a]Send [s]Sort [b]Best [/]Search [r]Refresh [q]Quit"
	}

	left := m.statusMsg
	if strings.HasPrefix(left, "Search failed") || strings.HasPrefix(left, "Send failed") ||
		strings.HasPrefix(left, "Config reload failed") {
		left = m.styles.Error.Render(left)
	}
	right := m.styles.HelpKey.Render(help)

	padding := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return left + strings.Repeat(" ", padding) + right
}

// Run starts the picker on the terminal. The UI is drawn on stderr so the
// chosen magnet line, returned here, can be printed on stdout. When
// configPath is set, edits to the config file re-rank the list live.
func Run(ctx context.Context, opts Options, configPath string) (string, error) {
	m := NewModel(ctx, opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
	)

	if configPath != "" {
		w, err := config.NewWatcher(configPath, func(cfg config.Config, err error) {
			p.Send(ConfigReloadMsg{Policy: cfg.Policy(), Err: err})
		})
		if err != nil {
			opts.Log.Warn().Err(err).Str("path", configPath).Msg("config watch disabled")
		} else {
			defer w.Stop()
		}
	}

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	if fm, ok := final.(Model); ok {
		return fm.Chosen(), nil
	}
	return "", nil
}
