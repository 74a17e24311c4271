package tui

import (
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette holds the color scheme for the picker
type Palette struct {
	FG       string // primary text
	Muted    string // secondary info, borders
	Accent   string // best candidate, spinner
	AccentBg string // cursor row background
	Error    string
}

// DefaultPalette returns the fallback amber-on-dark theme
func DefaultPalette() Palette {
	return Palette{
		FG:       "#d4a017",
		Muted:    "#6b6b4f",
		Accent:   "#8bc34a",
		AccentBg: "#1a1a14",
		Error:    "#ff6b6b",
	}
}

// PaletteFromEnv applies the LS_MAGNET_* overrides to the default palette
func PaletteFromEnv() Palette {
	return applyEnv(DefaultPalette())
}

// applyEnv applies LS_MAGNET_FG, LS_MAGNET_MUTED, LS_MAGNET_ACCENT and
// LS_MAGNET_SELECTION over p
func applyEnv(p Palette) Palette {
	if v := os.Getenv("LS_MAGNET_FG"); v != "" {
		p.FG = normalizeHex(v)
	}
	if v := os.Getenv("LS_MAGNET_MUTED"); v != "" {
		p.Muted = normalizeHex(v)
	}
	if v := os.Getenv("LS_MAGNET_ACCENT"); v != "" {
		p.Accent = normalizeHex(v)
	}
	if v := os.Getenv("LS_MAGNET_SELECTION"); v != "" {
		p.AccentBg = normalizeHex(v)
	}
	return p
}

var (
	hex6 = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	hex3 = regexp.MustCompile(`^#[0-9a-fA-F]{3}$`)
)

// normalizeHex ensures color is in #RRGGBB format
func normalizeHex(color string) string {
	color = strings.TrimSpace(color)

	if strings.HasPrefix(color, "0x") || strings.HasPrefix(color, "0X") {
		color = "#" + color[2:]
	}
	if !strings.HasPrefix(color, "#") {
		color = "#" + color
	}

	if hex6.MatchString(color) {
		return color
	}
	if hex3.MatchString(color) {
		r, g, b := color[1:2], color[2:3], color[3:4]
		return "#" + r + r + g + g + b + b
	}
	return color
}

// Styles holds the lipgloss styles derived from a palette
type Styles struct {
	Title         lipgloss.Style
	Muted         lipgloss.Style
	Error         lipgloss.Style
	Accent        lipgloss.Style
	TableHeader   lipgloss.Style
	SortedHeader  lipgloss.Style
	TableRow      lipgloss.Style
	TableSelected lipgloss.Style
	BarFull       lipgloss.Style
	HelpKey       lipgloss.Style
}

// NewStyles creates styles from a palette
func NewStyles(p Palette) Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.FG)).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)),

		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Error)),

		Accent: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Accent)).
			Bold(true),

		TableHeader: lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color(p.Muted)),

		SortedHeader: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.FG)).
			Bold(true),

		TableRow: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.FG)),

		TableSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.FG)).
			Background(lipgloss.Color(p.AccentBg)).
			Bold(true),

		BarFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Accent)),

		HelpKey: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.Muted)),
	}
}

// PopularityBar renders popularity relative to the most popular candidate
func (s Styles) PopularityBar(popularity, maxPopularity, width int) string {
	filled := 0
	if maxPopularity > 0 {
		filled = (popularity * width) / maxPopularity
	}
	filled = min(max(filled, 0), width)

	return s.BarFull.Render(strings.Repeat("█", filled)) +
		s.Muted.Render(strings.Repeat("░", width-filled))
}

// TruncateString shortens s to at most width terminal cells, adding an
// ellipsis when it cuts. Wide (CJK) runes count as two cells.
func TruncateString(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 0 {
		return ""
	}

	var b strings.Builder
	used := 0
	for _, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > width-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + "…"
}

// PadRight pads s with spaces to width cells
func PadRight(s string, width int) string {
	s = TruncateString(s, width)
	return s + strings.Repeat(" ", max(width-lipgloss.Width(s), 0))
}

// PadLeft pads s on the left to width cells
func PadLeft(s string, width int) string {
	s = TruncateString(s, width)
	return strings.Repeat(" ", max(width-lipgloss.Width(s), 0)) + s
}
