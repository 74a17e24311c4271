package tui

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/ini.v1"
)

// LoadPalette follows the terminal's colors when its config can be read,
// then applies the LS_MAGNET_* overrides
func LoadPalette() Palette {
	home, err := os.UserHomeDir()
	if err != nil {
		return PaletteFromEnv()
	}
	p, ok := DetectTerminalPalette(home)
	if !ok {
		p = DefaultPalette()
	}
	return applyEnv(p)
}

// DetectTerminalPalette looks under home for, in order: the omarchy theme,
// alacritty.toml and foot.ini. Each needs both a foreground and a
// background color to count.
func DetectTerminalPalette(home string) (Palette, bool) {
	for _, path := range []string{
		filepath.Join(home, ".config", "omarchy", "current", "theme", "alacritty.toml"),
		filepath.Join(home, ".config", "alacritty", "alacritty.toml"),
		filepath.Join(home, ".alacritty.toml"),
	} {
		if p, ok := alacrittyPalette(path); ok {
			return p, true
		}
	}
	return footPalette(filepath.Join(home, ".config", "foot", "foot.ini"))
}

type alacrittyColors struct {
	Colors struct {
		Primary struct {
			Background string `toml:"background"`
			Foreground string `toml:"foreground"`
		} `toml:"primary"`
		Selection struct {
			Background string `toml:"background"`
		} `toml:"selection"`
		Normal struct {
			Green string `toml:"green"`
			Red   string `toml:"red"`
		} `toml:"normal"`
	} `toml:"colors"`
}

func alacrittyPalette(path string) (Palette, bool) {
	var cfg alacrittyColors
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Palette{}, false
	}
	c := cfg.Colors
	p, ok := derivePalette(c.Primary.Foreground, c.Primary.Background, c.Selection.Background)
	if !ok {
		return p, false
	}
	if c.Normal.Green != "" {
		p.Accent = normalizeHex(c.Normal.Green)
	}
	if c.Normal.Red != "" {
		p.Error = normalizeHex(c.Normal.Red)
	}
	return p, true
}

func footPalette(path string) (Palette, bool) {
	cfg, err := ini.Load(path)
	if err != nil {
		return Palette{}, false
	}
	colors := cfg.Section("colors")
	p, ok := derivePalette(
		colors.Key("foreground").String(),
		colors.Key("background").String(),
		colors.Key("selection-background").String(),
	)
	if !ok {
		return p, false
	}
	// foot numbers the regular colors regular0..regular7
	if green := colors.Key("regular2").String(); green != "" {
		p.Accent = normalizeHex(green)
	}
	if red := colors.Key("regular1").String(); red != "" {
		p.Error = normalizeHex(red)
	}
	return p, true
}

// derivePalette dims the foreground for muted text and, without an explicit
// selection color, tints the background toward the foreground for the
// cursor row
func derivePalette(fg, bg, selection string) (Palette, bool) {
	fgColor, err := colorful.Hex(normalizeHex(fg))
	if err != nil {
		return Palette{}, false
	}
	bgColor, err := colorful.Hex(normalizeHex(bg))
	if err != nil {
		return Palette{}, false
	}

	p := DefaultPalette()
	p.FG = fgColor.Hex()
	p.Muted = colorful.Color{R: fgColor.R * 0.5, G: fgColor.G * 0.5, B: fgColor.B * 0.5}.Hex()
	p.AccentBg = bgColor.BlendRgb(fgColor, 0.15).Hex()
	if selection != "" {
		if sel, err := colorful.Hex(normalizeHex(selection)); err == nil {
			p.AccentBg = sel.Hex()
		}
	}
	return p, true
}
