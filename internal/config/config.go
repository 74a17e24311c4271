// Package config handles application configuration via TOML files.
// Configuration is stored at ~/.config/ls-magnet/config.toml and holds the
// selection policy, site endpoints, the qBittorrent connection, selection
// history and logging settings, plus user-added generic sources.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/litescript/ls-magnet/internal/ranking"
)

// EnvPath overrides the default config location
const EnvPath = "LS_MAGNET_CONFIG"

// Config holds application configuration
type Config struct {
	Selection   SelectionConfig   `toml:"selection"`
	Sites       SitesConfig       `toml:"sites"`
	QBittorrent QBittorrentConfig `toml:"qbittorrent"`
	History     HistoryConfig     `toml:"history"`
	Logging     LoggingConfig     `toml:"logging"`
	Sources     []SourceConfig    `toml:"sources"`
}

// SelectionConfig tunes how the best candidate is picked
type SelectionConfig struct {
	MinSizeGiB      float64  `toml:"min_size_gib"`
	SubtitleMarkers []string `toml:"subtitle_markers"`
	PopularityTopN  int      `toml:"popularity_top_n"`
}

// SitesConfig holds the built-in site endpoints
type SitesConfig struct {
	Sukebei        string `toml:"sukebei"`
	Jable          string `toml:"jable"`
	Sehuatang      string `toml:"sehuatang"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// QBittorrentConfig holds qBittorrent Web API settings
type QBittorrentConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Category string `toml:"category"`
	SavePath string `toml:"save_path"`

	// DetectFromConf fills host, port and username from a local
	// qBittorrent.conf when set: a file path, or "auto" for the default
	// location. Empty means "don't".
	DetectFromConf string `toml:"detect_from_conf"`
}

// HistoryConfig controls the selection history database
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LoggingConfig controls diagnostics on stderr and the optional log file
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// SourceConfig holds a custom torrent source
type SourceConfig struct {
	Name    string `toml:"name"`
	URL     string `toml:"url"`
	Enabled bool   `toml:"enabled"`
}

// Default returns the default configuration
func Default() Config {
	policy := ranking.DefaultPolicy()

	return Config{
		Selection: SelectionConfig{
			MinSizeGiB:      policy.MinSizeGiB,
			SubtitleMarkers: policy.SubtitleMarkers,
			PopularityTopN:  policy.PopularityTopN,
		},
		Sites: SitesConfig{
			Sukebei:        "https://sukebei.nyaa.si/",
			Jable:          "https://jable.tv",
			Sehuatang:      "https://www.sehuatang.org",
			TimeoutSeconds: 15,
		},
		QBittorrent: QBittorrentConfig{
			Host:     "localhost",
			Port:     8080,
			Username: "admin",
			Password: "adminadmin",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir(), "history.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		// Sources: nil - generic sources are added with `magnet sources add`
	}
}

// Policy converts the selection section to the ranking policy
func (c Config) Policy() ranking.SelectionPolicy {
	return ranking.SelectionPolicy{
		MinSizeGiB:      c.Selection.MinSizeGiB,
		SubtitleMarkers: append([]string(nil), c.Selection.SubtitleMarkers...),
		PopularityTopN:  c.Selection.PopularityTopN,
	}
}

// Timeout returns the per-request site timeout
func (c Config) Timeout() time.Duration {
	if c.Sites.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Sites.TimeoutSeconds) * time.Second
}

// Source returns the enabled source called name
func (c Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Enabled && strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// AddSource appends or replaces the source with the same name
func (c *Config) AddSource(s SourceConfig) {
	for i := range c.Sources {
		if strings.EqualFold(c.Sources[i].Name, s.Name) {
			c.Sources[i] = s
			return
		}
	}
	c.Sources = append(c.Sources, s)
}

// RemoveSource drops the source called name and reports whether it existed
func (c *Config) RemoveSource(name string) bool {
	for i := range c.Sources {
		if strings.EqualFold(c.Sources[i].Name, name) {
			c.Sources = append(c.Sources[:i], c.Sources[i+1:]...)
			return true
		}
	}
	return false
}

// Validate rejects settings the ranking core cannot honor
func (c Config) Validate() error {
	if c.Selection.MinSizeGiB < 0 {
		return fmt.Errorf("selection.min_size_gib must not be negative, got %v", c.Selection.MinSizeGiB)
	}
	if c.Selection.PopularityTopN < 0 {
		return fmt.Errorf("selection.popularity_top_n must not be negative, got %d", c.Selection.PopularityTopN)
	}
	if c.QBittorrent.Port < 0 || c.QBittorrent.Port > 65535 {
		return fmt.Errorf("qbittorrent.port out of range: %d", c.QBittorrent.Port)
	}
	for _, s := range c.Sources {
		if s.Name == "" || s.URL == "" {
			return errors.New("every source needs a name and url")
		}
	}
	return nil
}

// ConfigPath returns the path to the config file, honoring LS_MAGNET_CONFIG
func ConfigPath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ls-magnet", "config.toml")
}

func dataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, "ls-magnet")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "ls-magnet")
}

// Load reads config from path, or ConfigPath when path is empty. A missing
// file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes config to path, or ConfigPath when path is empty
func Save(cfg Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
