package qbit

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// WebUI is the Web UI endpoint found in a qBittorrent.conf
type WebUI struct {
	Host     string
	Port     int
	Username string
}

// DefaultConfPath returns where qBittorrent keeps its settings on Linux
func DefaultConfPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "qBittorrent", "qBittorrent.conf")
}

// DetectWebUI reads the [Preferences] section of a qBittorrent.conf. A
// wildcard or empty bind address maps to localhost. The boolean is false
// when the file is missing or has no Web UI port.
func DetectWebUI(path string) (WebUI, bool) {
	if path == "" {
		path = DefaultConfPath()
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{
		Loose:               true,
		IgnoreInlineComment: true,
		IgnoreContinuation:  true,
	}, path)
	if err != nil {
		return WebUI{}, false
	}

	prefs := cfg.Section("Preferences")
	port := prefs.Key(`WebUI\Port`).MustInt(0)
	if port <= 0 {
		return WebUI{}, false
	}

	host := strings.TrimSpace(prefs.Key(`WebUI\Address`).String())
	switch host {
	case "", "*", "0.0.0.0", "::":
		host = "localhost"
	}

	return WebUI{
		Host:     host,
		Port:     port,
		Username: strings.TrimSpace(prefs.Key(`WebUI\Username`).String()),
	}, true
}
