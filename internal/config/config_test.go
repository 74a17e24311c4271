package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/litescript/ls-magnet/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Sites, cfg.Sites)
	assert.Equal(t, ranking.DefaultTopN, cfg.Selection.PopularityTopN)
	assert.Equal(t, ranking.DefaultSubtitleMarkers, cfg.Selection.SubtitleMarkers)
	assert.Equal(t, ranking.DefaultPolicy(), cfg.Policy())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[selection]
min_size_gib = 2.5
subtitle_markers = ["SUB"]

[qbittorrent]
port = 9090
category = "jav"

[[sources]]
name = "demo"
url = "https://demo.example"
enabled = true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Selection.MinSizeGiB)
	assert.Equal(t, []string{"SUB"}, cfg.Selection.SubtitleMarkers)
	assert.Equal(t, ranking.DefaultTopN, cfg.Selection.PopularityTopN, "unset keys keep defaults")
	assert.Equal(t, 9090, cfg.QBittorrent.Port)
	assert.Equal(t, "localhost", cfg.QBittorrent.Host)
	assert.Equal(t, "jav", cfg.QBittorrent.Category)

	src, ok := cfg.Source("DEMO")
	require.True(t, ok)
	assert.Equal(t, "https://demo.example", src.URL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[selection]\nmin_size_gib = -1\n"), 0644))
	_, err := Load(bad)
	assert.ErrorContains(t, err, "min_size_gib")

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("[selection\n"), 0644))
	_, err = Load(broken)
	assert.Error(t, err)
}

func TestConfigPathHonorsEnv(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", ConfigPath())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Selection.MinSizeGiB = 4
	cfg.AddSource(SourceConfig{Name: "demo", URL: "https://demo.example", Enabled: true})
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSources(t *testing.T) {
	cfg := Default()
	cfg.AddSource(SourceConfig{Name: "a", URL: "https://a.example", Enabled: true})
	cfg.AddSource(SourceConfig{Name: "b", URL: "https://b.example", Enabled: false})
	cfg.AddSource(SourceConfig{Name: "A", URL: "https://a2.example", Enabled: true})

	require.Len(t, cfg.Sources, 2, "same name replaces")
	assert.Equal(t, "https://a2.example", cfg.Sources[0].URL)

	_, ok := cfg.Source("b")
	assert.False(t, ok, "disabled sources are not returned")

	assert.True(t, cfg.RemoveSource("b"))
	assert.False(t, cfg.RemoveSource("b"))
	assert.Len(t, cfg.Sources, 1)
}

func TestPolicy(t *testing.T) {
	cfg := Default()
	cfg.Selection.MinSizeGiB = 3
	cfg.Selection.PopularityTopN = 5

	p := cfg.Policy()
	assert.Equal(t, 3.0, p.MinSizeGiB)
	assert.Equal(t, 5, p.PopularityTopN)

	p.SubtitleMarkers[0] = "changed"
	assert.Equal(t, ranking.DefaultSubtitleMarkers[0], cfg.Selection.SubtitleMarkers[0])
}

func TestTimeout(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 15*time.Second, cfg.Timeout())
	cfg.Sites.TimeoutSeconds = 3
	assert.Equal(t, 3*time.Second, cfg.Timeout())
	cfg.Sites.TimeoutSeconds = 0
	assert.Equal(t, 15*time.Second, cfg.Timeout())
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, Save(Default(), path))

	changes := make(chan Config, 4)
	w, err := NewWatcher(path, func(cfg Config, err error) {
		if err == nil {
			changes <- cfg
		}
	})
	require.NoError(t, err)
	defer w.Stop()

	cfg := Default()
	cfg.Selection.MinSizeGiB = 6
	require.NoError(t, Save(cfg, path))

	select {
	case got := <-changes:
		assert.Equal(t, 6.0, got.Selection.MinSizeGiB)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	w.Stop()
	w.Stop()
}
