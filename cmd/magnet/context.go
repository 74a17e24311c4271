package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/litescript/ls-magnet/internal/config"
	"github.com/litescript/ls-magnet/internal/history"
	"github.com/litescript/ls-magnet/internal/logging"
	"github.com/litescript/ls-magnet/internal/qbit"
	"github.com/litescript/ls-magnet/internal/scraper"
)

var errHistoryDisabled = errors.New("history is disabled")

type rootFlags struct {
	config    string
	logLevel  string
	history   string
	noHistory bool
}

type commandContext struct {
	flags *rootFlags

	stderr io.Writer

	configOnce sync.Once
	config     config.Config
	configErr  error

	logOnce sync.Once
	logger  *logging.Logger

	fetchOnce sync.Once
	fetcher   *scraper.Fetcher
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags, stderr: os.Stderr}
}

// bind routes logs to the command's error stream
func (c *commandContext) bind(cmd *cobra.Command) {
	c.stderr = cmd.ErrOrStderr()
}

func (c *commandContext) configPath() string {
	if p := strings.TrimSpace(c.flags.config); p != "" {
		return p
	}
	return config.ConfigPath()
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(c.configPath())
	})
	return c.config, c.configErr
}

func (c *commandContext) log(component string) zerolog.Logger {
	c.logOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		level := cfg.Logging.Level
		if c.flags.logLevel != "" {
			level = c.flags.logLevel
		}
		c.logger = logging.New(logging.Config{
			Level:   level,
			File:    cfg.Logging.File,
			NoColor: !isTerminal(c.stderr),
		}, c.stderr)
	})
	return c.logger.Component(component)
}

func (c *commandContext) close() error {
	if c.logger == nil {
		return nil
	}
	err := c.logger.Close()
	c.logger = nil
	return err
}

func (c *commandContext) fetch() *scraper.Fetcher {
	c.fetchOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		c.fetcher = scraper.NewFetcher(cfg.Timeout(), cfg.Sites.UserAgent, c.log("fetch"))
	})
	return c.fetcher
}

// candidateSource resolves a --source value: empty or "sukebei" for the
// built-in index, "all" for sukebei plus every enabled configured source,
// or the name of a configured source.
func (c *commandContext) candidateSource(name string) (scraper.CandidateSource, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log := c.log("scraper")
	sukebei := scraper.NewSukebei(cfg.Sites.Sukebei, c.fetch(), log)

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sukebei":
		return sukebei, nil
	case "all":
		sources := []scraper.CandidateSource{sukebei}
		for _, s := range cfg.Sources {
			if s.Enabled {
				sources = append(sources, scraper.NewGenericScraper(s.Name, s.URL, c.fetch(), log))
			}
		}
		return scraper.NewMultiSource(log, sources...), nil
	}

	s, ok := cfg.Source(name)
	if !ok {
		return nil, fmt.Errorf("unknown source %q (see `magnet sources list`)", name)
	}
	return scraper.NewGenericScraper(s.Name, s.URL, c.fetch(), log), nil
}

func (c *commandContext) jable() (*scraper.Jable, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return scraper.NewJable(cfg.Sites.Jable, c.fetch(), c.log("scraper")), nil
}

func (c *commandContext) sehuatang() (*scraper.Sehuatang, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return scraper.NewSehuatang(cfg.Sites.Sehuatang, c.fetch(), c.log("scraper")), nil
}

// openHistory opens the selection history, or returns errHistoryDisabled.
// Callers close the store.
func (c *commandContext) openHistory(ctx context.Context) (*history.Store, error) {
	if c.flags.noHistory {
		return nil, errHistoryDisabled
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	path := strings.TrimSpace(c.flags.history)
	if path == "" {
		if !cfg.History.Enabled {
			return nil, errHistoryDisabled
		}
		path = cfg.History.Path
	}
	return history.Open(ctx, path)
}

// optionalHistory is openHistory for commands that work without history;
// failures other than a disabled history are logged.
func (c *commandContext) optionalHistory(ctx context.Context) *history.Store {
	store, err := c.openHistory(ctx)
	if err != nil {
		if !errors.Is(err, errHistoryDisabled) {
			log := c.log("history")
			log.Warn().Err(err).Msg("history unavailable")
		}
		return nil
	}
	return store
}

// qbitClient builds the WebUI client. When detect_from_conf is set, the
// host, port and username are read from qBittorrent's own config file.
func (c *commandContext) qbitClient() (*qbit.Client, qbit.AddOptions, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, qbit.AddOptions{}, err
	}
	qc := cfg.QBittorrent

	if qc.DetectFromConf != "" {
		path := qc.DetectFromConf
		if path == "auto" {
			path = qbit.DefaultConfPath()
		}
		if ui, ok := qbit.DetectWebUI(path); ok {
			qc.Host, qc.Port = ui.Host, ui.Port
			if ui.Username != "" {
				qc.Username = ui.Username
			}
		} else {
			log := c.log("qbit")
			log.Debug().Str("path", path).Msg("no WebUI settings found, using config")
		}
	}

	client := qbit.NewClient(qbit.BaseURL(qc.Host, qc.Port), qc.Username, qc.Password)
	return client, qbit.AddOptions{SavePath: qc.SavePath, Category: qc.Category}, nil
}

// sendMagnets adds magnets to qBittorrent, skipping torrents it already has
func (c *commandContext) sendMagnets(ctx context.Context, magnets []string) error {
	if len(magnets) == 0 {
		return nil
	}
	client, opts, err := c.qbitClient()
	if err != nil {
		return err
	}
	log := c.log("qbit")

	existing := make(map[string]bool)
	if torrents, err := client.Torrents(ctx, ""); err == nil {
		for _, t := range torrents {
			existing[strings.ToLower(t.Hash)] = true
		}
	} else {
		log.Debug().Err(err).Msg("could not list torrents")
	}

	var pending []string
	for _, m := range magnets {
		if h := qbit.HashFromMagnet(m); h != "" && existing[h] {
			log.Info().Str("hash", h).Msg("already in qBittorrent")
			continue
		}
		pending = append(pending, m)
	}
	if len(pending) == 0 {
		return nil
	}

	if err := client.AddMagnets(ctx, pending, opts); err != nil {
		return fmt.Errorf("send to qBittorrent: %w", err)
	}
	log.Info().Int("count", len(pending)).Msg("sent to qBittorrent")
	return nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
