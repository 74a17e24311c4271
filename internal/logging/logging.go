// Package logging builds the zerolog logger shared by the CLI and its
// scrapers. Console output goes to stderr so that stdout only carries
// magnet lines; an optional file sink is rotated with lumberjack.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	Level     string
	File      string // empty disables the file sink
	MaxSizeMB int    // rotate after this many MB (default: 5)
	NoColor   bool
}

// Logger is a zerolog logger plus the rotator it may own
type Logger struct {
	zerolog.Logger
	rotator *lumberjack.Logger
}

// New creates a logger writing to w (normally os.Stderr)
func New(cfg Config, w io.Writer) *Logger {
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    cfg.NoColor,
	}

	var rotator *lumberjack.Logger
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err == nil {
			maxSize := cfg.MaxSizeMB
			if maxSize <= 0 {
				maxSize = 5
			}
			rotator = &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    maxSize,
				MaxBackups: 3,
				LocalTime:  true,
			}
			output = zerolog.MultiLevelWriter(output, rotator)
		}
	}

	l := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: l, rotator: rotator}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// Close closes the log file if one is open
func (l *Logger) Close() error {
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

// Component returns a child logger tagged with a component field
func (l *Logger) Component(name string) zerolog.Logger {
	return l.Logger.With().Str("component", name).Logger()
}

// ParseLevel converts a level name to a zerolog.Level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
