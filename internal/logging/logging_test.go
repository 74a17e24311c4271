package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"":        zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewWritesConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", NoColor: true}, &buf)
	defer l.Close()

	log := l.Component("sukebei")
	log.Debug().Str("key", "ssis-177").Msg("searching")

	out := buf.String()
	assert.Contains(t, out, "searching")
	assert.Contains(t, out, "component=sukebei")
	assert.Contains(t, out, "key=ssis-177")
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", NoColor: true}, &buf)

	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "magnet.log")
	var buf bytes.Buffer
	l := New(Config{File: path, NoColor: true}, &buf)

	l.Info().Msg("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
