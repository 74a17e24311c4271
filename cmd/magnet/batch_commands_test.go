package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-magnet/internal/scraper"
)

func TestJablePicksBestPerListedCode(t *testing.T) {
	env := newCLIEnv(t, "")

	stdout, _, err := env.run(t, "jable")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"magnet:?xt=urn:btih:bbbb&dn=SSIS-177&size=3.30GB",
		"magnet:?xt=urn:btih:dddd&dn=FSDSS-288&size=4.20GB",
	}, lines(stdout), "codes without candidates are skipped")
	assert.Equal(t, []string{"SSIS-177", "FSDSS-288", "DVAJ-532"}, env.sites.searched())

	out, _, err := env.run(t, "history", "--limit", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "SSIS-177")
	assert.Contains(t, out, "FSDSS-288")
	assert.NotContains(t, out, "DVAJ-532")
}

func TestJableSkipSeen(t *testing.T) {
	env := newCLIEnv(t, "")

	_, _, err := env.run(t, "jable")
	require.NoError(t, err)

	stdout, _, err := env.run(t, "jable", "--skip-seen")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Equal(t, []string{"SSIS-177", "FSDSS-288", "DVAJ-532", "DVAJ-532"}, env.sites.searched())

	out, _, err := env.run(t, "history", "forget", "ssis-177")
	require.NoError(t, err)
	assert.Equal(t, "SSIS-177: 1 forgotten\n", out)

	stdout, _, err = env.run(t, "jable", "--skip-seen")
	require.NoError(t, err)
	assert.Equal(t, []string{"magnet:?xt=urn:btih:bbbb&dn=SSIS-177&size=3.30GB"}, lines(stdout))
}

func TestJableNoHistory(t *testing.T) {
	env := newCLIEnv(t, "")

	stdout, _, err := env.run(t, "--no-history", "jable")
	require.NoError(t, err)
	assert.Len(t, lines(stdout), 2)

	_, _, err = env.run(t, "--no-history", "history")
	assert.ErrorIs(t, err, errHistoryDisabled)

	_, stderr, err := env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, stderr, "No selections recorded yet")
}

func TestJableSend(t *testing.T) {
	q := newFakeQbit(t)
	env := newCLIEnv(t, q.tomlSection(t))

	_, _, err := env.run(t, "jable", "--send")
	require.NoError(t, err)

	added, _ := q.snapshot()
	assert.Equal(t, []string{candB.Locator, candD.Locator}, added)
}

func TestJableListingFailure(t *testing.T) {
	env := newCLIEnv(t, "")

	_, _, err := env.run(t, "jable", "/latest-updates/")
	require.Error(t, err)
	assert.ErrorIs(t, err, scraper.ErrHTTPStatus)
}

func TestJableAPIs(t *testing.T) {
	env := newCLIEnv(t, "")

	stdout, _, err := env.run(t, "jable", "apis")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"jable /hot/",
		"jable /latest-updates/",
		"jable /new-release/",
		"jable /categories/chinese-subtitle/",
		"jable /tags/pov/",
	}, lines(stdout))
}

func TestSehuatangPrintsThreadMagnets(t *testing.T) {
	env := newCLIEnv(t, "")

	stdout, stderr, err := env.run(t, "sehuatang")
	require.NoError(t, err)
	assert.Equal(t, "magnet:?xt=urn:btih:eeee&dn=SSIS-177\n", stdout)
	assert.Contains(t, stderr, env.sites.URL+"/sht/forum-103-1.html")

	stdout, _, err = env.run(t, "sehuatang", "--skip-seen", "/forum-103-1")
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestSehuatangUnsupportedPath(t *testing.T) {
	env := newCLIEnv(t, "")

	_, _, err := env.run(t, "sehuatang", "/thread-1001-1-1")
	assert.True(t, errors.Is(err, scraper.ErrUnsupportedPath))

	stdout, _, err := env.run(t, "sehuatang", "forums")
	require.NoError(t, err)
	assert.Equal(t, "sehuatang "+scraper.SehuatangForums[0], lines(stdout)[0])
}
