package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdFlagDefaultsFromEnv(t *testing.T) {
	t.Setenv("SCRAPER_OUTPUT", "/tmp/elsewhere.json")
	t.Setenv("SCRAPER_ENGINE", "http")
	t.Setenv("SCRAPER_TIMEOUT", "15s")

	cmd := newRootCmd()

	out, err := cmd.Flags().GetString("output")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/elsewhere.json", out)
	engine, err := cmd.Flags().GetString("engine")
	require.NoError(t, err)
	assert.Equal(t, "http", engine)
	timeout, err := cmd.Flags().GetDuration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, timeout)
}

func TestRootCmdTimeoutDefaults(t *testing.T) {
	t.Setenv("SCRAPER_TIMEOUT", "")
	t.Setenv("SCRAPER_NAV_TIMEOUT", "")

	cmd := newRootCmd()

	timeout, err := cmd.Flags().GetDuration("timeout")
	require.NoError(t, err)
	assert.Zero(t, timeout, "overall run is unbounded so every attempt can run")
	nav, err := cmd.Flags().GetDuration("nav-timeout")
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, nav)
}

func TestDefaultOutputFollowsHostRoot(t *testing.T) {
	t.Setenv("SCRAPER_OUTPUT", "")
	t.Setenv("SCRAPEHOST_ROOT", "/srv/scrapehost")

	out, err := newRootCmd().Flags().GetString("output")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/scrapehost", "output", "scraped_data.json"), out)
}

func TestUnknownEngineWritesErrorDocument(t *testing.T) {
	out := filepath.Join(t.TempDir(), "output", "scraped_data.json")
	t.Setenv("SCRAPE_URL", "https://example.org")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--output", out, "--engine", "carrier-pigeon"})
	err := cmd.Execute()

	require.Error(t, err)
	raw, readErr := os.ReadFile(out)
	require.NoError(t, readErr)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, true, doc["error"])
	assert.Equal(t, "https://example.org", doc["url"])
	assert.Contains(t, doc["message"], "carrier-pigeon")
}
