package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  port: 8080\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "http://localhost:3200", cfg.Tempo.URL)
	assert.True(t, cfg.Tempo.Enabled)
	assert.Equal(t, 100, cfg.Tempo.SearchLimit)
	assert.Equal(t, 256, cfg.Timeline.CacheSize)
	assert.Equal(t, time.Minute, cfg.Tempo.GetSearchPaddingDuration())
	assert.Equal(t, 5*time.Second, cfg.Timeline.GetLiveRefreshDuration())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
app:
  host: 127.0.0.1
  port: 9000
tempo:
  url: http://tempo:3200
  timeout: 5s
  enabled: false
database:
  path: /tmp/rt.db
timeline:
  live_refresh: 250ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.App.Addr())
	assert.Equal(t, "http://tempo:3200", cfg.Tempo.URL)
	assert.Equal(t, 5*time.Second, cfg.Tempo.GetTimeoutDuration())
	assert.False(t, cfg.Tempo.Enabled)
	assert.Equal(t, "/tmp/rt.db", cfg.Database.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeline.GetLiveRefreshDuration())
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "app:\n  port: 9000\n")
	t.Setenv("REPLAYTRACE_APP_PORT", "9191")
	t.Setenv("REPLAYTRACE_TEMPO_URL", "http://env-tempo:3200")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.App.Port)
	assert.Equal(t, "http://env-tempo:3200", cfg.Tempo.URL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDurationFallbacks(t *testing.T) {
	app := AppConfig{ShutdownTimeout: "bogus"}
	assert.Equal(t, 30*time.Second, app.GetShutdownTimeoutDuration())

	tempo := TempoConfig{Timeout: "", SearchPadding: "-5m"}
	assert.Equal(t, 30*time.Second, tempo.GetTimeoutDuration())
	assert.Equal(t, time.Duration(0), tempo.GetSearchPaddingDuration())

	tl := TimelineConfig{LiveRefresh: "0s"}
	assert.Equal(t, 5*time.Second, tl.GetLiveRefreshDuration())
}
