package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", s.ListenAddr())
	assert.Equal(t, 5, s.MaxConcurrentScreenshots)
	assert.Equal(t, "chromium", s.BrowserType)
	assert.True(t, s.Headless)
	assert.Equal(t, "png", s.DefaultImageType)
	assert.Equal(t, 80, s.DefaultImageQuality)
	assert.Equal(t, "load", s.DefaultWaitUntil)
	assert.Equal(t, 30000, s.DefaultTimeoutMs)
	assert.Equal(t, "localhost:6379", s.BrokerOptions().Addr)
	assert.Equal(t, "screenshot_tasks", s.RedisTaskQueue)
	assert.Equal(t, "screenshot_result:", s.RedisResultPrefix)
	assert.Equal(t, time.Hour, s.BrokerOptions().ResultTTL)
	assert.Equal(t, "2.0", s.JSONRPCVersion)
	assert.Equal(t, "info", s.LogLevel)
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err)
	assert.Equal(t, 8000, s.Port)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "PORT=9100\nBROWSER_TYPE=chromium\nREDIS_HOST=redis.internal\nHEADLESS=false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, s.Port)
	assert.Equal(t, "redis.internal", s.RedisHost)
	assert.False(t, s.Headless)
	// Untouched keys keep their defaults.
	assert.Equal(t, "0.0.0.0", s.Host)
}

func TestEnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9100\n"), 0o600))

	t.Setenv("PORT", "9200")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9200, s.Port)
}

func TestUnsupportedJSONRPCVersionRejected(t *testing.T) {
	t.Setenv("JSON_RPC_VERSION", "1.0")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON_RPC_VERSION")
}

func TestRenderConfigMapping(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_SCREENSHOTS", "3")
	t.Setenv("DEFAULT_WAIT_FOR_SELECTOR_TIMEOUT", "1500")

	s, err := Load("")
	require.NoError(t, err)

	cfg := s.RenderConfig()
	assert.Equal(t, 3, cfg.MaxConcurrent)
	assert.Equal(t, 1500*time.Millisecond, cfg.SelectorTimeout)
	assert.Equal(t, "chromium", cfg.BrowserType)
}

func TestScreenshotDefaultsMapping(t *testing.T) {
	t.Setenv("VIEWPORT_WIDTH", "1920")
	t.Setenv("DEFAULT_IMAGE_TYPE", "jpeg")

	s, err := Load("")
	require.NoError(t, err)

	d := s.ScreenshotDefaults()
	assert.Equal(t, 1920, d.ViewportWidth)
	assert.Equal(t, 720, d.ViewportHeight)
	assert.Equal(t, "jpeg", d.ImageType)
}
