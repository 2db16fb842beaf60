package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FirstRunCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "gomical.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, 250, cfg.Calendar.InsertDelayMs)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "config carries API keys")
}

func TestLoad_PartialConfigIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gomical.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \"0.0.0.0:9999\"\nextract:\n  api_key: \"k\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Listen)
	assert.Equal(t, "k", cfg.Extract.APIKey)
	// Everything unset falls back to defaults.
	assert.Equal(t, "garbage", cfg.Extract.Mode)
	assert.Equal(t, 720, cfg.Calendar.ReminderMinutes)
	assert.Equal(t, "* * * * *", cfg.Worker.Cron)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gomical.yaml")

	cfg := DefaultConfig()
	cfg.Extract.APIKey = "secret"
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "pw"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Extract.APIKey)
	require.NotNil(t, got.BasicAuth)
	assert.Equal(t, "admin", got.BasicAuth.Username)
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "250ms", cfg.InsertDelay().String())
	assert.Equal(t, "500ms", cfg.ResolveDelay().String())
	assert.Equal(t, "30s", cfg.CalendarTimeout().String())
}
