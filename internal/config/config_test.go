package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, path, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "missing.yaml", filepath.Base(path))
	assert.Equal(t, DefaultServer, s.Server)
	assert.Equal(t, time.Second, s.PollInterval)
	assert.Equal(t, 5*time.Second, s.DismissDelay)
	assert.Equal(t, time.Duration(0), s.MaxPollDuration)
	assert.False(t, s.SurfaceModeChangeErrors)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`server: https://media.example.com
poll_interval: 2s
max_poll_duration: 10m
output_dir: /srv/media
log_level: WARNING
`), 0o644))
	t.Setenv("YTDLR_SERVER", "http://10.0.0.5:5000")
	t.Setenv("YTDLR_SURFACE_MODE_CHANGE_ERRORS", "true")

	s, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:5000", s.Server)
	assert.Equal(t, 2*time.Second, s.PollInterval)
	assert.Equal(t, 10*time.Minute, s.MaxPollDuration)
	assert.Equal(t, "/srv/media", s.OutputDir)
	assert.Equal(t, "warn", s.LogLevel)
	assert.True(t, s.SurfaceModeChangeErrors)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated\n"), 0o644))

	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	s := Normalize(Settings{
		Server:          "  ",
		PollInterval:    -time.Second,
		MaxPollDuration: -time.Minute,
		OutputDir:       " ",
		LogLevel:        "loud",
	})
	assert.Equal(t, DefaultServer, s.Server)
	assert.Equal(t, DefaultPollInterval, s.PollInterval)
	assert.Equal(t, DefaultDismissDelay, s.DismissDelay)
	assert.Equal(t, DefaultAlertDuration, s.AlertDuration)
	assert.Equal(t, DefaultRequestTimeout, s.RequestTimeout)
	assert.Equal(t, time.Duration(0), s.MaxPollDuration)
	assert.Equal(t, DefaultOutputDir, s.OutputDir)
	assert.Equal(t, DefaultLogLevel, s.LogLevel)
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")

	written, err := WriteDefault(path, false)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	_, err = WriteDefault(path, false)
	assert.Error(t, err, "existing config must not be replaced without force")
	_, err = WriteDefault(path, true)
	require.NoError(t, err)

	s, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}
