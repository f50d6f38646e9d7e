package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FLAGSPOT_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "environment", cfg.Camera.Facing)
	require.Empty(t, cfg.Camera.Device)
	require.Equal(t, "gemini-2.0-flash", cfg.Vision.Model)
	require.Equal(t, "GEMINI_API_KEY", cfg.Vision.APIKeyEnv)
	require.Empty(t, cfg.Vision.APIKey)
	require.True(t, cfg.UI.ShowConfidence)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[camera]\ndevice = \"/dev/video2\"\nfacing = \"user\"\n\n[vision]\nmodel = \"gemini-2.5-pro\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("FLAGSPOT_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/dev/video2", cfg.Camera.Device)
	require.Equal(t, "user", cfg.Camera.Facing)
	require.Equal(t, "gemini-2.5-pro", cfg.Vision.Model)
	// untouched keys keep their defaults
	require.Equal(t, "GEMINI_API_KEY", cfg.Vision.APIKeyEnv)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("FLAGSPOT_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Camera.Device = "/dev/video1"
	cfg.UI.ShowConfidence = false
	require.NoError(t, Save(cfg))

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/dev/video1", got.Camera.Device)
	require.False(t, got.UI.ShowConfidence)
}
