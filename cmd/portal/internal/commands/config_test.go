package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFileConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, &FileConfig{}, cfg)

	want := &FileConfig{ServerURL: "https://portal.example.com", Timeout: Duration(45 * time.Second)}
	require.NoError(t, SaveFileConfig(dir, want))

	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 45s")

	got, err := LoadFileConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileConfigInvalidDuration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("timeout: soon\n"), 0600))

	_, err := LoadFileConfig(dir)
	require.ErrorContains(t, err, `invalid duration "soon"`)
}

func TestClientConfigPrecedence(t *testing.T) {
	dir := t.TempDir()

	t.Run("defaults", func(t *testing.T) {
		cfg, gotDir, err := (&Globals{ConfigDir: dir}).clientConfig()
		require.NoError(t, err)
		assert.Equal(t, dir, gotDir)
		assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
	})

	require.NoError(t, SaveFileConfig(dir, &FileConfig{ServerURL: "https://file.example.com", Timeout: Duration(10 * time.Second)}))

	t.Run("config file", func(t *testing.T) {
		cfg, _, err := (&Globals{ConfigDir: dir}).clientConfig()
		require.NoError(t, err)
		assert.Equal(t, "https://file.example.com", cfg.ServerURL)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
	})

	t.Run("flags win", func(t *testing.T) {
		cfg, _, err := (&Globals{ConfigDir: dir, Server: "https://flag.example.com", Timeout: time.Second}).clientConfig()
		require.NoError(t, err)
		assert.Equal(t, "https://flag.example.com", cfg.ServerURL)
		assert.Equal(t, time.Second, cfg.Timeout)
		assert.Empty(t, cfg.CacheDir)
	})

	t.Run("cache dir", func(t *testing.T) {
		cacheDir := t.TempDir()
		cfg, _, err := (&Globals{ConfigDir: dir, CacheDir: cacheDir}).clientConfig()
		require.NoError(t, err)
		assert.Equal(t, cacheDir, cfg.CacheDir)
	})
}
