package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.NotEmpty(t, cfg.Store.HistoryPath)
	assert.NotEmpty(t, cfg.Store.ArchivePath)
	assert.Equal(t, 2*time.Minute, cfg.GeminiTimeout())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"gemini:\n  model: gemini-test\n  timeout: 30s\n"), 0644))
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", cfg.Gemini.Model)
	assert.Equal(t, 30*time.Second, cfg.GeminiTimeout())
	assert.Equal(t, "env-key", cfg.Gemini.APIKey, "env overrides file")
}

func TestLoad_EnvModelOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gemini:\n  model: from-file\n"), 0644))
	t.Setenv("PERSONACHAT_MODEL", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Gemini.Model)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Gemini.BaseURL, cfg.Gemini.BaseURL)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\t not yaml"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGeminiTimeout_Malformed(t *testing.T) {
	cfg := Default()
	cfg.Gemini.Timeout = "soon"
	assert.Equal(t, 2*time.Minute, cfg.GeminiTimeout())
}
