package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"INSIGHTLOOM_API_KEY", "OPENROUTER_API_KEY", "GEMINI_API_KEY", "INSIGHTLOOM_GEMINI_API_KEY", "INSIGHTLOOM_DEFAULT_PROVIDER", "INSIGHTLOOM_SAMPLE_ROWS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", c.DefaultProvider)
	assert.Equal(t, 5, c.SampleRows)
	assert.Equal(t, 90, c.ChatTimeoutSec)
	assert.Equal(t, 3, c.RetryMaxAttempts)
	assert.Equal(t, "http://127.0.0.1:11434", c.OllamaHost)
	assert.Equal(t, filepath.Join(home, ".insightloom"), c.DataDir)
	assert.Equal(t, filepath.Join(home, ".insightloom", "dashboards.db"), c.DBPath())
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("INSIGHTLOOM_DEFAULT_PROVIDER", "ollama")
	t.Setenv("INSIGHTLOOM_SAMPLE_ROWS", "12")
	t.Setenv("GEMINI_API_KEY", "g-key")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", c.DefaultProvider)
	assert.Equal(t, 12, c.SampleRows)
	assert.Equal(t, "g-key", c.GeminiAPIKey)
}

func TestSaveThenLoad(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, c.Set("default_provider", "Gemini"))
	require.NoError(t, c.Set("sample_rows", "8"))
	require.NoError(t, c.Set("temperature", "0.5"))
	require.NoError(t, c.Set("data_dir", "/tmp/dashboards"))
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", got.DefaultProvider)
	assert.Equal(t, 8, got.SampleRows)
	assert.Equal(t, 0.5, got.Temperature)
	assert.Equal(t, "/tmp/dashboards", got.DataDir)
}

func TestSetRejectsBadValues(t *testing.T) {
	c := &Global{}
	assert.Error(t, c.Set("default_provider", "azure"))
	assert.Error(t, c.Set("max_tokens", "lots"))
	assert.Error(t, c.Set("sample_rows", "-1"))
	assert.Error(t, c.Set("temperature", "3"))
	assert.Error(t, c.Set("log_level", "verbose"))
	assert.Error(t, c.Set("projects_dir", "x"))
}

func TestKeysAreSettable(t *testing.T) {
	c := &Global{}
	for _, k := range Keys {
		val := "1"
		switch k {
		case "default_provider":
			val = "ollama"
		case "log_level":
			val = "debug"
		}
		assert.NoError(t, c.Set(k, val), k)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_rows: [unclosed"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}
