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
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, SourceDefault, cfg.Sources["HTTP_PORT"])
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 9000\nllm_model: gpt-4o\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "gpt-4o", cfg.LLMModel)
	assert.Equal(t, SourceFile, cfg.Sources["HTTP_PORT"])
	assert.Equal(t, "info", cfg.LogLevel, "untouched settings keep defaults")
	assert.Equal(t, SourceDefault, cfg.Sources["LOG_LEVEL"])
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 9000\n"), 0644))
	t.Setenv("CALENDER_HTTP_PORT", "7777")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.HTTPPort)
	assert.Equal(t, SourceEnv, cfg.Sources["HTTP_PORT"])
}

func TestLoadMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: [not an int\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Config{Timezone: "Mars/Olympus_Mons"}
	assert.Equal(t, time.UTC, cfg.Location())

	cfg = Config{Timezone: "UTC"}
	assert.Equal(t, time.UTC, cfg.Location())
}
