package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "dev", cfg.Server.Environment)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "analysis.db", cfg.Store.SQLitePath)
	assert.Equal(t, int64(4096), cfg.Generative.MaxTokens)
	assert.Equal(t, 2, cfg.Generative.MaxRetries)
	assert.Equal(t, 5, cfg.Pipeline.DefaultMaxCourses)
	assert.Equal(t, 5, cfg.Pipeline.MaxTotalCourses)
	assert.Equal(t, 4, cfg.Pipeline.MatchConcurrency)
	assert.Equal(t, 256, cfg.Telemetry.BufferSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ANALYSIS_SERVER_PORT", "9090")
	t.Setenv("ANALYSIS_STORE_DRIVER", "postgres")
	t.Setenv("ANALYSIS_GENERATIVE_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "sk-test", cfg.Generative.Key)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Generative.Key = "sk-test"
	cfg.VectorSearch.BaseURL = "https://search.example"
	cfg.Store.Driver = "sqlite"
	assert.NoError(t, cfg.Validate())

	cfg.Generative.Key = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generative.key")

	cfg.Generative.Key = "sk-test"
	cfg.Store.Driver = "postgres"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
