package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvMode, EnvLegacyMode, EnvAPIKey, EnvDB} {
		t.Setenv(k, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, core.ModeOffline, cfg.DefaultMode())
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.True(t, cfg.Retrieval.Expansion)
	assert.Equal(t, 3, cfg.WebSearch.MaxResults)
	assert.Equal(t, 120*time.Second, cfg.Graph.RequestTimeout)
	assert.Equal(t, 2000, cfg.Store.ChunkSize)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPath(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "offline", cfg.Mode)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
mode = "ONLINE"

[llm]
platform = "openrouter"
api_key = "sk-test"
completion_model = "openai/gpt-4o-mini"
timeout = "45s"

[retrieval]
top_k = 4
expansion = false

[websearch]
max_results = 5

[graph]
step_timeout = "5s"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "online", cfg.Mode)
	assert.Equal(t, core.ModeOnline, cfg.DefaultMode())
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.False(t, cfg.Retrieval.Expansion)
	assert.InDelta(t, 0.35, cfg.Retrieval.MinScore, 1e-6)
	assert.Equal(t, 5, cfg.WebSearch.MaxResults)
	assert.Equal(t, 5*time.Second, cfg.Graph.StepTimeout)
	assert.Equal(t, 60*time.Second, cfg.Graph.GenerateTimeout)

	llm := cfg.AIConfig()
	assert.Equal(t, ai.PlatformOpenRouter, llm.Platform)
	assert.Equal(t, ai.DefaultOpenRouterHost, llm.CompletionHost)
	assert.Equal(t, "openai/gpt-4o-mini", llm.CompletionModel)
	assert.Equal(t, 45*time.Second, llm.Timeout)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
[retrieval]
topk = 4
`)
	_, err := Load(path)
	require.ErrorIs(t, err, ErrUnknownKey)
	assert.Contains(t, err.Error(), "retrieval.topk")
}

func TestLoadRejectsBadSyntax(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "mode = "))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
mode = "offline"
[store]
path = "/from/file"
`)
	t.Setenv(EnvMode, "online")
	t.Setenv(EnvAPIKey, "sk-env")
	t.Setenv(EnvDB, "/from/env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "online", cfg.Mode)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "/from/env", cfg.Store.Path)
}

func TestApplyEnvPrecedence(t *testing.T) {
	env := map[string]string{
		EnvLegacyMode: "online",
		EnvMode:       "offline",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "offline", cfg.Mode)

	delete(env, EnvMode)
	cfg = Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "online", cfg.Mode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad mode", func(c *Config) { c.Mode = "sideways" }, "mode"},
		{"top k low", func(c *Config) { c.Retrieval.TopK = 0 }, "retrieval.top_k"},
		{"top k high", func(c *Config) { c.Retrieval.TopK = 33 }, "retrieval.top_k"},
		{"min score", func(c *Config) { c.Retrieval.MinScore = 1.5 }, "retrieval.min_score"},
		{"max results", func(c *Config) { c.WebSearch.MaxResults = 11 }, "websearch.max_results"},
		{"rate", func(c *Config) { c.WebSearch.RatePerSecond = 0 }, "websearch.rate_per_second"},
		{"step timeout", func(c *Config) { c.Graph.StepTimeout = 0 }, "graph.step_timeout"},
		{"history", func(c *Config) { c.Graph.MaxHistoryTurns = -1 }, "graph.max_history_turns"},
		{"store path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"overlap", func(c *Config) { c.Store.ChunkOverlap = c.Store.ChunkSize }, "store.chunk_size"},
		{"platform", func(c *Config) { c.LLM.Platform = "bedrock" }, "llm"},
		{"openrouter key", func(c *Config) { c.LLM.Platform = "openrouter" }, "llm"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 2 }, "llm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.Mode = "x"
	cfg.Retrieval.TopK = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
	assert.Contains(t, err.Error(), "retrieval.top_k")
}

func TestWriteOmitsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "sk-secret"

	var buf bytes.Buffer
	require.NoError(t, cfg.Write(&buf))
	assert.NotContains(t, buf.String(), "sk-secret")
	assert.Equal(t, "sk-secret", cfg.LLM.APIKey)

	var decoded Config
	_, err := toml.Decode(buf.String(), &decoded)
	require.NoError(t, err)
	assert.Equal(t, cfg.Retrieval, decoded.Retrieval)
	assert.Equal(t, cfg.Graph, decoded.Graph)
}
