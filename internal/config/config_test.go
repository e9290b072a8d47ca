package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAIKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("TENDERMATCH_AI_APIKEY", "")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadConfigFileDefaults(t *testing.T) {
	clearAIKeyEnv(t)
	cfg, err := LoadConfigFile(writeConfig(t, "app:\n  logLevel: info\n"))
	require.NoError(t, err)

	assert.Equal(t, "substring", cfg.Matching.SectorMatch)
	assert.Equal(t, 50, cfg.Matching.MaxNameLength)
	assert.Equal(t, 20*time.Second, cfg.Analysis.AITimeout)
	assert.Equal(t, 4, cfg.Analysis.Parallelism)
	assert.Equal(t, "Tender Review Team", cfg.Narrative.Signature)
	assert.Equal(t, time.Hour, cfg.Server.Sessions.TTL)
	assert.Equal(t, 1000, cfg.Server.Sessions.MaxSessions)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.False(t, cfg.AIEnabled(), "no key means deterministic mode")
}

func TestLoadConfigFileOverrides(t *testing.T) {
	clearAIKeyEnv(t)
	path := writeConfig(t, `
ai:
  apiKey: file-key
  justify:
    model: gemini-2.5-pro
matching:
  sectorMatch: exact
  minTokenLength: 3
narrative:
  signature: Procurement Office
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "exact", cfg.Matching.SectorMatch)
	assert.Equal(t, 3, cfg.Matching.MinTokenLength)
	assert.Equal(t, "Procurement Office", cfg.Narrative.Signature)
	assert.True(t, cfg.AIEnabled())

	justify := cfg.GetJustifyConfig()
	assert.Equal(t, "gemini-2.5-pro", justify.Model)
	assert.Equal(t, "file-key", justify.APIKey)
	require.NotNil(t, justify.Temperature)
	assert.InDelta(t, 0.4, float64(*justify.Temperature), 1e-6)

	extract := cfg.GetExtractConfig()
	assert.Equal(t, "gemini-2.0-flash", extract.Model)
	require.NotNil(t, extract.Timeout)
	assert.Equal(t, 30*time.Second, *extract.Timeout)
}

func TestLoadConfigFileEnvironment(t *testing.T) {
	clearAIKeyEnv(t)
	t.Setenv("TENDERMATCH_MATCHING_SECTORMATCH", "exact")
	t.Setenv("TENDERMATCH_SERVER_APIKEYS", "alpha, beta,,")

	cfg, err := LoadConfigFile(writeConfig(t, "server:\n  port: \"9000\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "exact", cfg.Matching.SectorMatch)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Server.APIKeys)
}

func TestLoadConfigFileRejectsInvalid(t *testing.T) {
	clearAIKeyEnv(t)

	_, err := LoadConfigFile(writeConfig(t, "matching:\n  sectorMatch: fuzzy\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sectorMatch")

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AI:       AIConfig{Timeout: time.Second},
			Matching: MatchingConfig{SectorMatch: "substring"},
			Server:   ServerConfig{Port: "8080", TLS: TLSConfig{Mode: "disabled"}},
			App:      AppConfig{DefaultFormat: "json", SupportedFormats: []string{"json", "text"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero ai timeout", func(c *Config) { c.AI.Timeout = 0 }, "AI timeout"},
		{"bad sector mode", func(c *Config) { c.Matching.SectorMatch = "" }, "sectorMatch"},
		{"negative token length", func(c *Config) { c.Matching.MinTokenLength = -1 }, "minTokenLength"},
		{"negative parallelism", func(c *Config) { c.Analysis.Parallelism = -2 }, "parallelism"},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "port"},
		{"unsupported format", func(c *Config) { c.App.DefaultFormat = "xml" }, "default format"},
		{"tls without files", func(c *Config) { c.Server.TLS.Mode = "server" }, "TLS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestGeminiKeyFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "legacy-key")
	t.Setenv("TENDERMATCH_AI_APIKEY", "")

	cfg, err := LoadConfigFile(writeConfig(t, "app:\n  logLevel: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.GetExtractConfig().APIKey)
}
