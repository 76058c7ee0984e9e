package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_ADDR", "GO_ENV", "LOG_FILE_PATH", "MAX_FRAME_BYTES",
		"ANALYZER_PROVIDER", "GEMINI_API_KEY", "API_KEY", "GEMINI_BASE_URL", "GEMINI_MODEL",
		"OLLAMA_HOST", "OLLAMA_MODEL", "ANALYZER_TEMPERATURE", "ANALYZER_TIMEOUT",
		"ANALYZER_WORKERS", "ANALYZER_QUEUE_SIZE", "SESSION_TTL",
		"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg := Load()
	assert.Equal(t, ":8080", cfg.App.Addr)
	assert.Equal(t, ProviderGemini, cfg.Analyzer.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Analyzer.GeminiModel)
	assert.Equal(t, 0.7, cfg.Analyzer.Temperature)
	assert.Equal(t, 60*time.Second, cfg.Analyzer.Timeout)
	assert.Equal(t, 2, cfg.Analyzer.Workers)
	assert.Equal(t, 16, cfg.Analyzer.QueueSize)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, int64(5<<20), cfg.App.MaxFrameBytes)
	assert.False(t, cfg.Spotify.Enabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("API_KEY", "legacy-key")
	t.Setenv("ANALYZER_PROVIDER", "Ollama")
	t.Setenv("ANALYZER_TIMEOUT", "15s")
	t.Setenv("ANALYZER_WORKERS", "not-a-number")
	t.Setenv("GO_ENV", "production")

	cfg := Load()
	assert.Equal(t, "legacy-key", cfg.Analyzer.GeminiAPIKey, "API_KEY is the fallback credential")
	assert.Equal(t, ProviderOllama, cfg.Analyzer.Provider)
	assert.Equal(t, 15*time.Second, cfg.Analyzer.Timeout)
	assert.Equal(t, 2, cfg.Analyzer.Workers, "unparseable values keep the default")
	assert.True(t, cfg.IsProduction())

	t.Setenv("GEMINI_API_KEY", "primary-key")
	assert.Equal(t, "primary-key", Load().Analyzer.GeminiAPIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing gemini key", mutate: func(c *Config) { c.Analyzer.GeminiAPIKey = "" }, wantErr: "GEMINI_API_KEY"},
		{name: "ollama needs no key", mutate: func(c *Config) {
			c.Analyzer.Provider = ProviderOllama
			c.Analyzer.GeminiAPIKey = ""
		}},
		{name: "unknown provider", mutate: func(c *Config) { c.Analyzer.Provider = "bard" }, wantErr: "unknown ANALYZER_PROVIDER"},
		{name: "zero workers", mutate: func(c *Config) { c.Analyzer.Workers = 0 }, wantErr: "ANALYZER_WORKERS"},
		{name: "half spotify credentials", mutate: func(c *Config) { c.Spotify.ClientID = "id" }, wantErr: "SPOTIFY_CLIENT_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			t.Setenv("GEMINI_API_KEY", "key")
			cfg := Load()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
