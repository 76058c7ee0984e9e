// Package config reads service settings from the environment, loading a
// .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Analyzer providers.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

type Config struct {
	App      AppConfig
	Analyzer AnalyzerConfig
	Session  SessionConfig
	Spotify  SpotifyConfig
}

type AppConfig struct {
	Addr          string
	Environment   string
	LogFilePath   string
	MaxFrameBytes int64
}

type AnalyzerConfig struct {
	Provider      string
	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string
	OllamaHost    string
	OllamaModel   string
	Temperature   float64
	Timeout       time.Duration
	Workers       int
	QueueSize     int
}

type SessionConfig struct {
	TTL time.Duration
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

// Enabled reports whether album art lookups can authenticate.
func (s SpotifyConfig) Enabled() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// IsProduction reports whether GO_ENV selects production output.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

// Load reads the environment. A missing .env file is not an error.
func Load() *Config {
	_ = godotenv.Load()

	geminiKey := getEnv("GEMINI_API_KEY", "")
	if geminiKey == "" {
		geminiKey = getEnv("API_KEY", "")
	}

	return &Config{
		App: AppConfig{
			Addr:          getEnv("HTTP_ADDR", ":8080"),
			Environment:   getEnv("GO_ENV", "development"),
			LogFilePath:   getEnv("LOG_FILE_PATH", "vibecheck.log"),
			MaxFrameBytes: int64(getEnvAsInt("MAX_FRAME_BYTES", 5<<20)),
		},
		Analyzer: AnalyzerConfig{
			Provider:      strings.ToLower(getEnv("ANALYZER_PROVIDER", ProviderGemini)),
			GeminiAPIKey:  geminiKey,
			GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
			OllamaModel:   getEnv("OLLAMA_MODEL", "llava"),
			Temperature:   getEnvAsFloat("ANALYZER_TEMPERATURE", 0.7),
			Timeout:       getEnvAsDuration("ANALYZER_TIMEOUT", 60*time.Second),
			Workers:       getEnvAsInt("ANALYZER_WORKERS", 2),
			QueueSize:     getEnvAsInt("ANALYZER_QUEUE_SIZE", 16),
		},
		Session: SessionConfig{
			TTL: getEnvAsDuration("SESSION_TTL", time.Hour),
		},
		Spotify: SpotifyConfig{
			ClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
			ClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),
		},
	}
}

// Validate fails fast on settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	switch c.Analyzer.Provider {
	case ProviderGemini:
		if c.Analyzer.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY (or API_KEY) is required for the gemini analyzer"))
		}
	case ProviderOllama:
		if c.Analyzer.OllamaHost == "" {
			errs = append(errs, errors.New("OLLAMA_HOST is required for the ollama analyzer"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ANALYZER_PROVIDER %q", c.Analyzer.Provider))
	}
	if c.Analyzer.Workers < 1 {
		errs = append(errs, fmt.Errorf("ANALYZER_WORKERS must be at least 1, got %d", c.Analyzer.Workers))
	}
	if c.Analyzer.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("ANALYZER_QUEUE_SIZE must be at least 1, got %d", c.Analyzer.QueueSize))
	}
	if c.Analyzer.Timeout <= 0 {
		errs = append(errs, errors.New("ANALYZER_TIMEOUT must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.App.MaxFrameBytes <= 0 {
		errs = append(errs, errors.New("MAX_FRAME_BYTES must be positive"))
	}
	if (c.Spotify.ClientID == "") != (c.Spotify.ClientSecret == "") {
		errs = append(errs, errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set together"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
