// Package config loads settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	CacheNone     = "none"
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CachePostgres = "postgres"
)

type Config struct {
	// Completion provider settings
	Provider      string // openai | gemini
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiAPIKey  string
	GeminiModel   string

	SummaryLanguage string // tr | en

	// RSS settings
	FeedsConfigPath string
	MaxNewsLimit    int
	NewsMaxAge      time.Duration

	// App settings
	Debug          bool
	LogFormat      string // json | console
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	// Cache settings
	CacheBackend  string
	CacheTTLHours int
	RedisAddr     string
	DatabaseURL   string

	EnableHTTPMonitoring bool
	MonitoringPort       string
}

var defaults = map[string]any{
	"COMPLETION_PROVIDER":    ProviderOpenAI,
	"OPENAI_MODEL":           "gpt-4o-mini",
	"GEMINI_MODEL":           "gemini-1.5-flash",
	"SUMMARY_LANGUAGE":       "tr",
	"FEEDS_CONFIG_PATH":      "configs/feeds.yaml",
	"MAX_NEWS_LIMIT":         8,
	"NEWS_MAX_AGE":           24 * time.Hour,
	"REQUEST_TIMEOUT":        30 * time.Second,
	"RETRY_ATTEMPTS":         3,
	"RETRY_DELAY":            time.Second,
	"CACHE_BACKEND":          CacheMemory,
	"CACHE_TTL_HOURS":        48,
	"REDIS_ADDR":             "localhost:6379",
	"ENABLE_HTTP_MONITORING": false,
	"MONITORING_PORT":        "8080",
	"DEBUG":                  false,
	"LOG_FORMAT":             "json",
}

// Load reads settings with this precedence: process environment, then the
// given .env files (".env" when none are named), then defaults. Missing .env
// files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, path := range envFiles {
		values, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for key, value := range values {
			v.SetDefault(strings.ToUpper(key), value)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{
		Provider:             strings.ToLower(v.GetString("COMPLETION_PROVIDER")),
		OpenAIAPIKey:         v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:        v.GetString("OPENAI_BASE_URL"),
		OpenAIModel:          v.GetString("OPENAI_MODEL"),
		GeminiAPIKey:         v.GetString("GEMINI_API_KEY"),
		GeminiModel:          v.GetString("GEMINI_MODEL"),
		SummaryLanguage:      strings.ToLower(v.GetString("SUMMARY_LANGUAGE")),
		FeedsConfigPath:      v.GetString("FEEDS_CONFIG_PATH"),
		MaxNewsLimit:         v.GetInt("MAX_NEWS_LIMIT"),
		NewsMaxAge:           v.GetDuration("NEWS_MAX_AGE"),
		Debug:                v.GetBool("DEBUG"),
		LogFormat:            strings.ToLower(v.GetString("LOG_FORMAT")),
		RequestTimeout:       v.GetDuration("REQUEST_TIMEOUT"),
		RetryAttempts:        v.GetInt("RETRY_ATTEMPTS"),
		RetryDelay:           v.GetDuration("RETRY_DELAY"),
		CacheBackend:         strings.ToLower(v.GetString("CACHE_BACKEND")),
		CacheTTLHours:        v.GetInt("CACHE_TTL_HOURS"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		EnableHTTPMonitoring: v.GetBool("ENABLE_HTTP_MONITORING"),
		MonitoringPort:       v.GetString("MONITORING_PORT"),
	}

	return cfg, cfg.Validate()
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	default:
		return fmt.Errorf("COMPLETION_PROVIDER must be 'openai' or 'gemini'")
	}

	if c.SummaryLanguage != "tr" && c.SummaryLanguage != "en" {
		return fmt.Errorf("SUMMARY_LANGUAGE must be 'tr' or 'en'")
	}
	if c.MaxNewsLimit <= 0 {
		return fmt.Errorf("MAX_NEWS_LIMIT must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("RETRY_DELAY must not be negative")
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console'")
	}

	switch c.CacheBackend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis cache")
		}
	case CachePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres cache")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of none, memory, redis, postgres")
	}
	if c.CacheBackend != CacheNone && c.CacheTTLHours <= 0 {
		return fmt.Errorf("CACHE_TTL_HOURS must be positive")
	}
	return nil
}
