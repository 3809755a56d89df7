// Package config provides application configuration.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Insight providers.
const (
	ProviderOpenAI = "openai"
	ProviderGRPC   = "grpc"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	AllowedOrigins []string
	DB             DBConfig
	SessionTTL     time.Duration
	SessionSecret  string
	LogLevel       slog.Level
	ServeFrontend  bool
	Insight        InsightConfig
	RateLimit      RateLimitConfig
}

// DBConfig selects the session repository.
type DBConfig struct {
	Driver string // "sqlite" or "postgres"
	Path   string
	URL    string
}

// InsightConfig configures the generation service.
type InsightConfig struct {
	Provider      string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	AgentAddr     string
	Timeout       time.Duration
}

// RateLimitConfig bounds generation attempts per user.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	secret := getEnv("SESSION_SECRET", "")
	if secret == "" {
		generated, err := randomSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
		slog.Warn("SESSION_SECRET not set, identity cookies will not survive a restart")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		DB: DBConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:   getEnv("DB_PATH", "./data/wizard.db"),
			URL:    getEnv("DATABASE_URL", ""),
		},
		SessionTTL:    getEnvDuration("SESSION_TTL", 60*time.Minute),
		SessionSecret: secret,
		LogLevel:      parseLevel(getEnv("LOG_LEVEL", "info")),
		ServeFrontend: getEnvBool("SERVE_FRONTEND", true),
		Insight: InsightConfig{
			Provider:      strings.ToLower(getEnv("INSIGHT_PROVIDER", ProviderOpenAI)),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			AgentAddr:     getEnv("INSIGHT_AGENT_ADDR", ""),
			Timeout:       getEnvDuration("INSIGHT_TIMEOUT", 0),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 5),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case "postgres":
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DB.Driver)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	switch c.Insight.Provider {
	case ProviderOpenAI:
		if c.Insight.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when INSIGHT_PROVIDER=openai")
		}
	case ProviderGRPC:
		if c.Insight.AgentAddr == "" {
			return fmt.Errorf("INSIGHT_AGENT_ADDR is required when INSIGHT_PROVIDER=grpc")
		}
	default:
		return fmt.Errorf("INSIGHT_PROVIDER must be openai or grpc, got %q", c.Insight.Provider)
	}
	if c.Insight.Timeout < 0 {
		return fmt.Errorf("INSIGHT_TIMEOUT cannot be negative")
	}
	if c.RateLimit.RequestsPerWindow < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS cannot be negative")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if value == "0" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
