// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	GRPCPort    string
	FrontendURL string
	DBPath      string
	MediaDir    string
	SessionTTL  time.Duration
	Gemini      GeminiConfig
	Visit       VisitConfig
	RateLimit   RateLimitConfig
	Timeout     TimeoutConfig
	Retry       RetryConfig
}

// GeminiConfig configures the generative content service.
type GeminiConfig struct {
	APIKey            string
	TextModel         string
	SpeechModel       string
	Voice             string
	VideoModel        string
	Temperature       float32
	VideoPollInterval time.Duration
}

// VisitConfig configures the outbound visit notification.
type VisitConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// RateLimitConfig bounds AI-backed requests per user.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// TimeoutConfig holds request-scoped deadlines.
type TimeoutConfig struct {
	HealthCheck time.Duration
	Chat        time.Duration
	Speech      time.Duration
	Quiz        time.Duration
}

// RetryConfig controls SQLite busy retries.
type RetryConfig struct {
	DatabaseMaxRetries     int
	DatabaseRetryBaseDelay time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	apiKey := getEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("API_KEY", "")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GRPCPort:    getEnv("GRPC_PORT", "9090"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/companion.db"),
		MediaDir:    getEnv("MEDIA_DIR", "./data/media"),
		SessionTTL:  getEnvDuration("SESSION_TTL", 60*time.Minute),
		Gemini: GeminiConfig{
			APIKey:            strings.TrimSpace(apiKey),
			TextModel:         getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
			SpeechModel:       getEnv("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
			Voice:             getEnv("GEMINI_TTS_VOICE", "Kore"),
			VideoModel:        getEnv("GEMINI_VIDEO_MODEL", "veo-3.1-fast-generate-preview"),
			Temperature:       getEnvFloat32("GEMINI_TEMPERATURE", 0.7),
			VideoPollInterval: getEnvDuration("GEMINI_VIDEO_POLL_INTERVAL", 5*time.Second),
		},
		Visit: VisitConfig{
			WebhookURL: getEnv("VISIT_WEBHOOK_URL", ""),
			Timeout:    getEnvDuration("VISIT_WEBHOOK_TIMEOUT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Timeout: TimeoutConfig{
			HealthCheck: 5 * time.Second,
			Chat:        getEnvDuration("CHAT_TIMEOUT", 60*time.Second),
			Speech:      getEnvDuration("SPEECH_TIMEOUT", 90*time.Second),
			Quiz:        getEnvDuration("QUIZ_TIMEOUT", 90*time.Second),
		},
		Retry: RetryConfig{
			DatabaseMaxRetries:     3,
			DatabaseRetryBaseDelay: 50 * time.Millisecond,
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
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.MediaDir == "" {
		return fmt.Errorf("MEDIA_DIR cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Gemini.VideoPollInterval <= 0 {
		return fmt.Errorf("GEMINI_VIDEO_POLL_INTERVAL must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// AIEnabled reports whether a generative API credential is configured.
func (c *Config) AIEnabled() bool {
	return c.Gemini.APIKey != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
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

func getEnvFloat32(key string, fallback float32) float32 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
