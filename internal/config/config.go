package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultModel = "claude-3-haiku-20240307"

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ModelTimeout       time.Duration
	ImageFetchTimeout  time.Duration
	MaxRequestBodySize int64
	MaxWorkers         int
	SessionTTL         time.Duration

	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicModel   string

	AzureStorageAccount string
	AzureStorageKey     string

	OCREnabled  bool
	OCRLanguage string
	InspectMode string
	LogLevel    string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureConfigured reports whether shared key credentials for blob sources are present
func (c *Config) AzureConfigured() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 120*time.Second),
		ModelTimeout:       parseDurationOrDefault("MODEL_TIMEOUT", 90*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		MaxWorkers:         int(parseIntOrDefault("MAX_WORKERS", 0)),
		SessionTTL:         parseDurationOrDefault("SESSION_TTL", 30*time.Minute),

		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")),
		AnthropicModel:   getEnvOrDefault("ANTHROPIC_MODEL", DefaultModel),

		AzureStorageAccount: strings.TrimSpace(os.Getenv("AZURE_STORAGE_ACCOUNT")),
		AzureStorageKey:     os.Getenv("AZURE_STORAGE_KEY"),

		OCREnabled:  parseBoolOrDefault("OCR_ENABLED", false),
		OCRLanguage: getEnvOrDefault("OCR_LANGUAGE", "eng"),
		InspectMode: strings.ToLower(strings.TrimSpace(os.Getenv("INSPECT_MODE"))),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
	}
	if cfg.InspectMode == "" {
		cfg.InspectMode = "standard"
		if cfg.OCREnabled {
			cfg.InspectMode = "ocr"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that the env parsers cannot enforce on their own
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxWorkers < 0 {
		return fmt.Errorf("MAX_WORKERS must be >= 0 (got %d)", c.MaxWorkers)
	}
	if c.RequestTimeout <= 0 || c.ModelTimeout <= 0 || c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, model=%s, fetch=%s)",
			c.RequestTimeout, c.ModelTimeout, c.ImageFetchTimeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0 (got %s)", c.SessionTTL)
	}
	if strings.TrimSpace(c.AnthropicModel) == "" {
		return fmt.Errorf("ANTHROPIC_MODEL must not be empty")
	}
	switch c.InspectMode {
	case "", "standard", "ocr", "fast":
	default:
		return fmt.Errorf("invalid INSPECT_MODE: %q", c.InspectMode)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
