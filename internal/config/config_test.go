package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"HOST", "PORT", "REQUEST_TIMEOUT", "MODEL_TIMEOUT", "IMAGE_FETCH_TIMEOUT",
		"MAX_REQUEST_BODY_SIZE", "MAX_WORKERS", "SESSION_TTL", "ANTHROPIC_MODEL",
		"OCR_ENABLED", "OCR_LANGUAGE", "INSPECT_MODE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected defaults to load, got %v", err)
	}

	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Expected 0.0.0.0:8080, got %s", cfg.ServerAddress())
	}
	if cfg.RequestTimeout != 120*time.Second {
		t.Errorf("Expected 120s request timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.ModelTimeout != 90*time.Second {
		t.Errorf("Expected 90s model timeout, got %s", cfg.ModelTimeout)
	}
	if cfg.MaxRequestBodySize != 10*1024*1024 {
		t.Errorf("Expected 10MB body limit, got %d", cfg.MaxRequestBodySize)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("Expected 30m session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.AnthropicModel != DefaultModel {
		t.Errorf("Expected default model, got %s", cfg.AnthropicModel)
	}
	if cfg.OCREnabled {
		t.Error("Expected OCR to be disabled by default")
	}
	if cfg.InspectMode != "standard" || cfg.OCRLanguage != "eng" {
		t.Errorf("Expected standard inspection in eng, got %s/%s", cfg.InspectMode, cfg.OCRLanguage)
	}
	if cfg.AzureConfigured() {
		t.Error("Expected Azure to be unconfigured by default")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("MODEL_TIMEOUT", "5s")
	t.Setenv("MAX_WORKERS", "3")
	t.Setenv("OCR_ENABLED", "true")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "a2V5")
	t.Setenv("REQUEST_TIMEOUT", "not-a-duration")
	t.Setenv("INSPECT_MODE", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected overrides to load, got %v", err)
	}
	if cfg.ServerAddress() != "127.0.0.1:9090" {
		t.Errorf("Unexpected address %s", cfg.ServerAddress())
	}
	if cfg.ModelTimeout != 5*time.Second {
		t.Errorf("Expected 5s, got %s", cfg.ModelTimeout)
	}
	if cfg.MaxWorkers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.MaxWorkers)
	}
	if !cfg.OCREnabled || cfg.InspectMode != "ocr" {
		t.Errorf("Expected OCR to be enabled, got mode %s", cfg.InspectMode)
	}
	if !cfg.AzureConfigured() {
		t.Error("Expected Azure to be configured")
	}
	if cfg.RequestTimeout != 120*time.Second {
		t.Errorf("Expected invalid duration to fall back to default, got %s", cfg.RequestTimeout)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric port", "PORT", "http"},
		{"port out of range", "PORT", "70000"},
		{"zero body size", "MAX_REQUEST_BODY_SIZE", "0"},
		{"negative workers", "MAX_WORKERS", "-1"},
		{"unknown inspect mode", "INSPECT_MODE", "thorough"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("Expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFromEnv_InspectModeWinsOverOCRFlag(t *testing.T) {
	t.Setenv("OCR_ENABLED", "true")
	t.Setenv("INSPECT_MODE", "Fast")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.InspectMode != "fast" {
		t.Errorf("Expected fast, got %s", cfg.InspectMode)
	}
}
