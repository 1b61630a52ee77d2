package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Save original env and restore after test
	originalEnv := os.Environ()
	defer func() {
		os.Clearenv()
		for _, env := range originalEnv {
			for i, c := range env {
				if c == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}()

	os.Clearenv()

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Port", cfg.Port, 8000},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "json"},
		{"RequestTimeout", cfg.RequestTimeout, 60 * time.Second},
		{"ModelName", cfg.ModelName, "ViT-B-32"},
		{"ModelPretrained", cfg.ModelPretrained, "openai"},
		{"EmbeddingDim", cfg.EmbeddingDim, 512},
		{"ImageSize", cfg.ImageSize, 224},
		{"FetchTimeout", cfg.FetchTimeout, time.Duration(0)},
		{"MaxImageBytes", cfg.MaxImageBytes, int64(0)},
		{"CacheProvider", cfg.CacheProvider, "none"},
		{"QueueProvider", cfg.QueueProvider, "none"},
		{"QueueSubject", cfg.QueueSubject, "embed.image"},
		{"MetricsEnabled", cfg.MetricsEnabled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FETCH_TIMEOUT", "15s")
	t.Setenv("MAX_IMAGE_BYTES", "1048576")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}
	if cfg.FetchTimeout != 15*time.Second {
		t.Errorf("expected fetch timeout 15s, got %v", cfg.FetchTimeout)
	}
	if cfg.MaxImageBytes != 1<<20 {
		t.Errorf("expected max image bytes 1048576, got %d", cfg.MaxImageBytes)
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := Config{ModelName: "ViT-L-14", ModelPretrained: "laion2b_s32b_b82k", CacheTTL: 90}

	if got := cfg.ModelID(); got != "ViT-L-14/laion2b_s32b_b82k" {
		t.Errorf("unexpected model id %q", got)
	}
	if got := cfg.CacheTTLDuration(); got != 90*time.Second {
		t.Errorf("expected 90s ttl, got %v", got)
	}
}
