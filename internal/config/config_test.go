package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("FACE_SORTER_CONCURRENCY")

	cfg := Load()

	if cfg.Defaults.Clustering.Eps != 0.55 {
		t.Errorf("Eps = %v, want 0.55", cfg.Defaults.Clustering.Eps)
	}
	if cfg.Defaults.Clustering.MinSamples != 2 {
		t.Errorf("MinSamples = %d, want 2", cfg.Defaults.Clustering.MinSamples)
	}
	if cfg.Defaults.Extraction.MaxImageSize != 1920 {
		t.Errorf("MaxImageSize = %d, want 1920", cfg.Defaults.Extraction.MaxImageSize)
	}
	if cfg.Defaults.Extraction.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Defaults.Extraction.Concurrency)
	}
}

func TestLoadEmbeddingEnv(t *testing.T) {
	t.Setenv("FACE_EMBEDDING_URL", "http://faces.local:9000")
	t.Setenv("FACE_EMBEDDING_MODEL", "buffalo_l")

	cfg := Load()

	if cfg.Embedding.URL != "http://faces.local:9000" {
		t.Errorf("URL = %s", cfg.Embedding.URL)
	}
	if cfg.Embedding.Model != "buffalo_l" {
		t.Errorf("Model = %s", cfg.Embedding.Model)
	}
}

func TestConcurrencyOverride(t *testing.T) {
	t.Setenv("FACE_SORTER_CONCURRENCY", "12")

	cfg := Load()
	if cfg.Defaults.Extraction.Concurrency != 12 {
		t.Errorf("Concurrency = %d, want 12", cfg.Defaults.Extraction.Concurrency)
	}
}

func TestConcurrencyInvalidValueIgnored(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "lots"},
		{"zero", "0"},
		{"negative", "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FACE_SORTER_CONCURRENCY", tt.value)
			cfg := Load()
			if cfg.Defaults.Extraction.Concurrency != 4 {
				t.Errorf("Concurrency = %d, want default 4", cfg.Defaults.Extraction.Concurrency)
			}
		})
	}
}
