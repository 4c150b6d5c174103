package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Defaults  Defaults
}

type EmbeddingConfig struct {
	URL   string // face embedding server, defaults to http://localhost:8000
	Model string // model name for reference only
}

// Defaults are the built-in tuning values shipped with the binary.
type Defaults struct {
	Clustering ClusteringDefaults `yaml:"clustering"`
	Extraction ExtractionDefaults `yaml:"extraction"`
	Similar    SimilarDefaults    `yaml:"similar"`
}

type ClusteringDefaults struct {
	Eps        float64 `yaml:"eps"`
	MinSamples int     `yaml:"min_samples"`
}

type ExtractionDefaults struct {
	MaxImageSize int `yaml:"max_image_size"`
	Concurrency  int `yaml:"concurrency"`
}

type SimilarDefaults struct {
	Threshold float64 `yaml:"threshold"`
	Limit     int     `yaml:"limit"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func Load() *Config {
	var defaults Defaults
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	defaults.Extraction.Concurrency = envInt("FACE_SORTER_CONCURRENCY", defaults.Extraction.Concurrency)

	return &Config{
		Embedding: EmbeddingConfig{
			URL:   os.Getenv("FACE_EMBEDDING_URL"),
			Model: os.Getenv("FACE_EMBEDDING_MODEL"),
		},
		Defaults: defaults,
	}
}
