// Package pipeline holds the configuration shared by the CLI and the API
// server: logging, chat backend, generation, expansion, and output paths.
package pipeline

import (
	"fmt"
	"time"

	"github.com/Caia-Tech/caia-datachef/pkg/logging"
)

// Backend kinds accepted by BackendConfig.Kind.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Config holds the complete pipeline configuration.
type Config struct {
	Logging    *logging.LogConfig `json:"logging"`
	Backend    *BackendConfig     `json:"backend"`
	Generation *GenerationConfig  `json:"generation"`
	Expansion  *ExpansionConfig   `json:"expansion"`
	Server     *ServerConfig      `json:"server"`
	DataPaths  *DataPathsConfig   `json:"data_paths"`
}

// BackendConfig selects and configures the chat backend.
type BackendConfig struct {
	// Kind is "ollama" or "openai".
	Kind string `json:"kind"`

	// Model names the chat model, e.g. "llama3" or "gpt-4o-mini".
	Model string `json:"model"`

	// BaseURL is the Ollama server address; ignored for OpenAI.
	BaseURL string `json:"base_url"`

	// APIKey authenticates against OpenAI; ignored for Ollama.
	APIKey string `json:"-"`

	RequestTimeout time.Duration `json:"request_timeout"`
}

// GenerationConfig controls content-to-conversation generation.
type GenerationConfig struct {
	Turns        int    `json:"turns"`
	Context      string `json:"context"`
	HedgingLevel string `json:"hedging_level"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
}

// ExpansionConfig controls dataset expansion.
type ExpansionConfig struct {
	// Factor is how many paraphrased variants each conversation yields.
	Factor int `json:"factor"`

	// Workers bounds concurrent backend calls.
	Workers int `json:"workers"`

	// ReferenceFields names the roles whose values are fed to the
	// paraphraser as grounding facts.
	ReferenceFields []string `json:"reference_fields"`

	// StaticFields names the roles copied verbatim instead of
	// paraphrased.
	StaticFields []string `json:"static_fields"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	MaxRequestSize int64         `json:"max_request_size"`
}

// DataPathsConfig holds data directory paths.
type DataPathsConfig struct {
	OutputDir string `json:"output_dir"`
	LogDir    string `json:"log_dir"`
	TempDir   string `json:"temp_dir"`
}

// DefaultConfig returns a complete default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: &logging.LogConfig{
			Level:      "info",
			Format:     "json",
			OutputFile: "logs/caia-datachef.log",
			MaxSize:    100 * 1024 * 1024, // 100MB
			Console:    true,
		},

		Backend: &BackendConfig{
			Kind:           BackendOllama,
			Model:          "llama3",
			BaseURL:        "http://127.0.0.1:11434",
			RequestTimeout: 60 * time.Second,
		},

		Generation: &GenerationConfig{
			Turns:        3,
			Context:      "research",
			HedgingLevel: "balanced",
			ChunkSize:    2000,
			ChunkOverlap: 200,
		},

		Expansion: &ExpansionConfig{
			Factor:          3,
			Workers:         4,
			ReferenceFields: []string{"human", "gpt"},
			StaticFields:    nil,
		},

		Server: &ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxRequestSize: 100 * 1024 * 1024, // 100MB
		},

		DataPaths: &DataPathsConfig{
			OutputDir: "./data/datasets",
			LogDir:    "./logs",
			TempDir:   "./data/temp",
		},
	}
}

// ProductionConfig returns production-ready configuration.
func ProductionConfig() *Config {
	config := DefaultConfig()

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Console = false

	config.Expansion.Workers = 8

	return config
}

// DevelopmentConfig returns development configuration.
func DevelopmentConfig() *Config {
	config := DefaultConfig()

	config.Logging.Level = "debug"
	config.Logging.Format = "pretty"
	config.Logging.Console = true

	config.Expansion.Workers = 2

	return config
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendOllama, BackendOpenAI:
	default:
		return fmt.Errorf("unknown backend kind %q", c.Backend.Kind)
	}
	if c.Backend.Kind == BackendOpenAI && c.Backend.APIKey == "" {
		return fmt.Errorf("openai backend requires an API key")
	}
	if c.Expansion.Factor < 1 {
		return fmt.Errorf("expansion factor must be >= 1, got %d", c.Expansion.Factor)
	}
	if c.Expansion.Workers < 1 {
		return fmt.Errorf("expansion workers must be >= 1, got %d", c.Expansion.Workers)
	}
	if c.Generation.Turns < 1 {
		return fmt.Errorf("generation turns must be >= 1, got %d", c.Generation.Turns)
	}
	return nil
}
