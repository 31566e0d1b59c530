// Package config loads application settings from an optional config file
// and RAG_* environment variables. The Anthropic API key is read by the SDK
// from ANTHROPIC_API_KEY and deliberately never passes through here.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all tunables. Zero values never survive Load: every field
// has a default.
type Config struct {
	Model        string `mapstructure:"model"`
	MaxRounds    int    `mapstructure:"max_rounds"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	MaxResults   int    `mapstructure:"max_results"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	MaxHistory   int    `mapstructure:"max_history"`
	DocsPath     string `mapstructure:"docs_path"`
	SessionsPath string `mapstructure:"sessions_path"`
	Addr         string `mapstructure:"addr"`
	LogLevel     string `mapstructure:"log_level"`
}

// Load reads config.yaml from the working directory when present, then
// applies RAG_* environment overrides (RAG_MAX_ROUNDS, RAG_DOCS_PATH, ...).
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("model", "claude-3-7-sonnet-latest")
	v.SetDefault("max_rounds", 2)
	v.SetDefault("max_tokens", 800)
	v.SetDefault("max_results", 5)
	v.SetDefault("chunk_size", 800)
	v.SetDefault("chunk_overlap", 100)
	v.SetDefault("max_history", 2)
	v.SetDefault("docs_path", "docs")
	v.SetDefault("sessions_path", "")
	v.SetDefault("addr", "127.0.0.1:8000")
	v.SetDefault("log_level", "info")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxRounds < 1 {
		return fmt.Errorf("max_rounds must be >= 1, got %d", c.MaxRounds)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}
