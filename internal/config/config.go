// Package config loads PersonaChat configuration from an optional YAML
// file with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all PersonaChat configuration.
type Config struct {
	Gemini GeminiConfig `yaml:"gemini"`
	Store  StoreConfig  `yaml:"store"`
}

// GeminiConfig configures the remote generative service.
type GeminiConfig struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	BaseURL         string `yaml:"base_url"`
	Timeout         string `yaml:"timeout"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

// StoreConfig configures local persistence.
type StoreConfig struct {
	HistoryPath string `yaml:"history_path"`
	ArchivePath string `yaml:"archive_path"`
}

// DataDir returns the directory PersonaChat keeps its state in.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".personachat"
	}
	return filepath.Join(home, ".personachat")
}

// Default returns the built-in configuration.
func Default() Config {
	dir := DataDir()
	return Config{
		Gemini: GeminiConfig{
			Model:           "gemini-2.5-flash",
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			Timeout:         "2m",
			MaxOutputTokens: 8192,
		},
		Store: StoreConfig{
			HistoryPath: filepath.Join(dir, "history.json"),
			ArchivePath: filepath.Join(dir, "archive.db"),
		},
	}
}

// Load reads configuration: defaults, then the YAML file at path (if it
// exists), then environment overrides. path may be empty to use the
// default location.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(DataDir(), "config.yaml")
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("PERSONACHAT_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv("PERSONACHAT_BASE_URL"); v != "" {
		c.Gemini.BaseURL = v
	}
}

// GeminiTimeout parses the configured timeout, falling back to the default
// on a malformed value.
func (c *Config) GeminiTimeout() time.Duration {
	d, err := time.ParseDuration(c.Gemini.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}
