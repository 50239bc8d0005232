// Package config handles reading and writing .planet/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/planet-dev/planet/internal/session"
)

// Config is the top-level structure for .planet/config.yaml.
type Config struct {
	Version int          `yaml:"version"`
	Server  ServerConfig `yaml:"server"`
	Chat    ChatConfig   `yaml:"chat"`
	Log     LogConfig    `yaml:"log"`
	Ledger  LedgerConfig `yaml:"ledger"`
}

// ServerConfig locates the document Q&A server.
type ServerConfig struct {
	BaseURL      string `yaml:"base_url"`
	Timeout      int    `yaml:"timeout"` // seconds, 0 = no client timeout
	MaxRedirects int    `yaml:"max_redirects"` // 0 disables redirects
	DocumentsTTL int    `yaml:"documents_ttl"` // seconds, 0 = client default
}

// ChatConfig controls how sessions start and render.
type ChatConfig struct {
	Seed           []session.Message `yaml:"seed"`
	RenderMarkdown bool              `yaml:"render_markdown"`
}

// LogConfig controls diagnostic logging and the session journal.
type LogConfig struct {
	Level   string `yaml:"level"` // trace | debug | info | warn | error
	File    string `yaml:"file"`  // relative to .planet/, empty disables
	Journal bool   `yaml:"journal"`
}

// LedgerConfig controls the upload ledger.
type LedgerConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxAgeDays int  `yaml:"max_age_days"`
}

// EnvBaseURL overrides server.base_url when set.
const EnvBaseURL = "PLANET_BASE_URL"

const configDir = ".planet"
const configFile = "config.yaml"

// Dir returns the .planet directory inside the project root dir.
func Dir(dir string) string {
	return filepath.Join(dir, configDir)
}

// ReadConfig reads .planet/config.yaml from the given directory.
// dir is the working directory (not .planet/ itself).
// Keys the file omits keep their DefaultConfig values; keys it sets, zero
// values included, win.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to .planet/config.yaml in the given directory.
// Creates the .planet/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, configDir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Load reads the config in dir, falling back to DefaultConfig when there
// is none, then applies environment overrides and fills unset fields.
func Load(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if errors.Is(err, os.ErrNotExist) {
		cfg = DefaultConfig()
	} else if err != nil {
		return nil, err
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.Server.BaseURL = v
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills fields that have no meaningful empty value. Zero
// max_redirects (redirects off) and zero documents_ttl are kept as set.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = def.Server.BaseURL
	}
	if c.Server.MaxRedirects < 0 {
		c.Server.MaxRedirects = 0
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// TimeoutDuration returns the per-request client timeout; zero means none.
func (s ServerConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// DocumentsTTLDuration returns how long a documents listing is cached.
func (s ServerConfig) DocumentsTTLDuration() time.Duration {
	return time.Duration(s.DocumentsTTL) * time.Second
}

// DefaultSeed is the conversation a new session starts with.
func DefaultSeed() []session.Message {
	return []session.Message{
		{Role: session.RoleUser, Text: "explain like im 5"},
		{
			Role: session.RoleAssistant,
			Text: "Our own Large Language Model (LLM) is a type of AI that can learn from data. " +
				"We have trained it on 7 billion parameters which makes it better than other LLMs. " +
				"We are featured on aiplanet.com and work with leading enterprises to help them use AI securely and privately. " +
				"We have a Generative AI Stack which helps reduce the hallucinations in LLMs and allows enterprises to use AI in their applications.",
		},
	}
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			BaseURL:      "http://127.0.0.1:8000",
			Timeout:      0,
			MaxRedirects: 4,
			DocumentsTTL: 30,
		},
		Chat: ChatConfig{
			Seed:           DefaultSeed(),
			RenderMarkdown: true,
		},
		Log: LogConfig{
			Level:   "info",
			File:    "planet.log",
			Journal: true,
		},
		Ledger: LedgerConfig{
			Enabled:    true,
			MaxAgeDays: 30,
		},
	}
}
