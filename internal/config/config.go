// Package config loads client configuration from the environment, with an
// optional YAML file override for settings that are awkward as env vars.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all client configuration.
type Config struct {
	Chat    ChatConfig    `yaml:"chat"`
	Logging LogConfig     `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ChatConfig holds conversation and transport configuration.
type ChatConfig struct {
	// Endpoint is the well-known WebSocket URL supplied at session start.
	Endpoint string `envconfig:"CHAT_ENDPOINT" yaml:"endpoint" default:"ws://localhost:8000/ws"`
	// Welcome seeds the message list on mount and on reset.
	Welcome string `envconfig:"CHAT_WELCOME" yaml:"welcome" default:"Welcome! Ask me anything."`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" default:"info"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" default:"false"`
}

// MetricsConfig holds the optional local observability listener.
type MetricsConfig struct {
	// Addr is the listen address for /metrics and /healthz. Empty disables
	// the listener.
	Addr string `envconfig:"METRICS_ADDR" yaml:"addr" default:""`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadFile loads configuration from the environment, then applies overrides
// from a YAML file. File values win over environment values.
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
