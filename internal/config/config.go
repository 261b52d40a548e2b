package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models crewtime.yml.
type Config struct {
	Server struct {
		URL      string `yaml:"url"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Sync struct {
		PollInterval time.Duration `yaml:"poll_interval"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"sync"`
	Alerts struct {
		Channel  string `yaml:"channel"`
		Telegram struct {
			Token  string `yaml:"token"`
			ChatID int64  `yaml:"chat_id"`
		} `yaml:"telegram"`
	} `yaml:"alerts"`
}

const (
	AlertChannelNone     = "none"
	AlertChannelLog      = "log"
	AlertChannelTelegram = "telegram"
)

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "crewtime.yml")
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the built-in config.
func Default() *Config {
	var cfg Config
	cfg.Server.URL = "http://127.0.0.1:8080"
	cfg.Server.BasePath = "/api"
	cfg.Sync.PollInterval = time.Second
	cfg.Sync.Timeout = 10 * time.Second
	cfg.Alerts.Channel = AlertChannelLog
	return &cfg
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("config.server.url is required")
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("config.sync.poll_interval must be positive")
	}
	switch c.Alerts.Channel {
	case "", AlertChannelNone, AlertChannelLog:
	case AlertChannelTelegram:
		if c.Alerts.Telegram.Token == "" {
			return fmt.Errorf("config.alerts.telegram.token is required for the telegram channel")
		}
		if c.Alerts.Telegram.ChatID == 0 {
			return fmt.Errorf("config.alerts.telegram.chat_id is required for the telegram channel")
		}
	default:
		return fmt.Errorf("config.alerts.channel must be one of none, log, telegram")
	}
	return nil
}
