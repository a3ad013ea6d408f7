// Package config provides YAML-based configuration loading for ForYou.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level ForYou configuration, loaded from config.yaml.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Notifiers NotifiersConfig `yaml:"notifiers"`
}

// DatabaseConfig selects either a MySQL server or a local SQLite file.
// When Path is set, the SQLite driver is used and the MySQL fields are
// ignored.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"`
}

// ServerConfig holds the JSON API listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SessionsConfig controls session lifecycle housekeeping.
type SessionsConfig struct {
	// IdleTimeoutMinutes closes active sessions with no activity for this
	// long; the sweep runs on SweepSchedule (5-field cron expression).
	IdleTimeoutMinutes int    `yaml:"idle_timeout_minutes"`
	SweepSchedule      string `yaml:"sweep_schedule"`
}

// NotifiersConfig configures outbound escalation alerts.
type NotifiersConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack volunteer-channel alert settings.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig holds Discord volunteer-channel alert settings.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "foryou"
	}
	if c.Database.Database == "" {
		c.Database.Database = "foryou"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Sessions.IdleTimeoutMinutes == 0 {
		c.Sessions.IdleTimeoutMinutes = 3
	}
	if c.Sessions.SweepSchedule == "" {
		c.Sessions.SweepSchedule = "*/2 * * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Sessions.IdleTimeoutMinutes < 0 {
		errs = append(errs, "sessions.idle_timeout_minutes must not be negative")
	}
	if c.Notifiers.Slack.Token != "" && c.Notifiers.Slack.Channel == "" {
		errs = append(errs, "notifiers.slack.channel is required when a slack token is set")
	}
	if c.Notifiers.Discord.Token != "" && c.Notifiers.Discord.ChannelID == "" {
		errs = append(errs, "notifiers.discord.channel_id is required when a discord token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
