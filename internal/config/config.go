// Package config provides YAML-based configuration loading for the master.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level master configuration, loaded from master.yaml.
type Config struct {
	Title      string            `yaml:"title"`
	Database   DatabaseConfig    `yaml:"database"`
	CacheSize  int               `yaml:"cache_size"`
	Builders   []BuilderConfig   `yaml:"builders"`
	Schedulers []SchedulerConfig `yaml:"schedulers"`
	Reporters  ReportersConfig   `yaml:"reporters"`
	Dashboard  DashboardConfig   `yaml:"dashboard"`
}

// DatabaseConfig selects the storage backend: "mysql" for a shared
// server, "sqlite" for a single-master file.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	User     string `yaml:"user"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"`
}

// BuilderConfig seeds one builder row.
type BuilderConfig struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// SchedulerConfig declares one periodic scheduler: a 5-field cron
// expression, the builders it targets, and the sourcestamp it builds.
type SchedulerConfig struct {
	Name       string  `yaml:"name"`
	Cron       string  `yaml:"cron"`
	BuilderIDs []int64 `yaml:"builder_ids"`
	Branch     string  `yaml:"branch"`
	Repository string  `yaml:"repository"`
	WaitedFor  bool    `yaml:"waited_for"`
}

// ReportersConfig holds settings for completion reporters.
type ReportersConfig struct {
	PollInterval string          `yaml:"poll_interval"`
	Slack        SlackReporter   `yaml:"slack"`
	Discord      DiscordReporter `yaml:"discord"`
	GitHub       GitHubReporter  `yaml:"github"`
}

// SlackReporter posts buildset completions to a Slack channel.
type SlackReporter struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordReporter posts buildset completions to a Discord channel.
type DiscordReporter struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// GitHubReporter pushes commit statuses for completed buildsets.
type GitHubReporter struct {
	Token string `yaml:"token"`
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
}

// DashboardConfig holds status API settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
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
	if c.Title == "" {
		c.Title = "buildbot"
	}
	if c.Database.Driver == "" {
		if c.Database.Path != "" {
			c.Database.Driver = "sqlite"
		} else {
			c.Database.Driver = "mysql"
		}
	}
	if c.Database.User == "" {
		c.Database.User = "buildbot"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Database == "" {
		c.Database.Database = "buildbot"
	}
	if c.CacheSize == 0 {
		c.CacheSize = 128
	}
	if c.Reporters.PollInterval == "" {
		c.Reporters.PollInterval = "30s"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8010
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not mysql or sqlite", c.Database.Driver))
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		errs = append(errs, "database.path is required for the sqlite driver")
	}
	for i, b := range c.Builders {
		if b.ID == 0 {
			errs = append(errs, fmt.Sprintf("builders[%d].id is required", i))
		}
		if b.Name == "" {
			errs = append(errs, fmt.Sprintf("builders[%d].name is required", i))
		}
	}
	for i, s := range c.Schedulers {
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("schedulers[%d].name is required", i))
		}
		if s.Cron == "" {
			errs = append(errs, fmt.Sprintf("schedulers[%d].cron is required", i))
		}
		if len(s.BuilderIDs) == 0 {
			errs = append(errs, fmt.Sprintf("schedulers[%d].builder_ids is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
