package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Database DatabaseConfig `yaml:"database"`
	Webhooks WebhooksConfig `yaml:"webhooks"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StoreConfig addresses the external record store holding the job table.
type StoreConfig struct {
	BaseURL string        `yaml:"base_url"`
	BaseID  string        `yaml:"base_id"`
	TableID string        `yaml:"table_id"`
	ViewID  string        `yaml:"view_id"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type WorkflowConfig struct {
	DefaultRegion     string `yaml:"default_region"`
	StrictTransitions bool   `yaml:"strict_transitions"`
	Timezone          string `yaml:"timezone"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type WebhooksConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout"`
	WorkerCount int           `yaml:"worker_count"`
	QueueSize   int           `yaml:"queue_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			BaseURL: "https://api.airtable.com",
			Timeout: 15 * time.Second,
		},
		Workflow: WorkflowConfig{
			DefaultRegion:     "north",
			StrictTransitions: false,
			Timezone:          "Asia/Jerusalem",
		},
		Database: DatabaseConfig{
			Path: "./data/presstrack.db",
		},
		Webhooks: WebhooksConfig{
			MaxRetries:  3,
			RetryDelay:  5 * time.Second,
			Timeout:     10 * time.Second,
			WorkerCount: 3,
			QueueSize:   100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers environment overrides on top of file values; the bearer
// token in particular usually arrives through the environment rather than
// the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("PRESSTRACK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("PRESSTRACK_STORE_TOKEN"); v != "" {
		c.Store.Token = v
	}
	if v := os.Getenv("PRESSTRACK_STORE_BASE_URL"); v != "" {
		c.Store.BaseURL = v
	}
	if v := os.Getenv("PRESSTRACK_STORE_BASE_ID"); v != "" {
		c.Store.BaseID = v
	}
	if v := os.Getenv("PRESSTRACK_STORE_TABLE_ID"); v != "" {
		c.Store.TableID = v
	}
	if v := os.Getenv("PRESSTRACK_STORE_VIEW_ID"); v != "" {
		c.Store.ViewID = v
	}
	if v := os.Getenv("PRESSTRACK_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("PRESSTRACK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Store.BaseID == "" {
		return fmt.Errorf("store base id is required")
	}

	if c.Store.TableID == "" {
		return fmt.Errorf("store table id is required")
	}

	if c.Store.Token == "" {
		return fmt.Errorf("store token is required (set PRESSTRACK_STORE_TOKEN)")
	}

	if c.Store.Timeout < 0 {
		return fmt.Errorf("store timeout must be non-negative")
	}

	if c.Workflow.DefaultRegion != "north" && c.Workflow.DefaultRegion != "south" {
		return fmt.Errorf("default region must be north or south, got %q", c.Workflow.DefaultRegion)
	}

	if _, err := time.LoadLocation(c.Workflow.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Workflow.Timezone, err)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Webhooks.MaxRetries < 0 {
		return fmt.Errorf("webhook max retries must be non-negative")
	}

	if c.Webhooks.RetryDelay < 0 {
		return fmt.Errorf("webhook retry delay must be non-negative")
	}

	if c.Webhooks.WorkerCount < 1 {
		return fmt.Errorf("webhook worker count must be at least 1")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", c.Logging.Format)
	}

	return nil
}
