package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Instagram InstagramConfig `yaml:"instagram"`
	Tracking  TrackingConfig  `yaml:"tracking"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis settings for the webhook dedup cache and
// tracking-link click counters. Redis is optional; when disabled both
// features degrade to database-only behavior.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// WebhookConfig holds the provider webhook subscription settings
type WebhookConfig struct {
	VerifyToken string `yaml:"verify_token"`
}

// InstagramConfig holds the Instagram Graph API settings
type InstagramConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIVersion     string `yaml:"api_version"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured per-call timeout as a duration
func (c InstagramConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TrackingConfig holds tracking-link settings
type TrackingConfig struct {
	BaseURL              string `yaml:"base_url"`
	FlushIntervalSeconds int    `yaml:"flush_interval_seconds"`
}

// FlushInterval returns how often buffered click counts are written to the database
func (c TrackingConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Instagram.BaseURL == "" {
		cfg.Instagram.BaseURL = "https://graph.instagram.com"
	}
	if cfg.Instagram.APIVersion == "" {
		cfg.Instagram.APIVersion = "v21.0"
	}
	if cfg.Instagram.TimeoutSeconds == 0 {
		cfg.Instagram.TimeoutSeconds = 5
	}
	if cfg.Tracking.FlushIntervalSeconds == 0 {
		cfg.Tracking.FlushIntervalSeconds = 30
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if token := os.Getenv("WEBHOOK_VERIFY_TOKEN"); token != "" {
		cfg.Webhook.VerifyToken = token
	}
	if baseURL := os.Getenv("INSTAGRAM_BASE_URL"); baseURL != "" {
		cfg.Instagram.BaseURL = baseURL
	}
	if baseURL := os.Getenv("TRACKING_BASE_URL"); baseURL != "" {
		cfg.Tracking.BaseURL = baseURL
	}

	return cfg, nil
}
