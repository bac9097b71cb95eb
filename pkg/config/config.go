package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server" jsonschema:"description=Server configuration"`
	Fetch    FetchConfig    `yaml:"fetch" json:"fetch" jsonschema:"description=Upstream feed fetching configuration"`
	Response ResponseConfig `yaml:"response" json:"response" jsonschema:"description=Response rendering configuration"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=60s,description=HTTP server timeout, must exceed the worst case fetch time"`
}

// FetchConfig holds upstream fetch settings
type FetchConfig struct {
	Timeout    time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Upstream request timeout"`
	UserAgent  string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Mozilla/5.0,description=User agent sent to feed sources"`
	MaxSize    int64         `yaml:"max_size" json:"max_size" jsonschema:"default=10485760,minimum=1,description=Maximum feed body size in bytes"`
	Retries    int           `yaml:"retries" json:"retries" jsonschema:"default=1,minimum=1,description=Total upstream attempts per request"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay" jsonschema:"default=500ms,description=Initial delay between attempts"`
}

// ResponseConfig holds response rendering settings
type ResponseConfig struct {
	IncludeHash bool `yaml:"include_hash" json:"include_hash" jsonschema:"default=false,description=Add sha256 hash of the feed URL to every response"`
	Sanitize    bool `yaml:"sanitize" json:"sanitize" jsonschema:"default=false,description=Sanitize html in descriptions"`
	AllowRaw    bool `yaml:"allow_raw" json:"allow_raw" jsonschema:"default=false,description=Allow raw=true requests returning the parsed tree"`
}

// Default returns configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		return nil, fmt.Errorf("verify config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 60 * time.Second
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 30 * time.Second
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "Mozilla/5.0"
	}
	if cfg.Fetch.MaxSize == 0 {
		cfg.Fetch.MaxSize = 10 * 1024 * 1024
	}
	if cfg.Fetch.Retries == 0 {
		cfg.Fetch.Retries = 1
	}
	if cfg.Fetch.RetryDelay == 0 {
		cfg.Fetch.RetryDelay = 500 * time.Millisecond
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	if cfg.Fetch.Timeout < 100*time.Millisecond {
		return fmt.Errorf("fetch timeout must be at least 100ms")
	}
	if cfg.Fetch.MaxSize < 0 {
		return fmt.Errorf("fetch.max_size must be positive")
	}
	if cfg.Fetch.Retries < 1 || cfg.Fetch.Retries > 10 {
		return fmt.Errorf("fetch.retries must be between 1 and 10")
	}
	if cfg.Fetch.RetryDelay < 0 {
		return fmt.Errorf("fetch.retry_delay must be non-negative")
	}
	if budget := cfg.Fetch.MaxDuration(); budget >= cfg.Server.Timeout {
		return fmt.Errorf("server timeout %v must exceed worst case fetch time %v (fetch.timeout * fetch.retries + backoff)",
			cfg.Server.Timeout, budget)
	}
	return nil
}

// maxRetryDelay caps a single backoff delay, same as the fetcher
const maxRetryDelay = 5 * time.Second

// MaxDuration returns the worst case time of a fetch with all retries and backoff delays, 10% jitter included
func (f FetchConfig) MaxDuration() time.Duration {
	res := time.Duration(f.Retries) * f.Timeout
	delay := f.RetryDelay
	for i := 1; i < f.Retries; i++ {
		res += min(delay, maxRetryDelay) * 11 / 10
		delay *= 2
	}
	return res
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}
