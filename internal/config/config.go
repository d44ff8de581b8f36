// Package config provides configuration for the decision console.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the console configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// Analysis backend
	BackendURL     string        `yaml:"backend_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AnalyzeTimeout time.Duration `yaml:"analyze_timeout"`
	RateLimitQPS   float64       `yaml:"rate_limit_qps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`

	// Backend broadcast listener
	BackendEvents       bool          `yaml:"backend_events"`
	EventsReconnectWait time.Duration `yaml:"events_reconnect_wait"`

	// Local audit journal
	DatabaseURL string `yaml:"database_url"`

	// Progress timeline and copilot cadence
	ProgressInterval time.Duration `yaml:"progress_interval"`
	CopilotDelay     time.Duration `yaml:"copilot_delay"`

	// WebSocket settings
	PingInterval   time.Duration `yaml:"ping_interval"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	MaxMessageSize int64         `yaml:"max_message_size"`

	// Logging
	Log LogConfig `yaml:"log"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPPort:            8088,
		BackendURL:          "http://localhost:8000",
		RequestTimeout:      30 * time.Second,
		AnalyzeTimeout:      10 * time.Minute,
		RateLimitQPS:        5,
		RateLimitBurst:      10,
		BackendEvents:       true,
		EventsReconnectWait: 5 * time.Second,
		DatabaseURL:         "file:nexus.db?cache=shared&mode=rwc",
		ProgressInterval:    1500 * time.Millisecond,
		CopilotDelay:        800 * time.Millisecond,
		PingInterval:        30 * time.Second,
		WriteTimeout:        10 * time.Second,
		ReadTimeout:         60 * time.Second,
		MaxMessageSize:      65536,
		Log:                 LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// NEXUS_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.HTTPPort = getEnvInt("NEXUS_HTTP_PORT", c.HTTPPort)
	c.BackendURL = getEnv("NEXUS_BACKEND_URL", c.BackendURL)
	c.RequestTimeout = getEnvDuration("NEXUS_REQUEST_TIMEOUT_MS", c.RequestTimeout)
	c.AnalyzeTimeout = getEnvDuration("NEXUS_ANALYZE_TIMEOUT_MS", c.AnalyzeTimeout)
	c.RateLimitBurst = getEnvInt("NEXUS_RATE_LIMIT_BURST", c.RateLimitBurst)
	if v := os.Getenv("NEXUS_RATE_LIMIT_QPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitQPS = f
		}
	}
	if v := os.Getenv("NEXUS_BACKEND_EVENTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.BackendEvents = b
		}
	}
	c.DatabaseURL = getEnv("NEXUS_DATABASE_URL", c.DatabaseURL)
	c.ProgressInterval = getEnvDuration("NEXUS_PROGRESS_INTERVAL_MS", c.ProgressInterval)
	c.CopilotDelay = getEnvDuration("NEXUS_COPILOT_DELAY_MS", c.CopilotDelay)
	c.Log.Level = getEnv("NEXUS_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("NEXUS_LOG_FILE", c.Log.File)
}

// Validate reports settings the console cannot run with.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend_url is required")
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress_interval must be positive")
	}
	if c.CopilotDelay < 0 {
		return fmt.Errorf("copilot_delay must not be negative")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
