package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds user preferences
type Config struct {
	// Remote record store. Both URL and key must be set for the remote
	// backend to be used; otherwise everything stays on this device.
	RemoteURL string `yaml:"remote_url" json:"remote_url"`
	RemoteKey string `yaml:"remote_key" json:"remote_key"`

	// RemoteTimeout bounds each remote call before falling back to the
	// local store. Zero means no bound.
	RemoteTimeout time.Duration `yaml:"remote_timeout" json:"remote_timeout"`

	DBPath    string `yaml:"db_path" json:"db_path"`       // Local SQLite database
	WallLimit int    `yaml:"wall_limit" json:"wall_limit"` // Commitments loaded on the wall

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging
}

// Dir returns the LockIn home directory (~/.lockin, or $LOCKIN_HOME)
func Dir() (string, error) {
	if dir := os.Getenv("LOCKIN_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".lockin"), nil
}

// DefaultConfig returns default settings with environment overrides applied
func DefaultConfig() *Config {
	dir, _ := Dir()
	cfg := &Config{
		WallLimit: 50,
		LogLevel:  "INFO",
	}
	if dir != "" {
		cfg.DBPath = filepath.Join(dir, "lockin.db")
		cfg.LogFile = filepath.Join(dir, "logs", "lockin.log")
	}
	cfg.applyEnv()
	return cfg
}

// applyEnv overrides fields from LOCKIN_* environment variables
func (c *Config) applyEnv() {
	c.RemoteURL = getEnv("LOCKIN_REMOTE_URL", c.RemoteURL)
	c.RemoteKey = getEnv("LOCKIN_REMOTE_KEY", c.RemoteKey)
	c.DBPath = getEnv("LOCKIN_DB_PATH", c.DBPath)
	c.LogLevel = getEnv("LOCKIN_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOCKIN_LOG_FILE", c.LogFile)
	if v := os.Getenv("LOCKIN_LOG_CONSOLE"); v != "" {
		c.LogConsole = v == "true"
	}
	if v := os.Getenv("LOCKIN_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RemoteTimeout = d
		}
	}
	if v := os.Getenv("LOCKIN_WALL_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.WallLimit = n
		}
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// RemoteConfigured reports whether remote credentials are present
func (c *Config) RemoteConfigured() bool {
	return c.RemoteURL != "" && c.RemoteKey != ""
}

// Path returns the config file path
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads config from ~/.lockin/config.yaml. Environment variables
// take precedence over the file.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads config from path, returning defaults when it does not exist
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()
	if cfg.WallLimit <= 0 {
		cfg.WallLimit = 50
	}

	return cfg, nil
}

// Save saves config to ~/.lockin/config.yaml
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to path
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold the remote key
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
