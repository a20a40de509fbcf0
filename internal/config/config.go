// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"tradein-engine/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Server contains HTTP server settings
	Server ServerConfig `json:"server"`

	// Session contains offer-session settings
	Session SessionConfig `json:"session"`

	// Store contains session store settings
	Store StoreConfig `json:"store"`

	// Catalog contains adjustment catalog settings
	Catalog CatalogConfig `json:"catalog"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Addr is the listen address
	Addr string `json:"addr"`
}

// SessionConfig contains offer-session settings
type SessionConfig struct {
	// WindowMinutes is the session TTL window in minutes
	WindowMinutes int `json:"window_minutes"`
}

// Window returns the session TTL as a duration
func (c SessionConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// StoreConfig contains session store settings
type StoreConfig struct {
	// Backend selects the store backend (memory, postgres, redis)
	Backend string `json:"backend"`

	// PostgresDSN is the postgres connection string
	PostgresDSN string `json:"postgres_dsn,omitempty"`

	// RedisAddr is the redis host:port
	RedisAddr string `json:"redis_addr,omitempty"`

	// RedisDB is the redis database number
	RedisDB int `json:"redis_db,omitempty"`

	// RetentionHours is how long lapsed sessions stay readable
	RetentionHours int `json:"retention_hours"`
}

// Retention returns the post-expiry retention as a duration
func (c StoreConfig) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

// CatalogConfig contains adjustment catalog settings
type CatalogConfig struct {
	// Path is the catalog definition file (HCL)
	Path string `json:"path,omitempty"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	catalogPath := filepath.Join(homeDir, ".tradein-engine", "catalog.hcl")

	return &Config{
		Version: "1.0",
		Server: ServerConfig{
			Addr: ":8080",
		},
		Session: SessionConfig{
			WindowMinutes: 30,
		},
		Store: StoreConfig{
			Backend:        "memory",
			RetentionHours: 24,
		},
		Catalog: CatalogConfig{
			Path: catalogPath,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
