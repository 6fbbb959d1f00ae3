// Package config provides configuration loading and management for duolist.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Czernobog023/duolist/checklist"
)

// Config represents the complete duolist configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	NATS   NATSConfig   `yaml:"nats"`
	Sync   SyncConfig   `yaml:"sync"`
	Users  []string     `yaml:"users"`
	User   string       `yaml:"user"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	// Addr is the listen address (default: :3000)
	Addr string `yaml:"addr"`
	// DataFile is the snapshot file path (default: data.json)
	DataFile string `yaml:"dataFile"`
}

// ClientConfig configures the CLI client
type ClientConfig struct {
	// ServerURL is the base URL of the duolist server
	ServerURL string `yaml:"serverUrl"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to run an embedded NATS server
	Embedded bool `yaml:"embedded"`
}

// SyncConfig configures the replica poll loop
type SyncConfig struct {
	// PollInterval is the time between snapshot fetches
	PollInterval time.Duration `yaml:"pollInterval"`
	// RequestTimeout bounds each fetch
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:     ":3000",
			DataFile: "data.json",
		},
		Client: ClientConfig{
			ServerURL: "http://localhost:3000",
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Sync: SyncConfig{
			PollInterval:   3 * time.Second,
			RequestTimeout: 5 * time.Second,
		},
		Users: append([]string(nil), checklist.DefaultUsers...),
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Client.ServerURL == "" {
		return fmt.Errorf("client.serverUrl is required")
	}
	if len(c.Users) < checklist.Quorum {
		return fmt.Errorf("at least %d users are required", checklist.Quorum)
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync.pollInterval must be positive")
	}
	if c.Sync.RequestTimeout <= 0 {
		return fmt.Errorf("sync.requestTimeout must be positive")
	}
	if c.User != "" && !c.hasUser(c.User) {
		return fmt.Errorf("user %q is not in the users list", c.User)
	}
	return nil
}

func (c *Config) hasUser(name string) bool {
	for _, u := range c.Users {
		if u == name {
			return true
		}
	}
	return false
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.DataFile != "" {
		c.Server.DataFile = other.Server.DataFile
	}

	if other.Client.ServerURL != "" {
		c.Client.ServerURL = other.Client.ServerURL
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	if other.Sync.PollInterval != 0 {
		c.Sync.PollInterval = other.Sync.PollInterval
	}
	if other.Sync.RequestTimeout != 0 {
		c.Sync.RequestTimeout = other.Sync.RequestTimeout
	}

	if len(other.Users) > 0 {
		c.Users = append([]string(nil), other.Users...)
	}
	if other.User != "" {
		c.User = other.User
	}
}
