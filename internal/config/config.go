// Package config handles engine configuration loading: storage location,
// encryption-at-rest, memory TTL, and the expired-data sweep interval
// (spec §6 env vars), plus the listen address for hosting the §6 public
// API.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order. An explicit
// path (from a -config flag) is checked first. Then: ./config.yaml,
// ~/.config/csml/config.yaml, /config/config.yaml (container convention),
// /etc/csml/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "csml", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/csml/config.yaml")
	return paths
}

var searchPathsFunc = DefaultSearchPaths

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise, searches searchPathsFunc and returns the first path
// that exists. Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range searchPathsFunc() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPathsFunc())
}

// Config holds all engine configuration.
type Config struct {
	Listen     ListenConfig     `yaml:"listen"`
	Storage    StorageConfig    `yaml:"storage"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Memory     MemoryConfig     `yaml:"memory"`
	Sweep      SweepConfig      `yaml:"sweep"`
	LogLevel   string           `yaml:"log_level"`
}

// ListenConfig defines the public API server's bind address.
type ListenConfig struct {
	Address string `yaml:"address"` // default: "" = all interfaces
	Port    int    `yaml:"port"`
}

// StorageConfig locates the sqlite database backing C8.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// EncryptionConfig controls at-rest encryption of message/memory payloads
// (spec §6: ENCRYPTION_SECRET, DISABLE_DATA_ENCRYPTION).
type EncryptionConfig struct {
	Secret  string `yaml:"secret"`
	Disable bool   `yaml:"disable"`
}

// MemoryConfig sets the default TTL applied to memories and conversations
// that don't specify their own expiry (spec §6: TTL_DURATION, seconds).
type MemoryConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// TTL returns the configured default TTL as a time.Duration.
func (m MemoryConfig) TTL() time.Duration {
	return time.Duration(m.TTLSeconds) * time.Second
}

// SweepConfig controls how often the expired-data sweeper runs
// delete_expired().
type SweepConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// Interval returns the configured sweep interval as a time.Duration.
func (s SweepConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Load reads configuration from a YAML file, applies environment
// variable overrides, fills in defaults for unset fields, and validates
// the result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides lets the spec's named environment variables override
// whatever the config file set, so deployments can inject secrets
// without writing them to disk.
func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("ENCRYPTION_SECRET"); ok {
		c.Encryption.Secret = v
	}
	if v, ok := os.LookupEnv("DISABLE_DATA_ENCRYPTION"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Encryption.Disable = b
		}
	}
	if v, ok := os.LookupEnv("TTL_DURATION"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Memory.TTLSeconds = n
		}
	}
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Called automatically by Load. After this, callers can read any field
// without checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8080
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./csml.db"
	}
	if c.Memory.TTLSeconds == 0 {
		c.Memory.TTLSeconds = 30 * 24 * 3600 // 30 days
	}
	if c.Sweep.IntervalSeconds == 0 {
		c.Sweep.IntervalSeconds = 3600 // 1h
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range (1-65535)", c.Listen.Port)
	}
	if !c.Encryption.Disable && c.Encryption.Secret == "" {
		return fmt.Errorf("encryption.secret is required unless encryption.disable is set (or set ENCRYPTION_SECRET)")
	}
	if c.Memory.TTLSeconds < 0 {
		return fmt.Errorf("memory.ttl_seconds %d must not be negative", c.Memory.TTLSeconds)
	}
	if c.Sweep.IntervalSeconds < 1 {
		return fmt.Errorf("sweep.interval_seconds %d must be positive", c.Sweep.IntervalSeconds)
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a configuration with every default applied and
// encryption disabled, suitable for local development.
func Default() *Config {
	cfg := &Config{Encryption: EncryptionConfig{Disable: true}}
	cfg.applyDefaults()
	return cfg
}
