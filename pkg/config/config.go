// Package config loads herder's main configuration file and resolves the
// hierarchical per-device data used for rendering.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration, loaded from /etc/herder/config.yaml
// by default.
type Config struct {
	BasePaths BasePaths       `yaml:"base_paths"`
	OutputDir string          `yaml:"output_dir"`
	Transport TransportConfig `yaml:"transport"`
	Netbox    *NetboxConfig   `yaml:"netbox,omitempty"`
	Cache     *CacheConfig    `yaml:"cache,omitempty"`
}

// BasePaths holds the public repository path and the optional private
// overlay path. Both carry the same layout: config/ and templates/.
type BasePaths struct {
	Public  string `yaml:"public"`
	Private string `yaml:"private,omitempty"`
}

// TransportConfig holds the device transport settings.
type TransportConfig struct {
	Driver         string `yaml:"driver"` // "ssh" (default) or "dryrun"
	Username       string `yaml:"username"`
	SSHKeyPath     string `yaml:"ssh_key"`
	Port           int    `yaml:"port"`
	TimeoutSec     int    `yaml:"timeout"`
	ConfirmTimeout int    `yaml:"commit_confirm_timeout"` // minutes
	StateDir       string `yaml:"state_dir"`              // dryrun driver only
}

// Timeout returns the connect timeout as a duration, defaulting to 30s.
func (t TransportConfig) Timeout() time.Duration {
	if t.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(t.TimeoutSec) * time.Second
}

// NetboxConfig enables inventory enrichment when present.
type NetboxConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// CacheConfig enables the Redis read-through cache for inventory lookups.
type CacheConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	TTLSec    int    `yaml:"ttl"`
}

// TTL returns the cache TTL as a duration, defaulting to 5 minutes.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TTLSec) * time.Second
}

// Load parses the YAML config file at path. A missing file yields a
// zero-value Config, not an error; an unparseable one is an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
