package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Hold store backends.
const (
	HoldBackendMemory = "memory"
	HoldBackendRedis  = "redis"
)

// Config holds all operator configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	JWT     JWTConfig     `yaml:"jwt"`
	Redis   RedisConfig   `yaml:"redis"`
	Catalog CatalogConfig `yaml:"catalog"`
	Holds   HoldsConfig   `yaml:"holds"`
	Listing ListingConfig `yaml:"listing"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// JWTConfig holds JWT authentication settings
type JWTConfig struct {
	Issuer              string `yaml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	BlacklistPrefix string `yaml:"blacklist_prefix"`
}

// CatalogConfig points at the exported item catalog
type CatalogConfig struct {
	Path string `yaml:"path"` // items.json or items.json.zst
}

// HoldsConfig holds hold store settings
type HoldsConfig struct {
	Backend    string `yaml:"backend"` // "memory" or "redis"
	TTLSeconds int    `yaml:"ttl_seconds"`
	KeyPrefix  string `yaml:"key_prefix"`
}

// TTL returns the hold lifetime. Zero means holds never lapse.
func (h HoldsConfig) TTL() time.Duration {
	return time.Duration(h.TTLSeconds) * time.Second
}

// ListingConfig holds inventory listing settings
type ListingConfig struct {
	DefaultUnpacking string `yaml:"default_unpacking"` // FullListing, UnnamedOnly or None
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if not provided
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Redis.BlacklistPrefix == "" {
		cfg.Redis.BlacklistPrefix = "blacklist:"
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "./assets/items.json"
	}
	if cfg.Holds.Backend == "" {
		cfg.Holds.Backend = HoldBackendMemory
	}
	if cfg.Holds.KeyPrefix == "" {
		cfg.Holds.KeyPrefix = "sortsys:holds:"
	}
	if cfg.Listing.DefaultUnpacking == "" {
		cfg.Listing.DefaultUnpacking = "UnnamedOnly"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the operator cannot run with
func (c *Config) Validate() error {
	switch c.Holds.Backend {
	case HoldBackendMemory, HoldBackendRedis:
	default:
		return fmt.Errorf("invalid holds.backend %q: must be %s or %s", c.Holds.Backend, HoldBackendMemory, HoldBackendRedis)
	}
	if c.Holds.TTLSeconds < 0 {
		return fmt.Errorf("invalid holds.ttl_seconds %d: must not be negative", c.Holds.TTLSeconds)
	}
	switch c.Listing.DefaultUnpacking {
	case "FullListing", "UnnamedOnly", "None":
	default:
		return fmt.Errorf("invalid listing.default_unpacking %q", c.Listing.DefaultUnpacking)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	return nil
}
