// Package config holds the process configuration of the statecraft CLI.
//
// Values are layered by viper: defaults, then an optional config file, then
// STATECRAFT_* environment variables (e.g. STATECRAFT_REDIS_ADDR), then flags.
package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/statecraft/internal/logging"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "STATECRAFT"

// History backends.
const (
	HistoryMemory = "memory"
	HistoryRedis  = "redis"
	HistorySQLite = "sqlite"
)

// Config holds all process configuration.
type Config struct {
	Workflows string        `mapstructure:"workflows"`
	LogLevel  string        `mapstructure:"log_level"`
	History   string        `mapstructure:"history"`
	Server    ServerConfig  `mapstructure:"server"`
	Redis     RedisConfig   `mapstructure:"redis"`
	SQLite    SQLiteConfig  `mapstructure:"sqlite"`
	Actions   ActionsConfig `mapstructure:"actions"`
	Privacy   PrivacyConfig `mapstructure:"privacy"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Metrics         bool          `mapstructure:"metrics"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig configures the Redis history, state store and locker.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	StateTTL time.Duration `mapstructure:"state_ttl"`
	Lock     bool          `mapstructure:"lock"` // serialize transitions per entity across replicas
}

// SQLiteConfig configures the SQLite history store.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// ActionsConfig points at the process executor configuration.
type ActionsConfig struct {
	File string `mapstructure:"file"`
}

// PrivacyConfig protects the context recorded in history.
type PrivacyConfig struct {
	MaskKeys      []string `mapstructure:"mask_keys"`      // regexps matched against context keys
	EncryptionKey string   `mapstructure:"encryption_key"` // base64 AES-256 key
	FallbackKeys  []string `mapstructure:"fallback_keys"`  // base64 keys still accepted for reading
}

// Keys decodes the configured encryption keys. active is nil when encryption is off.
func (p PrivacyConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if p.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = decodeKey(p.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("privacy.encryption_key: %w", err)
	}
	for i, k := range p.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("privacy.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workflows", "workflows.yaml")
	v.SetDefault("log_level", "info")
	v.SetDefault("history", HistoryMemory)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "statecraft:")
	v.SetDefault("redis.state_ttl", time.Duration(0))
	v.SetDefault("redis.lock", false)

	v.SetDefault("sqlite.path", "statecraft.db")
	v.SetDefault("actions.file", "")
	v.SetDefault("privacy.mask_keys", []string{})
	v.SetDefault("privacy.encryption_key", "")
	v.SetDefault("privacy.fallback_keys", []string{})
}

// Load reads the optional config file at path and unmarshals v.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.History {
	case HistoryMemory:
	case HistoryRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when history is %q", HistoryRedis)
		}
	case HistorySQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required when history is %q", HistorySQLite)
		}
	default:
		return fmt.Errorf("history must be one of %q, %q or %q, got %q", HistoryMemory, HistoryRedis, HistorySQLite, c.History)
	}

	if c.Redis.Lock && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis.lock is enabled")
	}
	if _, _, err := c.Privacy.Keys(); err != nil {
		return err
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.History == HistoryRedis || c.Redis.Lock
}
