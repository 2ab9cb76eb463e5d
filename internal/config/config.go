// Package config provides configuration loading and validation for the server and the CLI.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. BENEFITS_REDIS_ADDRESS
const EnvPrefix = "BENEFITS"

// Config represents the service configuration. Values come from an optional YAML file,
// then BENEFITS_* environment variables, then defaults.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
	Data      DataConfig      `mapstructure:"data"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig holds the PostgreSQL connection URL
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig holds expiry times for stored bundles and cached recommendations
type CacheConfig struct {
	BundleTTL time.Duration `mapstructure:"bundle_ttl"`
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

// LogConfig selects the logger level and encoder
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DataConfig points at the directory holding public use files
type DataConfig struct {
	Directory string `mapstructure:"directory"`
}

// RateLimitConfig holds per-minute request limits
type RateLimitConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	DefaultLimit  int      `mapstructure:"default_limit"`
	OptimizeLimit int      `mapstructure:"optimize_limit"`
	Whitelist     []string `mapstructure:"whitelist"`
	Blacklist     []string `mapstructure:"blacklist"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.url", "")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.bundle_ttl", time.Hour)
	v.SetDefault("cache.result_ttl", 15*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("data.directory", "data")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_limit", 1000)
	v.SetDefault("rate_limit.optimize_limit", 60)
	v.SetDefault("rate_limit.whitelist", []string{})
	v.SetDefault("rate_limit.blacklist", []string{})
}

// Load reads configuration from the YAML file at path, if any.
// An empty path skips the file and uses environment variables and defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Cache.BundleTTL < 0 {
		return fmt.Errorf("config error: 'cache.bundle_ttl' must be non-negative")
	}
	if c.Cache.ResultTTL < 0 {
		return fmt.Errorf("config error: 'cache.result_ttl' must be non-negative")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("config error: 'log.format' must be json or console, got %q", c.Log.Format)
	}
	if c.RateLimit.DefaultLimit < 0 || c.RateLimit.OptimizeLimit < 0 {
		return fmt.Errorf("config error: rate limits must be non-negative")
	}
	return nil
}
