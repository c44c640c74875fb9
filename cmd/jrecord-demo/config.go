package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// config is the demo configuration, read from a YAML file and overridden by flags.
type config struct {
	Store string      `mapstructure:"store"`
	DSN   string      `mapstructure:"dsn"`
	Addr  string      `mapstructure:"addr"`
	Redis redisConfig `mapstructure:"redis"`
	Log   logConfig   `mapstructure:"log"`
	Pool  poolConfig  `mapstructure:"pool"`

	Slow    time.Duration `mapstructure:"slow"`
	Cache   cacheConfig   `mapstructure:"cache"`
	Breaker breakerConfig `mapstructure:"breaker"`
}

type redisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type logConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type poolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

type cacheConfig struct {
	Kind string        `mapstructure:"kind"` // "", memory or redis
	TTL  time.Duration `mapstructure:"ttl"`
}

type breakerConfig struct {
	Threshold int           `mapstructure:"threshold"` // 0 disables
	Reset     time.Duration `mapstructure:"reset"`
}

func defaultConfig() config {
	return config{
		Store: "memory",
		Addr:  ":8080",
		Redis: redisConfig{Addr: "localhost:6379", Prefix: "jrecord:"},
		Log:   logConfig{Level: "warn", Format: "text"},
		Cache: cacheConfig{TTL: 5 * time.Minute},
		Breaker: breakerConfig{
			Reset: 30 * time.Second,
		},
	}
}

// loadConfig reads path over the defaults. A missing path yields the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(raw); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
