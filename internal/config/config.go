// Package config loads the server configuration from YAML with environment
// variable expansion.
package config

import (
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/and161185/notekeeper/internal/enrich"
	"github.com/and161185/notekeeper/internal/service"
	"github.com/and161185/notekeeper/internal/workerpool"
)

// Log levels accepted in log.level.
var logLevels = []any{"debug", "info", "warn", "error"}

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Auth     AuthConfig        `yaml:"auth"`
	Log      LogConfig         `yaml:"log"`
	Postgres PostgresConfig    `yaml:"postgres"`
	Redis    RedisConfig       `yaml:"redis"`
	Search   SearchConfig      `yaml:"search"`
	Limiter  LimiterConfig     `yaml:"limiter"`
	Notes    service.Config    `yaml:"notes"`
	Workers  workerpool.Config `yaml:"workers"`
	Enrich   enrich.Config     `yaml:"enrich"`
}

// Validate validates every section.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.Server, &c.Auth, &c.Log, &c.Postgres, &c.Redis, &c.Limiter} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if err := validation.ValidateStruct(&c.Workers,
		validation.Field(&c.Workers.Workers, validation.Required, validation.Min(1)),
		validation.Field(&c.Workers.QueueSize, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("workers: %w", err)
	}
	if err := validation.ValidateStruct(&c.Enrich,
		validation.Field(&c.Enrich.RatePerSecond, validation.Min(0.0)),
	); err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	return nil
}

// ServerConfig holds the gRPC listener settings. TLS is enabled when both files are set.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	TLSCert         string        `yaml:"tls_cert"`
	TLSKey          string        `yaml:"tls_key"`
	Reflection      bool          `yaml:"reflection"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TLS reports whether certificate files are configured.
func (c *ServerConfig) TLS() bool { return c.TLSCert != "" && c.TLSKey != "" }

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.ShutdownTimeout, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("server: tls_cert and tls_key must be set together")
	}
	return nil
}

// AuthConfig holds the HS256 key used to verify bearer tokens.
type AuthConfig struct {
	JWTKey string `yaml:"jwt_key"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.JWTKey, validation.Required, validation.Length(16, 0)),
	); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// LogConfig selects the zap preset and level.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.Required, validation.In(logLevels...)),
	); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// PostgresConfig holds the record store connection.
type PostgresConfig struct {
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

// Validate validates the postgres configuration.
func (c *PostgresConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.DSN, validation.Required),
	); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

// RedisConfig holds the cache connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Validate validates the redis configuration.
func (c *RedisConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DB, validation.Min(0), validation.Max(15)),
	); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// SearchConfig points at the on-disk index. An empty path keeps the index in memory.
type SearchConfig struct {
	Path string `yaml:"path"`
}

// LimiterConfig tunes the note password attempt limiter.
type LimiterConfig struct {
	Window   time.Duration `yaml:"window"`
	MaxFails int           `yaml:"max_fails"`
	BlockFor time.Duration `yaml:"block_for"`
}

// Validate validates the limiter configuration.
func (c *LimiterConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Window, validation.Required),
		validation.Field(&c.MaxFails, validation.Required, validation.Min(1)),
		validation.Field(&c.BlockFor, validation.Required),
	); err != nil {
		return fmt.Errorf("limiter: %w", err)
	}
	return nil
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8443", ShutdownTimeout: 10 * time.Second},
		Log:      LogConfig{Level: "info"},
		Postgres: PostgresConfig{Migrate: true},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Limiter:  LimiterConfig{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute},
		Notes:    service.DefaultConfig(),
		Workers:  workerpool.DefaultConfig(),
		Enrich:   enrich.Config{Timeout: 5 * time.Second, RatePerSecond: 5, Burst: 10},
	}
}

// Load reads filename, expands ${VAR} references, overlays the result on
// Default and validates it.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filename, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
