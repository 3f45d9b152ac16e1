// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
)

// EnvPrefix is the environment variable prefix for all settings.
const EnvPrefix = "REALMGATE"

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Auth     AuthConfig     `koanf:"auth"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"readTimeout"`
	WriteTimeout    time.Duration `koanf:"writeTimeout"`
	IdleTimeout     time.Duration `koanf:"idleTimeout"`
	ShutdownTimeout time.Duration `koanf:"shutdownTimeout"`
}

// DatabaseConfig names the backing store.
type DatabaseConfig struct {
	URL string `koanf:"url" validate:"required"`
}

// LoggingConfig mirrors the logging package settings.
type LoggingConfig struct {
	Level     string `koanf:"level" validate:"oneof=debug info warn error"`
	Format    string `koanf:"format" validate:"oneof=json text"`
	AddSource bool   `koanf:"addSource"`
}

// AuthConfig governs bearer-token principal extraction. When JWTSecret is
// empty only the X-Realm/X-Principal headers identify the caller.
type AuthConfig struct {
	JWTSecret string `koanf:"jwtSecret"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			URL: "realmgate.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration using struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Load builds the configuration from defaults, an optional YAML file, the
// environment, and optional CLI flag overrides. DATABASE_URL is honored
// directly for compatibility with minimal deployments.
func Load(configPath string, flags *pflag.FlagSet, flagMappings map[string]string) (*Config, error) {
	loader, err := newLoader(configPath, flags, flagMappings)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := loader.UnmarshalAndValidate("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Dump writes the effective configuration to w as YAML after applying the
// same layering and validation as Load.
func Dump(w io.Writer, configPath string, flags *pflag.FlagSet, flagMappings map[string]string) error {
	loader, err := newLoader(configPath, flags, flagMappings)
	if err != nil {
		return err
	}
	var cfg Config
	if err := loader.UnmarshalAndValidate("", &cfg); err != nil {
		return err
	}
	return loader.DumpYAML(w)
}

func newLoader(configPath string, flags *pflag.FlagSet, flagMappings map[string]string) (*Loader, error) {
	loader := NewLoader(EnvPrefix)
	if err := loader.LoadWithDefaults(Default(), configPath); err != nil {
		return nil, err
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		if err := loader.Set("database.url", dbURL); err != nil {
			return nil, err
		}
	}
	if flags != nil {
		if err := loader.LoadFlags(flags, flagMappings); err != nil {
			return nil, err
		}
	}
	return loader, nil
}
