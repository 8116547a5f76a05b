// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

// Package config loads tool settings from an optional YAML file, .env files
// and UABEA_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/schema"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "uabea.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "UABEA_"

// ErrInvalidConfig means a setting holds an unusable value.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds tool settings.
type Config struct {
	Log struct {
		// Env is "dev" (console) or "prod" (JSON).
		Env   string `yaml:"env" json:"env"`
		Level string `yaml:"level" json:"level"`
	} `yaml:"log" json:"log"`

	Schema struct {
		// ClassDatabase is the YAML class database path; empty disables
		// database-backed templates.
		ClassDatabase string `yaml:"class_database" json:"class_database"`
		// CacheSize is the number of engine versions kept resolved.
		CacheSize int `yaml:"cache_size" json:"cache_size"`
	} `yaml:"schema" json:"schema"`

	Pack struct {
		// Scheme is the compression scheme for compress and recompression.
		Scheme string `yaml:"scheme" json:"scheme"`
	} `yaml:"pack" json:"pack"`
}

// Default returns the built-in settings.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. An empty path reads DefaultFile when it exists.
func Load(path string) (*Config, error) {
	c := &Config{}

	file := path
	if file == "" {
		file = DefaultFile
	}

	b, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	case path == "" && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	c.applyEnvOverrides()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadEnvFiles loads the given .env files that exist. Variables already set
// in the environment are kept.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	return nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Schema.CacheSize < 0 {
		return fmt.Errorf("%w: schema.cache_size %d", ErrInvalidConfig, c.Schema.CacheSize)
	}

	if _, err := c.PackScheme(); err != nil {
		return err
	}

	switch c.Log.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("%w: log.env %q", ErrInvalidConfig, c.Log.Env)
	}

	return nil
}

// PackScheme returns the configured compression scheme.
func (c *Config) PackScheme() (bundle.Scheme, error) {
	s, err := bundle.ParseScheme(c.Pack.Scheme)
	if err != nil {
		return bundle.SchemeNone, fmt.Errorf("%w: pack.scheme %q: %w", ErrInvalidConfig, c.Pack.Scheme, err)
	}

	return s, nil
}

// SchemaCache builds the class cache described by the schema settings.
func (c *Config) SchemaCache() (*schema.Cache, error) {
	return schema.NewCache(c.Schema.ClassDatabase, c.Schema.CacheSize)
}

func (c *Config) applyDefaults() {
	if c.Log.Env == "" {
		c.Log.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Schema.CacheSize == 0 {
		c.Schema.CacheSize = schema.DefaultCacheSize
	}
	if c.Pack.Scheme == "" {
		c.Pack.Scheme = bundle.SchemeLZSS.String()
	}
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("LOG_ENV"); ok {
		c.Log.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("CLASS_DATABASE"); ok {
		c.Schema.ClassDatabase = v
	}
	if v, ok := getEnvInt("SCHEMA_CACHE_SIZE"); ok {
		c.Schema.CacheSize = v
	}
	if v, ok := getEnvStr("COMPRESSION"); ok {
		c.Pack.Scheme = v
	}
}

func getEnvStr(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
	}

	return 0, false
}
