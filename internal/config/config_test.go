// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/schema"
)

func writeFile(t *testing.T, dir string, name string, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	c := Default()
	require.Equal(t, "dev", c.Log.Env)
	require.Equal(t, "info", c.Log.Level)
	require.Equal(t, schema.DefaultCacheSize, c.Schema.CacheSize)
	require.NoError(t, c.Validate())

	s, err := c.PackScheme()
	require.NoError(t, err)
	require.Equal(t, bundle.SchemeLZSS, s)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.yaml", `
log:
  env: prod
  level: debug
schema:
  class_database: classes.yaml
  cache_size: 4
pack:
  scheme: lz4
`)

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "prod", c.Log.Env)
	require.Equal(t, "debug", c.Log.Level)
	require.Equal(t, "classes.yaml", c.Schema.ClassDatabase)
	require.Equal(t, 4, c.Schema.CacheSize)

	s, err := c.PackScheme()
	require.NoError(t, err)
	require.Equal(t, bundle.SchemeLZ4, s)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "custom.yaml", "pack:\n  scheme: lz4\nschema:\n  cache_size: 4\n")
	t.Setenv("UABEA_COMPRESSION", "none")
	t.Setenv("UABEA_SCHEMA_CACHE_SIZE", "32")
	t.Setenv("UABEA_LOG_ENV", "PROD")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "none", c.Pack.Scheme)
	require.Equal(t, 32, c.Schema.CacheSize)
	require.Equal(t, "prod", c.Log.Env)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"scheme", "pack:\n  scheme: zstd\n"},
		{"cache size", "schema:\n  cache_size: -1\n"},
		{"log env", "log:\n  env: staging\n"},
	}

	for _, tt := range tests {
		path := writeFile(t, dir, "bad.yaml", tt.body)
		_, err := Load(path)
		require.ErrorIs(t, err, ErrInvalidConfig, tt.name)
	}
}

func TestLoadEnvFilesKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, ".env", "UABEA_LOG_LEVEL=warn\nUABEA_CLASS_DATABASE=db.yaml\n")
	t.Setenv("UABEA_LOG_LEVEL", "error")
	t.Setenv("UABEA_CLASS_DATABASE", "")

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "missing.env"), env))
	require.Equal(t, "error", os.Getenv("UABEA_LOG_LEVEL"))

	c, err := Load(writeFile(t, dir, "empty.yaml", "{}\n"))
	require.NoError(t, err)
	require.Equal(t, "error", c.Log.Level)
}

func TestSchemaCache(t *testing.T) {
	t.Parallel()

	c := Default()
	cache, err := c.SchemaCache()
	require.NoError(t, err)
	require.Zero(t, cache.Loaded())
}
