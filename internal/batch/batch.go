// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

// Package batch exports and re-imports the entries of every archive in a
// directory. Archives are only ever mutated in decompressed form. On import
// the replaced entries of a compressed archive are compressed again and every
// other entry keeps its stored form.
package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/naming"
)

// ErrNameCollision means two entries of one archive map to the same
// external file name.
var ErrNameCollision = errors.New("entries share an external file name")

// Options control batch export and import.
type Options struct {
	// Log receives per-file events; nil disables logging.
	Log *zap.Logger `json:"-" yaml:"-"`
	// Pack configures recompression of archives that were compressed on disk.
	Pack bundle.PackOptions `json:"pack,omitzero" yaml:"pack,omitempty"`
	// Filter selects the entries exported or re-imported.
	Filter bundle.EntryFilter `json:"filter,omitzero" yaml:"filter,omitempty"`
	// KeepNames names exported files by entry name only, without the
	// "<archive>_" prefix.
	KeepNames bool `json:"keep_names,omitempty" yaml:"keep_names,omitempty"`
	// KeepCache keeps "<archive>.decomp" after the run.
	KeepCache bool `json:"keep_cache,omitempty" yaml:"keep_cache,omitempty"`
	// ForceCache overwrites an existing "<archive>.decomp" instead of failing.
	ForceCache bool `json:"force_cache,omitempty" yaml:"force_cache,omitempty"`
	// MemoryOnly decompresses into memory; KeepCache and ForceCache are ignored.
	MemoryOnly bool `json:"memory_only,omitempty" yaml:"memory_only,omitempty"`
	// Backup swaps imported archives into place behind a numbered backup.
	Backup bool `json:"backup,omitempty" yaml:"backup,omitempty"`
}

func (o Options) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}

	return o.Log
}

// Cache returns the decompression cache settings of o.
func (o Options) Cache() CacheOptions {
	return CacheOptions{KeepCache: o.KeepCache, ForceCache: o.ForceCache, MemoryOnly: o.MemoryOnly}
}

// Report is the outcome of one archive.
type Report struct {
	Err error `json:"-" yaml:"-"`
	// Path is the archive.
	Path string `json:"path" yaml:"path"`
	// Backup is set when an import kept the previous archive.
	Backup string `json:"backup,omitempty" yaml:"backup,omitempty"`
	// Entries counts exported entries, or entries bound to external files on import.
	Entries int `json:"entries" yaml:"entries"`
}

// EntryFileName returns the external file name of an archive entry.
func EntryFileName(archivePath string, entry string, keepNames bool) string {
	name := bundle.SanitizeFileName(entry)
	if keepNames {
		return name
	}

	return naming.BundleEntryFile(archivePath, name)
}

// ListArchives returns the archives directly inside dir in name order.
// Decompression caches, pending outputs and backups are skipped.
func ListArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || isArtifact(e.Name()) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		if bundle.IsBundle(path) {
			out = append(out, path)
		}
	}

	sort.Strings(out)
	return out, nil
}

// isArtifact reports whether name is a file this tool derives from an archive.
func isArtifact(name string) bool {
	for _, suffix := range []string{naming.DecompCacheSuffix, naming.PatchSuffix, naming.ModSuffix} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}

	i := strings.LastIndex(name, ".bak")
	if i < 0 || len(name)-i != len(".bak0000") {
		return false
	}

	for _, c := range name[i+len(".bak"):] {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}
