// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

// Package instpkg reads and writes installer packages: named, authored sets
// of mutations against several record containers and archives.
package instpkg

import (
	"errors"
	"path"
	"strings"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/assets"
)

// Magic is the 4-byte signature of an installer package.
var Magic = [4]byte{'E', 'M', 'I', 'P'}

// FormatVersion is the package format version written by Write.
const FormatVersion uint32 = 1

// Sentinel errors for package operations.
var (
	// ErrInvalidHeader means the input does not start with the package magic.
	ErrInvalidHeader = errors.New("invalid installer package: missing or bad header")
	// ErrUnsupportedVersion means the package format version is newer than this reader.
	ErrUnsupportedVersion = errors.New("unsupported installer package version")
	// ErrUnknownReplacer means a replacer kind byte is not recognized.
	ErrUnknownReplacer = errors.New("unknown replacer kind")
	// ErrTooLarge means a count or length exceeds package limits.
	ErrTooLarge = errors.New("installer package value too large")
	// ErrUnsafePath means an affected file path is absolute or escapes the package root.
	ErrUnsafePath = errors.New("unsafe affected file path")
)

// Package is one installer package.
type Package struct {
	Name        string         `json:"name" yaml:"name"`
	Authors     string         `json:"authors,omitempty" yaml:"authors,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Files       []AffectedFile `json:"files" yaml:"files"`
}

// AffectedFile is one target of a package. Archive targets carry entry
// replacers; standalone containers carry record replacers and added types.
type AffectedFile struct {
	// Path is slash-separated and relative to the install root.
	Path string `json:"path" yaml:"path"`
	// Types are merged into the container type table. For archives they are
	// merged into every FromContainer entry ahead of the entry's own Types.
	Types []assets.TypeInfo `json:"types,omitempty" yaml:"types,omitempty"`
	// Replacers mutate a standalone container.
	Replacers []assets.Replacer `json:"-" yaml:"-"`
	// Entries mutate an archive.
	Entries   []EntryReplacer `json:"-" yaml:"-"`
	IsArchive bool            `json:"is_archive" yaml:"is_archive"`
}

// CleanPath validates Path and returns it in OS-neutral clean form.
func (f AffectedFile) CleanPath() (string, error) {
	p := strings.ReplaceAll(f.Path, `\`, "/")
	if p == "" || strings.HasPrefix(p, "/") || (len(p) >= 2 && p[1] == ':') {
		return "", ErrUnsafePath
	}

	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", ErrUnsafePath
	}

	return p, nil
}

// EntryReplacer is one mutation of an archive entry.
type EntryReplacer interface {
	// EntryName returns the archive entry written or removed.
	EntryName() string
}

// FromFile sets the archive entry Entry to Data.
type FromFile struct {
	Entry string
	Data  []byte
}

// EntryName returns the written entry.
func (r FromFile) EntryName() string { return r.Entry }

// FromContainer writes Entry as the record container found at OriginalEntry
// in the target archive, patched with Replacers and Types. OriginalEntry is
// resolved against the decompressed archive when the package is applied.
type FromContainer struct {
	Entry         string
	OriginalEntry string
	Types         []assets.TypeInfo
	Replacers     []assets.Replacer
}

// EntryName returns the written entry.
func (r FromContainer) EntryName() string { return r.Entry }

// Source returns the entry the container is read from, defaulting to Entry.
func (r FromContainer) Source() string {
	if r.OriginalEntry == "" {
		return r.Entry
	}

	return r.OriginalEntry
}

// Remove deletes the archive entry Entry.
type Remove struct {
	Entry string
}

// EntryName returns the removed entry.
func (r Remove) EntryName() string { return r.Entry }
