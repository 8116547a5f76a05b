// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"fmt"
	"io"
	"os"
)

// Summary is a header-level description of one bundle.
type Summary struct {
	Version       uint32       `json:"version" yaml:"version"`
	EngineVersion string       `json:"engine_version,omitempty" yaml:"engine_version,omitempty"`
	Headers       []HeaderPair `json:"headers,omitempty" yaml:"headers,omitempty"`
	Entries       []EntryInfo  `json:"entries" yaml:"entries"`
	Size          int64        `json:"size" yaml:"size"`
	Compressed    bool         `json:"compressed" yaml:"compressed"`
}

// ReadHeaders opens a bundle and returns only header key-value pairs without parsing the entry table.
func ReadHeaders(path string) ([]HeaderPair, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ReadHeadersFromReaderAt(f, size)
}

// ReadHeadersFromReaderAt reads only bundle header key-value pairs from a random-access source.
func ReadHeadersFromReaderAt(ra io.ReaderAt, size int64) ([]HeaderPair, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	_, headers, _, err := parseHeaderSection(ra, size)
	if err != nil {
		return nil, err
	}

	return headers, nil
}

// ListEntries opens a bundle and returns entry metadata without payload reads.
func ListEntries(path string) ([]EntryInfo, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return r.Entries(), nil
}

// Summarize returns the header-level summary of r.
func (r *Reader) Summarize() Summary {
	return Summary{
		Version:       r.version,
		EngineVersion: r.EngineVersion(),
		Headers:       r.Headers(),
		Entries:       r.Entries(),
		Size:          r.size,
		Compressed:    r.IsCompressed(),
	}
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open bundle: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
