// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/naming"
)

// ErrCacheExists means a decompression cache file is already present and
// ForceCache was not set.
var ErrCacheExists = errors.New("decompression cache already exists")

// CacheOptions control where an archive is decompressed to.
type CacheOptions struct {
	// KeepCache keeps "<archive>.decomp" after Close.
	KeepCache bool `json:"keep_cache,omitempty" yaml:"keep_cache,omitempty"`
	// ForceCache overwrites an existing "<archive>.decomp" instead of failing.
	ForceCache bool `json:"force_cache,omitempty" yaml:"force_cache,omitempty"`
	// MemoryOnly decompresses into memory; KeepCache and ForceCache are ignored.
	MemoryOnly bool `json:"memory_only,omitempty" yaml:"memory_only,omitempty"`
}

// Decompressed is an archive opened in decompressed form next to its
// stored form.
type Decompressed struct {
	// Raw is the decompressed view.
	Raw *bundle.Reader
	// Source is the archive as stored on disk.
	Source *bundle.Reader
	// cache is the decompression cache path; empty in memory-only mode.
	cache string
	// closers are closed in reverse order.
	closers []io.Closer
	opts    CacheOptions
}

// OpenDecompressed decompresses the archive at path into a cache file or
// into memory.
func OpenDecompressed(ctx context.Context, path string, opts CacheOptions) (*Decompressed, error) {
	src, err := bundle.Open(path)
	if err != nil {
		return nil, err
	}

	d := &Decompressed{Source: src, closers: []io.Closer{src}, opts: opts}
	if opts.MemoryOnly {
		buf := &bundle.Buffer{}
		if _, err := bundle.Decompress(ctx, src, buf); err != nil {
			_ = d.closeAll()
			return nil, fmt.Errorf("decompress: %w", err)
		}

		d.Raw, err = bundle.NewReaderFromReaderAt(buf, buf.Len())
		if err != nil {
			_ = d.closeAll()
			return nil, err
		}

		d.closers = append(d.closers, d.Raw)
		return d, nil
	}

	cache := naming.DecompCachePath(path)
	if _, err := os.Lstat(cache); err == nil && !opts.ForceCache {
		_ = d.closeAll()
		return nil, fmt.Errorf("%w: %s", ErrCacheExists, cache)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		_ = d.closeAll()
		return nil, fmt.Errorf("stat cache: %w", err)
	}

	d.cache = cache
	if _, err := bundle.DecompressFile(ctx, src, cache); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("decompress to %s: %w", cache, err)
	}

	d.Raw, err = bundle.Open(cache)
	if err != nil {
		_ = d.Close()
		return nil, err
	}

	d.closers = append(d.closers, d.Raw)
	return d, nil
}

// Compressed reports whether the archive on disk had compressed entries.
func (d *Decompressed) Compressed() bool {
	return d.Source.IsCompressed()
}

// Close closes the decompressed view and the source archive, then removes
// the cache file unless it is kept. Closing twice is a no-op.
func (d *Decompressed) Close() error {
	err := d.closeAll()
	if d.cache != "" && !d.opts.KeepCache {
		if rmErr := os.Remove(d.cache); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = errors.Join(err, fmt.Errorf("remove cache: %w", rmErr))
		}
	}
	d.cache = ""

	return err
}

// closeAll closes the decompressed view, then the source archive.
func (d *Decompressed) closeAll() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i].Close())
	}
	d.closers = nil

	return errors.Join(errs...)
}
