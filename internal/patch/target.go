// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package patch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/assets"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/batch"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
)

// unknownEngine is the placeholder engine version some containers record.
const unknownEngine = "0.0.0"

// archive is an opened archive in decompressed form.
type archive struct {
	// raw is the decompressed view every mutation is applied to.
	raw *bundle.Reader
	// src is the archive as stored on disk.
	src *bundle.Reader
	// closers are closed in reverse order.
	closers []io.Closer
	// compressed reports whether the archive on disk had compressed entries.
	compressed bool
}

// openArchive opens path and decompresses it into memory when needed.
func openArchive(ctx context.Context, path string) (*archive, error) {
	src, err := bundle.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrContainerRead, path, err)
	}

	a := &archive{raw: src, src: src, closers: []io.Closer{src}, compressed: src.IsCompressed()}
	if !a.compressed {
		return a, nil
	}

	buf := &bundle.Buffer{}
	if _, err := bundle.Decompress(ctx, src, buf); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("%w: decompress %s: %w", ErrContainerRead, path, err)
	}

	raw, err := bundle.NewReaderFromReaderAt(buf, buf.Len())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("%w: reopen decompressed %s: %w", ErrContainerRead, path, err)
	}

	a.raw = raw
	a.closers = append(a.closers, raw)
	return a, nil
}

// openCachedArchive opens path through the decompression cache settings of cache.
func openCachedArchive(ctx context.Context, path string, cache batch.CacheOptions) (*archive, error) {
	d, err := batch.OpenDecompressed(ctx, path, cache)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrContainerRead, path, err)
	}

	return &archive{raw: d.Raw, src: d.Source, closers: []io.Closer{d}, compressed: d.Compressed()}, nil
}

// Close closes the decompressed view, then the source archive.
func (a *archive) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil

	return errors.Join(errs...)
}

// recordContainers returns the entries of the decompressed archive that hold
// record containers, in entry table order.
func (a *archive) recordContainers() []bundle.EntryInfo {
	var out []bundle.EntryInfo
	for _, e := range a.raw.Entries() {
		sec, err := a.raw.EntrySection(e.Name)
		if err != nil {
			continue
		}
		if assets.HasMagic(sec) {
			out = append(out, e)
		}
	}

	return out
}

// openContainer parses the record container stored in entry name.
func (a *archive) openContainer(name string) (*assets.File, error) {
	sec, err := a.raw.EntrySection(name)
	if err != nil {
		return nil, fmt.Errorf("%w: entry %s: %w", ErrContainerRead, name, err)
	}

	f, err := assets.Parse(sec, sec.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: entry %s: %w", ErrContainerRead, name, err)
	}

	return f, nil
}

// target is the container a record reference resolves to.
type target struct {
	file    *assets.File
	archive *archive
	// path is the file on disk.
	path string
	// entry is the archive entry holding file; empty for standalone containers.
	entry string
	// engine is the engine version used for class database lookups.
	engine string
}

// openTarget opens the container ref addresses. Archives are opened in
// decompressed form and ref.FileID selects the record container entry.
func openTarget(ctx context.Context, ref RecordRef) (*target, error) {
	if !bundle.IsBundle(ref.Container) {
		f, err := assets.Open(ref.Container)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrContainerRead, ref.Container, err)
		}

		return &target{file: f, path: ref.Container, engine: f.EngineVersion}, nil
	}

	a, err := openArchive(ctx, ref.Container)
	if err != nil {
		return nil, err
	}

	containers := a.recordContainers()
	if ref.FileID < 0 || int(ref.FileID) >= len(containers) {
		_ = a.Close()
		return nil, fmt.Errorf("%w: %s has %d record containers, want file id %d",
			ErrNoRecordContainer, ref.Container, len(containers), ref.FileID)
	}

	entry := containers[ref.FileID].Name
	f, err := a.openContainer(entry)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	engine := f.EngineVersion
	if engine == "" || engine == unknownEngine {
		engine = a.raw.EngineVersion()
	}

	return &target{file: f, archive: a, path: ref.Container, entry: entry, engine: engine}, nil
}

// Close releases the container, then the archive.
func (t *target) Close() error {
	err := t.file.Close()
	if t.archive != nil {
		err = errors.Join(err, t.archive.Close())
	}

	return err
}
