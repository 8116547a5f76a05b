// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"bytes"
	"fmt"
	"io"
	"math"
)

// nopCloser wraps a reader and provides a no-op close.
type nopCloser struct {
	io.Reader
}

// Close closes nopCloser (no-op).
func (nopCloser) Close() error {
	return nil
}

// findEntryByName resolves one entry by normalized name.
func (r *Reader) findEntryByName(name string) *EntryInfo {
	if r == nil {
		return nil
	}

	key := entryKey(name)
	for i := range r.entries {
		if entryKey(r.entries[i].Name) == key {
			return &r.entries[i]
		}
	}

	return nil
}

// openEntryByInfo opens payload stream for already resolved entry metadata.
func (r *Reader) openEntryByInfo(info *EntryInfo, name string) (io.ReadCloser, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	sr := io.NewSectionReader(r.ra, int64(info.Offset), int64(info.DataSize))
	if !info.IsCompressed() {
		return nopCloser{Reader: sr}, nil
	}

	outLen, err := checkedUint32ToInt(info.OriginalSize)
	if err != nil {
		return nil, fmt.Errorf("resolve output size for %s: %w", name, err)
	}

	pr, pw := io.Pipe()
	go streamDecompressEntry(name, pw, sr, info.Scheme, outLen, int(info.DataSize))

	return pr, nil
}

// OpenEntry opens named entry for reading.
// Returned stream yields decompressed content.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	return r.openEntryByInfo(r.findEntryByName(name), name)
}

// OpenEntryInfo opens entry stream by already resolved metadata.
func (r *Reader) OpenEntryInfo(info EntryInfo) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	name := info.Name
	if name == "" {
		name = "<unknown>"
	}

	return r.openEntryByInfo(&info, name)
}

// ReadEntry reads full (decompressed) content of the named entry.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	rc, err := r.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// EntrySection returns a random-access view of a raw (uncompressed) entry.
// Compressed entries have no stable byte window; decompress the bundle first.
func (r *Reader) EntrySection(name string) (*io.SectionReader, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	info := r.findEntryByName(name)
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	if info.IsCompressed() {
		return nil, fmt.Errorf("entry %s is compressed (%s)", info.Name, info.Scheme)
	}

	return io.NewSectionReader(r.ra, int64(info.Offset), int64(info.DataSize)), nil
}

// streamDecompressEntry decodes one compressed entry stream into pipe writer.
func streamDecompressEntry(name string, dst *io.PipeWriter, src io.Reader, scheme Scheme, outLen int, storedLen int) {
	if err := decompressPayload(dst, src, scheme, outLen, storedLen); err != nil {
		_ = dst.CloseWithError(fmt.Errorf("decompress entry %s: %w", name, err))
		return
	}

	_ = dst.Close()
}

// readEntryBytes reads decompressed payload of info into memory.
func (r *Reader) readEntryBytes(info EntryInfo) ([]byte, error) {
	sr := io.NewSectionReader(r.ra, int64(info.Offset), int64(info.DataSize))
	if !info.IsCompressed() {
		return io.ReadAll(sr)
	}

	outLen, err := checkedUint32ToInt(info.OriginalSize)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(outLen)
	if err := decompressPayload(&buf, sr, info.Scheme, outLen, int(info.DataSize)); err != nil {
		return nil, fmt.Errorf("decompress entry %s: %w", info.Name, err)
	}

	return buf.Bytes(), nil
}

// checkedUint32ToInt converts uint32 to int with platform-safe overflow check.
func checkedUint32ToInt(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, ErrSizeOverflow
	}

	return int(v), nil
}
