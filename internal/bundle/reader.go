// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
)

const (
	// readerScanChunkSize is a chunk size used by null-terminated string scanner.
	readerScanChunkSize = 256
	// readerEntryBufferSize is a sequential read buffer for entry table parsing.
	readerEntryBufferSize = 64 * 1024
)

// Reader provides read-only access to a parsed bundle.
type Reader struct {
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// closer is set when Reader owns the source opened via Open.
	closer io.Closer
	// headers are kept in parse order for deterministic behavior.
	headers []HeaderPair
	// entries stores parsed immutable entry metadata.
	entries []EntryInfo
	// size is total source size in bytes.
	size int64
	// dataStart is absolute offset of first payload byte.
	dataStart int64
	// version is the on-disk format version.
	version uint32
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// Open opens a bundle file by path and parses its header and entry table.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	r, err := NewReaderFromReaderAt(f, fi.Size())
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.closer = f
	return r, nil
}

// NewReaderFromReaderAt parses a bundle from an existing ReaderAt and known size.
// The caller keeps ownership of ra.
func NewReaderFromReaderAt(ra io.ReaderAt, size int64) (*Reader, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	r := &Reader{ra: ra, size: size}
	if err := r.parse(); err != nil {
		return nil, err
	}

	return r, nil
}

// IsBundle reports whether the file at path starts with the bundle magic.
func IsBundle(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return false
	}

	return magic == Magic
}

// Entries returns a copy of parsed entries.
func (r *Reader) Entries() []EntryInfo {
	if r == nil {
		return nil
	}

	entries := make([]EntryInfo, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Entry resolves one entry by name.
func (r *Reader) Entry(name string) (EntryInfo, error) {
	info := r.findEntryByName(name)
	if info == nil {
		return EntryInfo{}, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return *info, nil
}

// Headers returns parsed headers in original order.
func (r *Reader) Headers() []HeaderPair {
	if r == nil {
		return nil
	}

	out := make([]HeaderPair, len(r.headers))
	copy(out, r.headers)
	return out
}

// Header returns the value of the first header with key.
func (r *Reader) Header(key string) (string, bool) {
	for _, h := range r.headers {
		if asciiLower(h.Key) == asciiLower(key) {
			return h.Value, true
		}
	}

	return "", false
}

// EngineVersion returns the engine version recorded in the bundle header.
func (r *Reader) EngineVersion() string {
	v, _ := r.Header(HeaderEngineVersion)
	return v
}

// IsCompressed reports whether at least one entry is stored compressed.
func (r *Reader) IsCompressed() bool {
	for i := range r.entries {
		if r.entries[i].IsCompressed() {
			return true
		}
	}

	return false
}

// Size returns total source size in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// Close closes the underlying file if reader owns one.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}

	return nil
}

// checkOpen returns ErrClosed once Close was called.
func (r *Reader) checkOpen() error {
	if r == nil || r.ra == nil {
		return ErrNilReader
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	return nil
}

// parse reads and validates bundle structure from the source.
func (r *Reader) parse() error {
	version, headers, off, err := parseHeaderSection(r.ra, r.size)
	if err != nil {
		return err
	}

	r.version = version
	r.headers = headers

	entriesEnd, err := r.parseEntriesBuffered(off)
	if err != nil {
		return err
	}

	r.dataStart = entriesEnd
	return resolveEntryOffsets(r.entries, entriesEnd, r.size)
}

// parseHeaderSection parses magic, version and key-value headers and returns entry table offset.
func parseHeaderSection(ra io.ReaderAt, size int64) (uint32, []HeaderPair, int64, error) {
	if size < headerSize {
		return 0, nil, 0, fmt.Errorf("%w: short header", ErrInvalidHeader)
	}

	var header [headerSize]byte
	if _, err := ra.ReadAt(header[:], 0); err != nil {
		if err == io.EOF {
			return 0, nil, 0, fmt.Errorf("%w: short header", ErrInvalidHeader)
		}

		return 0, nil, 0, fmt.Errorf("read header: %w", err)
	}

	if !bytes.Equal(header[0:4], Magic[:]) {
		return 0, nil, 0, ErrInvalidHeader
	}

	version := binary.LittleEndian.Uint32(header[4:8])
	if version == 0 || version > formatVersion {
		return 0, nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	headers := make([]HeaderPair, 0, 2)
	off := int64(headerSize)
	for {
		key, n, err := readNullTerminated(ra, off)
		if err != nil {
			return 0, nil, 0, fmt.Errorf("read header key: %w", err)
		}

		off += int64(n)
		if key == "" {
			break
		}

		value, n, err := readNullTerminated(ra, off)
		if err != nil {
			return 0, nil, 0, fmt.Errorf("read header value: %w", err)
		}

		off += int64(n)
		headers = append(headers, HeaderPair{Key: key, Value: value})
	}

	return version, headers, off, nil
}

// parseEntriesBuffered parses entry records from the entry table and returns payload start offset.
func (r *Reader) parseEntriesBuffered(tableOffset int64) (int64, error) {
	if tableOffset >= r.size {
		return 0, fmt.Errorf("read entry name: %w", io.EOF)
	}

	br := bufio.NewReaderSize(io.NewSectionReader(r.ra, tableOffset, r.size-tableOffset), readerEntryBufferSize)

	off := tableOffset
	var spill []byte
	for {
		name, nameBytes, err := readNullTerminatedBuffered(br, &spill)
		if err != nil {
			return 0, fmt.Errorf("read entry name: %w", err)
		}

		off += int64(nameBytes)
		var fields [entryFields]byte
		if _, err := io.ReadFull(br, fields[:]); err != nil {
			return 0, fmt.Errorf("read entry fields: %w", err)
		}

		off += int64(len(fields))
		scheme := Scheme(binary.LittleEndian.Uint32(fields[0:4]))
		originalSize := binary.LittleEndian.Uint32(fields[4:8])
		offset := binary.LittleEndian.Uint32(fields[8:12])
		timestamp := binary.LittleEndian.Uint32(fields[12:16])
		dataSize := binary.LittleEndian.Uint32(fields[16:20])

		if name == "" && scheme == 0 && originalSize == 0 && offset == 0 && timestamp == 0 && dataSize == 0 {
			return off, nil
		}

		if len(name) > maxNameLen {
			return 0, ErrEntryNameTooLong
		}

		switch scheme {
		case SchemeNone, SchemeLZSS, SchemeLZ4:
		default:
			return 0, fmt.Errorf("%w: entry %s scheme %d", ErrUnknownScheme, name, scheme)
		}

		r.entries = append(r.entries, EntryInfo{
			Name:         name,
			Offset:       offset,
			DataSize:     dataSize,
			OriginalSize: originalSize,
			TimeStamp:    timestamp,
			Scheme:       scheme,
		})
	}
}

// resolveEntryOffsets derives payload offsets sequentially and validates payload bounds.
func resolveEntryOffsets(entries []EntryInfo, dataStart int64, totalSize int64) error {
	if dataStart < 0 || uint64(dataStart) > uint64(math.MaxUint32) {
		return fmt.Errorf("%w: data start offset %d", ErrSizeOverflow, dataStart)
	}

	current := uint32(dataStart) //nolint:gosec // bounded by check above
	for i := range entries {
		entries[i].Offset = current

		if uint64(entries[i].DataSize) > uint64(math.MaxUint32-current) {
			return fmt.Errorf("%w: entry %s size would exceed 4 GiB", ErrSizeOverflow, entries[i].Name)
		}

		end := int64(current) + int64(entries[i].DataSize)
		if end > totalSize {
			return fmt.Errorf("%w: entry %s payload out of file bounds", ErrInvalidEntryOffset, entries[i].Name)
		}

		current += entries[i].DataSize
	}

	return nil
}

// readNullTerminatedBuffered reads a NUL-terminated string from buffered stream.
func readNullTerminatedBuffered(br *bufio.Reader, spill *[]byte) (string, int, error) {
	consumed := 0
	*spill = (*spill)[:0]

	for {
		chunk, err := br.ReadSlice(0)
		consumed += len(chunk)

		if err == bufio.ErrBufferFull {
			*spill = append(*spill, chunk...)
			continue
		}

		if err != nil {
			return "", 0, err
		}

		segment := chunk[:len(chunk)-1]
		if len(*spill) == 0 {
			return string(segment), consumed, nil
		}

		*spill = append(*spill, segment...)
		return string(*spill), consumed, nil
	}
}

// readNullTerminated reads a zero-terminated string from ReaderAt starting at offset.
func readNullTerminated(ra io.ReaderAt, offset int64) (string, int, error) {
	total := 0
	var out []byte

	var chunk [readerScanChunkSize]byte
	for {
		n, err := ra.ReadAt(chunk[:], offset+int64(total))
		if n > 0 {
			part := chunk[:n]
			if idx := bytes.IndexByte(part, 0); idx >= 0 {
				consumed := total + idx + 1
				if len(out) == 0 {
					return string(part[:idx]), consumed, nil
				}

				out = append(out, part[:idx]...)
				return string(out), consumed, nil
			}

			out = append(out, part...)
			total += n
		}

		if err != nil {
			return "", 0, err
		}

		if n == 0 {
			return "", 0, io.EOF
		}
	}
}
