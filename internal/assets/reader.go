// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package assets

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// File is a parsed record container.
type File struct {
	ra     io.ReaderAt
	closer io.Closer
	// EngineVersion is the engine version string recorded in the header.
	EngineVersion string
	// Types is the type table in on-disk order.
	Types   []TypeInfo
	records []RecordInfo
	index   map[int64]int
	size    int64
	// Version is the recorded container format version.
	Version uint32
	// TypeTree reports whether types carry descriptors and records carry type tags.
	TypeTree bool
	mu       sync.Mutex
	closed   bool
}

// Open opens a record container by path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open assets file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	af, err := Parse(f, fi.Size())
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	af.closer = f
	return af, nil
}

// Parse parses a record container from ra. The caller keeps ownership of ra.
func Parse(ra io.ReaderAt, size int64) (*File, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	f := &File{ra: ra, size: size}
	if err := f.parse(); err != nil {
		return nil, err
	}

	return f, nil
}

// Empty returns a container with no records. Records are added by Write
// with replacers naming new path ids.
func Empty(version uint32, engineVersion string, typeTree bool, types []TypeInfo) *File {
	return &File{
		ra:            bytes.NewReader(nil),
		Version:       version,
		EngineVersion: engineVersion,
		TypeTree:      typeTree,
		Types:         append([]TypeInfo(nil), types...),
		index:         map[int64]int{},
	}
}

// IsAssetsFile reports whether the file at path starts with the container magic.
func IsAssetsFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	return HasMagic(f)
}

// HasMagic reports whether ra starts with the container magic.
func HasMagic(ra io.ReaderAt) bool {
	var magic [4]byte
	if _, err := ra.ReadAt(magic[:], 0); err != nil {
		return false
	}

	return magic == Magic
}

// Records returns a copy of the record table in on-disk order.
func (f *File) Records() []RecordInfo {
	out := make([]RecordInfo, len(f.records))
	copy(out, f.records)
	return out
}

// Record resolves one record by path id.
func (f *File) Record(pathID int64) (RecordInfo, error) {
	i, ok := f.index[pathID]
	if !ok {
		return RecordInfo{}, fmt.Errorf("%w: path id %d", ErrRecordNotFound, pathID)
	}

	return f.records[i], nil
}

// TypeOf returns the type table slot of info.
func (f *File) TypeOf(info RecordInfo) (TypeInfo, error) {
	if uint64(info.TypeIndex) >= uint64(len(f.Types)) {
		return TypeInfo{}, fmt.Errorf("%w: %d", ErrTypeIndexOutOfRange, info.TypeIndex)
	}

	return f.Types[info.TypeIndex], nil
}

// ReadPayload reads the payload of info, type tag excluded.
func (f *File) ReadPayload(info RecordInfo) ([]byte, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}

	buf := make([]byte, info.Size)
	if _, err := f.ra.ReadAt(buf, info.PayloadOffset()); err != nil && !(err == io.EOF && len(buf) == 0) {
		return nil, fmt.Errorf("read record %d: %w", info.PathID, err)
	}

	return buf, nil
}

// ReadSeeker returns an independent seekable view over the whole container.
func (f *File) ReadSeeker() io.ReadSeeker {
	return io.NewSectionReader(f.ra, 0, f.size)
}

// Size returns the source size in bytes.
func (f *File) Size() int64 {
	return f.size
}

// Close closes the underlying file if the container owns one.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	f.closed = true
	if f.closer != nil {
		return f.closer.Close()
	}

	return nil
}

// checkOpen returns ErrClosed once Close was called.
func (f *File) checkOpen() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	return nil
}

// parse reads the header, type table and record table.
func (f *File) parse() error {
	br := bufio.NewReader(io.NewSectionReader(f.ra, 0, f.size))

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return fmt.Errorf("%w: short header", ErrInvalidHeader)
	}
	if magic != Magic {
		return ErrInvalidHeader
	}

	var err error
	read := func(v any) {
		if err == nil {
			err = binary.Read(br, binary.LittleEndian, v)
		}
	}

	var engineLen uint32
	read(&f.Version)
	read(&engineLen)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	if engineLen > maxEngineVersionLen {
		return fmt.Errorf("%w: engine version length %d", ErrInvalidHeader, engineLen)
	}

	engine := make([]byte, engineLen)
	if _, err := io.ReadFull(br, engine); err != nil {
		return fmt.Errorf("%w: engine version: %w", ErrInvalidHeader, err)
	}
	f.EngineVersion = string(engine)

	var typeTree uint8
	var typeCount uint32
	read(&typeTree)
	read(&typeCount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}
	f.TypeTree = typeTree != 0

	if int64(typeCount) > f.size {
		return fmt.Errorf("%w: type count %d", ErrInvalidHeader, typeCount)
	}

	f.Types = make([]TypeInfo, 0, typeCount)
	for i := uint32(0); i < typeCount; i++ {
		var t TypeInfo
		var descLen uint32
		read(&t.ClassID)
		read(&t.ScriptIndex)
		read(&descLen)
		if err != nil {
			return fmt.Errorf("read type %d: %w", i, err)
		}
		if int64(descLen) > f.size {
			return fmt.Errorf("%w: type %d descriptor length %d", ErrInvalidHeader, i, descLen)
		}

		if descLen > 0 {
			t.Descriptor = make([]byte, descLen)
			if _, err := io.ReadFull(br, t.Descriptor); err != nil {
				return fmt.Errorf("read type %d descriptor: %w", i, err)
			}
		}

		f.Types = append(f.Types, t)
	}

	var recordCount uint32
	read(&recordCount)
	if err != nil {
		return fmt.Errorf("read record count: %w", err)
	}
	if int64(recordCount)*recordEntrySize > f.size {
		return fmt.Errorf("%w: record count %d", ErrInvalidHeader, recordCount)
	}

	tableEnd := headerSize(f.EngineVersion, f.Types) + int64(recordCount)*recordEntrySize
	payloadStart := alignUp(tableEnd, payloadAlign)

	f.records = make([]RecordInfo, 0, recordCount)
	f.index = make(map[int64]int, recordCount)
	for i := uint32(0); i < recordCount; i++ {
		var (
			pathID    int64
			typeIndex uint32
			offset    uint32
			size      uint32
		)
		read(&pathID)
		read(&typeIndex)
		read(&offset)
		read(&size)
		if err != nil {
			return fmt.Errorf("read record %d: %w", i, err)
		}

		if uint64(typeIndex) >= uint64(len(f.Types)) {
			return fmt.Errorf("%w: record %d type index %d", ErrTypeIndexOutOfRange, pathID, typeIndex)
		}
		if _, dup := f.index[pathID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateRecord, pathID)
		}

		t := f.Types[typeIndex]
		info := RecordInfo{
			PathID:      pathID,
			Offset:      payloadStart + int64(offset),
			Size:        size,
			TypeIndex:   typeIndex,
			ClassID:     t.ClassID,
			ScriptIndex: t.ScriptIndex,
			Tagged:      f.TypeTree,
		}
		if info.Offset+info.storedSize() > f.size {
			return fmt.Errorf("%w: record %d", ErrRecordOutOfBounds, pathID)
		}

		f.index[pathID] = len(f.records)
		f.records = append(f.records, info)
	}

	return nil
}

// headerSize returns the byte size of everything before the record table entries.
func headerSize(engineVersion string, types []TypeInfo) int64 {
	// magic, version, engine length, engine, type tree flag, type count
	n := int64(4 + 4 + 4 + len(engineVersion) + 1 + 4)
	for _, t := range types {
		n += 4 + 2 + 4 + int64(len(t.Descriptor))
	}

	// record count
	return n + 4
}
