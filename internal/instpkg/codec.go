// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package instpkg

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/assets"
)

// Package format limits.
const (
	maxStringLen = 64 * 1024
	maxCount     = 1 << 20
	maxDataLen   = math.MaxInt32
)

// Replacer kind bytes.
const (
	kindRecordReplace byte = 1
	kindRecordRemove  byte = 2

	kindEntryFile      byte = 1
	kindEntryContainer byte = 2
	kindEntryRemove    byte = 3
)

// ReadFile reads a package by path.
func ReadFile(path string) (*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open installer package: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(f)
}

// Read decodes a package from r.
func Read(r io.Reader) (*Package, error) {
	d := &decoder{r: bufio.NewReader(r)}

	var magic [4]byte
	d.bytesInto(magic[:])
	if d.err != nil || magic != Magic {
		return nil, ErrInvalidHeader
	}

	if v := d.u32(); d.err == nil && v > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	pkg := &Package{
		Name:        d.str(),
		Authors:     d.str(),
		Description: d.str(),
	}

	n := d.count()
	for i := 0; i < n && d.err == nil; i++ {
		pkg.Files = append(pkg.Files, d.affectedFile())
	}

	if d.err != nil {
		return nil, fmt.Errorf("read installer package: %w", d.err)
	}

	return pkg, nil
}

// WriteFile writes pkg to path.
func WriteFile(path string, pkg *Package) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create installer package: %w", err)
	}

	if err := Write(f, pkg); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close installer package: %w", err)
	}

	return nil
}

// Write encodes pkg to w.
func Write(w io.Writer, pkg *Package) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}

	e.raw(Magic[:])
	e.u32(FormatVersion)
	e.str(pkg.Name)
	e.str(pkg.Authors)
	e.str(pkg.Description)
	e.count(len(pkg.Files))
	for _, f := range pkg.Files {
		e.affectedFile(f)
	}

	if e.err != nil {
		return fmt.Errorf("write installer package: %w", e.err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush installer package: %w", err)
	}

	return nil
}

// decoder reads little-endian values and keeps the first error.
type decoder struct {
	r   *bufio.Reader
	err error
}

func (d *decoder) bytesInto(b []byte) {
	if d.err != nil {
		return
	}

	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = err
	}
}

func (d *decoder) read(v any) {
	if d.err == nil {
		d.err = binary.Read(d.r, binary.LittleEndian, v)
	}
}

func (d *decoder) u8() byte {
	var v byte
	d.read(&v)
	return v
}

func (d *decoder) u16() uint16 {
	var v uint16
	d.read(&v)
	return v
}

func (d *decoder) u32() uint32 {
	var v uint32
	d.read(&v)
	return v
}

func (d *decoder) i32() int32 {
	var v int32
	d.read(&v)
	return v
}

func (d *decoder) i64() int64 {
	var v int64
	d.read(&v)
	return v
}

func (d *decoder) count() int {
	n := d.u32()
	if d.err == nil && n > maxCount {
		d.err = fmt.Errorf("%w: count %d", ErrTooLarge, n)
	}
	if d.err != nil {
		return 0
	}

	return int(n)
}

func (d *decoder) blob(limit uint32) []byte {
	n := d.u32()
	if d.err == nil && n > limit {
		d.err = fmt.Errorf("%w: length %d", ErrTooLarge, n)
	}
	if d.err != nil {
		return nil
	}

	b := make([]byte, n)
	d.bytesInto(b)
	return b
}

func (d *decoder) str() string {
	return string(d.blob(maxStringLen))
}

func (d *decoder) affectedFile() AffectedFile {
	f := AffectedFile{Path: d.str(), IsArchive: d.u8() != 0}
	if !f.IsArchive {
		f.Types = d.types()
		f.Replacers = d.replacers()
		return f
	}

	f.Types = d.types()
	n := d.count()
	for i := 0; i < n && d.err == nil; i++ {
		kind := d.u8()
		entry := d.str()
		switch kind {
		case kindEntryFile:
			f.Entries = append(f.Entries, FromFile{Entry: entry, Data: d.blob(maxDataLen)})
		case kindEntryContainer:
			f.Entries = append(f.Entries, FromContainer{
				Entry:         entry,
				OriginalEntry: d.str(),
				Types:         d.types(),
				Replacers:     d.replacers(),
			})
		case kindEntryRemove:
			f.Entries = append(f.Entries, Remove{Entry: entry})
		default:
			if d.err == nil {
				d.err = fmt.Errorf("%w: entry kind %d", ErrUnknownReplacer, kind)
			}
		}
	}

	return f
}

func (d *decoder) types() []assets.TypeInfo {
	n := d.count()
	if n == 0 {
		return nil
	}

	out := make([]assets.TypeInfo, 0, min(n, 1024))
	for i := 0; i < n && d.err == nil; i++ {
		t := assets.TypeInfo{ClassID: d.i32(), ScriptIndex: d.u16()}
		if desc := d.blob(maxDataLen); len(desc) > 0 {
			t.Descriptor = desc
		}
		out = append(out, t)
	}

	return out
}

func (d *decoder) replacers() []assets.Replacer {
	n := d.count()
	if n == 0 {
		return nil
	}

	out := make([]assets.Replacer, 0, min(n, 1024))
	for i := 0; i < n && d.err == nil; i++ {
		kind := d.u8()
		pathID := d.i64()
		switch kind {
		case kindRecordReplace:
			out = append(out, assets.ReplacerFromMemory{
				PathID:      pathID,
				ClassID:     d.i32(),
				ScriptIndex: d.u16(),
				Data:        d.blob(maxDataLen),
			})
		case kindRecordRemove:
			out = append(out, assets.Remover{PathID: pathID})
		default:
			if d.err == nil {
				d.err = fmt.Errorf("%w: record kind %d", ErrUnknownReplacer, kind)
			}
		}
	}

	return out
}

// encoder writes little-endian values and keeps the first error.
type encoder struct {
	w   *bufio.Writer
	err error
}

func (e *encoder) raw(b []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(b)
	}
}

func (e *encoder) write(v any) {
	if e.err == nil {
		e.err = binary.Write(e.w, binary.LittleEndian, v)
	}
}

func (e *encoder) u32(v uint32) { e.write(v) }

func (e *encoder) count(n int) {
	if n > maxCount {
		if e.err == nil {
			e.err = fmt.Errorf("%w: count %d", ErrTooLarge, n)
		}
		return
	}

	e.u32(uint32(n)) //nolint:gosec // checked above
}

func (e *encoder) blob(b []byte, limit int) {
	if len(b) > limit {
		if e.err == nil {
			e.err = fmt.Errorf("%w: length %d", ErrTooLarge, len(b))
		}
		return
	}

	e.u32(uint32(len(b))) //nolint:gosec // checked above
	e.raw(b)
}

func (e *encoder) str(s string) {
	e.blob([]byte(s), maxStringLen)
}

func (e *encoder) affectedFile(f AffectedFile) {
	e.str(f.Path)
	if !f.IsArchive {
		e.write(uint8(0))
		e.types(f.Types)
		e.replacers(f.Replacers)
		return
	}

	e.write(uint8(1))
	e.types(f.Types)
	e.count(len(f.Entries))
	for _, r := range f.Entries {
		switch v := r.(type) {
		case FromFile:
			e.write(kindEntryFile)
			e.str(v.Entry)
			e.blob(v.Data, maxDataLen)
		case FromContainer:
			e.write(kindEntryContainer)
			e.str(v.Entry)
			e.str(v.OriginalEntry)
			e.types(v.Types)
			e.replacers(v.Replacers)
		case Remove:
			e.write(kindEntryRemove)
			e.str(v.Entry)
		default:
			if e.err == nil {
				e.err = fmt.Errorf("%w: %T", ErrUnknownReplacer, r)
			}
		}
	}
}

func (e *encoder) types(types []assets.TypeInfo) {
	e.count(len(types))
	for _, t := range types {
		e.write(t.ClassID)
		e.write(t.ScriptIndex)
		e.blob(t.Descriptor, maxDataLen)
	}
}

func (e *encoder) replacers(reps []assets.Replacer) {
	e.count(len(reps))
	for _, r := range reps {
		switch v := r.(type) {
		case assets.ReplacerFromMemory:
			e.write(kindRecordReplace)
			e.write(v.PathID)
			e.write(v.ClassID)
			e.write(v.ScriptIndex)
			e.blob(v.Data, maxDataLen)
		case *assets.ReplacerFromMemory:
			e.write(kindRecordReplace)
			e.write(v.PathID)
			e.write(v.ClassID)
			e.write(v.ScriptIndex)
			e.blob(v.Data, maxDataLen)
		case assets.Remover:
			e.write(kindRecordRemove)
			e.write(v.PathID)
		default:
			if e.err == nil {
				e.err = fmt.Errorf("%w: %T", ErrUnknownReplacer, r)
			}
		}
	}
}
