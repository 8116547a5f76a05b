// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package assets

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// writeCopyBufferSize is the buffer used to copy untouched records.
const writeCopyBufferSize = 64 * 1024

// plannedRecord is one record of the output container.
type plannedRecord struct {
	// source is set for records copied from the input container.
	source *RecordInfo
	data   []byte
	pathID int64
	// offset is relative to the payload region start.
	offset    uint32
	typeIndex uint32
}

// storedLen returns the stored byte size of p in a container with or without type tags.
func (p plannedRecord) storedLen(tagged bool) int64 {
	if p.source != nil {
		return p.source.storedSize()
	}

	if tagged {
		return int64(len(p.data)) + typeTagSize
	}

	return int64(len(p.data))
}

// Write serializes f with replacers applied to w. A version of 0 keeps the
// recorded version. Records not named by a replacer are copied byte-identical.
// Replacers naming unknown path ids append new records after existing ones.
// addedTypes are merged into the type table by (class id, script index).
func (f *File) Write(w io.Writer, version uint32, replacers []Replacer, addedTypes []TypeInfo) error {
	if w == nil {
		return ErrNilWriter
	}

	if err := f.checkOpen(); err != nil {
		return err
	}

	if version == 0 {
		version = f.Version
	}

	types := mergeTypes(f.Types, addedTypes)

	byID := make(map[int64]Replacer, len(replacers))
	for _, rep := range replacers {
		if _, dup := byID[rep.Target()]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateReplacer, rep.Target())
		}

		byID[rep.Target()] = rep
	}

	plan := make([]plannedRecord, 0, len(f.records)+len(replacers))
	for i := range f.records {
		info := f.records[i]
		rep, ok := byID[info.PathID]
		if !ok {
			plan = append(plan, plannedRecord{pathID: info.PathID, typeIndex: info.TypeIndex, source: &info})
			continue
		}

		item, keep := planReplacement(rep, &types)
		if keep {
			plan = append(plan, item)
		}
	}

	for _, rep := range replacers {
		if _, exists := f.index[rep.Target()]; exists {
			continue
		}

		item, keep := planReplacement(rep, &types)
		if keep {
			plan = append(plan, item)
		}
	}

	var cursor int64
	for i := range plan {
		cursor = alignUp(cursor, payloadAlign)
		if cursor > math.MaxUint32 {
			return fmt.Errorf("%w: record %d offset", ErrSizeOverflow, plan[i].pathID)
		}

		plan[i].offset = uint32(cursor)
		cursor += plan[i].storedLen(f.TypeTree)
	}

	bw := bufio.NewWriter(w)
	written, err := f.writeTables(bw, version, types, plan)
	if err != nil {
		return err
	}

	payloadStart := alignUp(written, payloadAlign)
	if err := writePadding(bw, payloadStart-written); err != nil {
		return err
	}

	copyBuf := make([]byte, writeCopyBufferSize)
	var pos int64
	for _, item := range plan {
		if err := writePadding(bw, int64(item.offset)-pos); err != nil {
			return err
		}
		pos = int64(item.offset)

		n, err := f.writeRecord(bw, item, types, copyBuf)
		if err != nil {
			return err
		}
		pos += n
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush assets file: %w", err)
	}

	return nil
}

// planReplacement turns a replacer into a planned record. The bool result is
// false for removals.
func planReplacement(rep Replacer, types *[]TypeInfo) (plannedRecord, bool) {
	switch r := rep.(type) {
	case ReplacerFromMemory:
		return plannedRecord{
			pathID:    r.PathID,
			data:      r.Data,
			typeIndex: resolveTypeIndex(types, TypeKey{ClassID: r.ClassID, ScriptIndex: r.ScriptIndex}),
		}, true
	case *ReplacerFromMemory:
		return planReplacement(*r, types)
	default:
		return plannedRecord{}, false
	}
}

// resolveTypeIndex returns the type slot for key, appending a descriptor-less slot when absent.
func resolveTypeIndex(types *[]TypeInfo, key TypeKey) uint32 {
	for i, t := range *types {
		if t.Key() == key {
			return uint32(i) //nolint:gosec // type count is bounded by the format
		}
	}

	*types = append(*types, TypeInfo{ClassID: key.ClassID, ScriptIndex: key.ScriptIndex})
	return uint32(len(*types) - 1) //nolint:gosec // type count is bounded by the format
}

// mergeTypes merges added into base. Matching slots take the added descriptor
// when it is non-empty; new keys are appended in order.
func mergeTypes(base []TypeInfo, added []TypeInfo) []TypeInfo {
	out := append([]TypeInfo(nil), base...)
	for _, t := range added {
		found := false
		for i := range out {
			if out[i].Key() != t.Key() {
				continue
			}

			found = true
			if len(t.Descriptor) > 0 {
				out[i].Descriptor = t.Descriptor
			}
			break
		}

		if !found {
			out = append(out, t)
		}
	}

	return out
}

// writeTables writes the header, type table and record table and returns the byte count.
func (f *File) writeTables(bw *bufio.Writer, version uint32, types []TypeInfo, plan []plannedRecord) (int64, error) {
	var err error
	write := func(v any) {
		if err == nil {
			err = binary.Write(bw, binary.LittleEndian, v)
		}
	}

	var typeTree uint8
	if f.TypeTree {
		typeTree = 1
	}

	write(Magic)
	write(version)
	write(uint32(len(f.EngineVersion))) //nolint:gosec // bounded on parse
	if f.EngineVersion != "" {
		write([]byte(f.EngineVersion))
	}
	write(typeTree)
	write(uint32(len(types))) //nolint:gosec // bounded by the format
	for _, t := range types {
		write(t.ClassID)
		write(t.ScriptIndex)
		write(uint32(len(t.Descriptor))) //nolint:gosec // bounded by the format
		if len(t.Descriptor) > 0 {
			write(t.Descriptor)
		}
	}

	write(uint32(len(plan))) //nolint:gosec // bounded by the format
	for _, item := range plan {
		size := uint32(len(item.data)) //nolint:gosec // checked by caller flows
		if item.source != nil {
			size = item.source.Size
		}

		write(item.pathID)
		write(item.typeIndex)
		write(item.offset)
		write(size)
	}

	if err != nil {
		return 0, fmt.Errorf("write assets tables: %w", err)
	}

	return headerSize(f.EngineVersion, types) + int64(len(plan))*recordEntrySize, nil
}

// writeRecord writes one stored record and returns its byte count.
func (f *File) writeRecord(bw *bufio.Writer, item plannedRecord, types []TypeInfo, copyBuf []byte) (int64, error) {
	if item.source != nil {
		sr := io.NewSectionReader(f.ra, item.source.Offset, item.source.storedSize())
		n, err := io.CopyBuffer(bw, sr, copyBuf)
		if err != nil {
			return n, fmt.Errorf("copy record %d: %w", item.pathID, err)
		}

		return n, nil
	}

	var n int64
	if f.TypeTree {
		var tag [typeTagSize]byte
		binary.LittleEndian.PutUint32(tag[:], uint32(len(types[item.typeIndex].Descriptor))) //nolint:gosec // bounded by the format
		if _, err := bw.Write(tag[:]); err != nil {
			return 0, fmt.Errorf("write record %d tag: %w", item.pathID, err)
		}
		n += typeTagSize
	}

	if _, err := bw.Write(item.data); err != nil {
		return n, fmt.Errorf("write record %d: %w", item.pathID, err)
	}

	return n + int64(len(item.data)), nil
}

// writePadding writes n zero bytes.
func writePadding(bw *bufio.Writer, n int64) error {
	for ; n > 0; n-- {
		if err := bw.WriteByte(0); err != nil {
			return fmt.Errorf("write padding: %w", err)
		}
	}

	return nil
}
