// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package assets

// Magic is the 4-byte signature every record container starts with.
var Magic = [4]byte{'U', 'A', 'S', 'T'}

const (
	// payloadAlign is the alignment of the payload region and of every record in it.
	payloadAlign = 8
	// typeTagSize is the size of the descriptor-size prefix stored before
	// each record when the container carries a type tree.
	typeTagSize = 4
	// maxEngineVersionLen bounds the engine version string.
	maxEngineVersionLen = 256
	// recordEntrySize is the fixed size of one record table entry.
	recordEntrySize = 8 + 4 + 4 + 4
)

// TypeInfo is one type table slot.
type TypeInfo struct {
	// Descriptor is the serialized field template; empty when the container has no type tree.
	Descriptor []byte `json:"-" yaml:"-"`
	// ClassID is the engine class id.
	ClassID int32 `json:"class_id" yaml:"class_id"`
	// ScriptIndex selects the script type for scripted classes; 0xffff means none.
	ScriptIndex uint16 `json:"script_index" yaml:"script_index"`
}

// NoScript is the script index of types that are not script-backed.
const NoScript uint16 = 0xffff

// Key returns the (class id, script index) pair identifying t.
func (t TypeInfo) Key() TypeKey {
	return TypeKey{ClassID: t.ClassID, ScriptIndex: t.ScriptIndex}
}

// TypeKey identifies a type table slot by class id and script index.
type TypeKey struct {
	ClassID     int32
	ScriptIndex uint16
}

// RecordInfo describes one record of a parsed container.
type RecordInfo struct {
	// PathID is the record identifier.
	PathID int64 `json:"path_id" yaml:"path_id"`
	// Offset is the absolute offset of the stored record, type tag included.
	Offset int64 `json:"offset" yaml:"offset"`
	// Size is the payload size in bytes, type tag excluded.
	Size uint32 `json:"size" yaml:"size"`
	// TypeIndex is the slot in the type table.
	TypeIndex uint32 `json:"type_index" yaml:"type_index"`
	// ClassID is copied from the type table for convenience.
	ClassID int32 `json:"class_id" yaml:"class_id"`
	// ScriptIndex is copied from the type table for convenience.
	ScriptIndex uint16 `json:"script_index" yaml:"script_index"`
	// Tagged reports whether the stored record starts with a type tag.
	Tagged bool `json:"tagged,omitempty" yaml:"tagged,omitempty"`
}

// PayloadOffset returns the absolute offset of the first payload byte.
func (r RecordInfo) PayloadOffset() int64 {
	if r.Tagged {
		return r.Offset + typeTagSize
	}

	return r.Offset
}

// storedSize returns the size of the stored record including the type tag.
func (r RecordInfo) storedSize() int64 {
	if r.Tagged {
		return int64(r.Size) + typeTagSize
	}

	return int64(r.Size)
}

// Replacer is one pending mutation of a container. It is applied by File.Write.
type Replacer interface {
	// Target returns the path id the replacer applies to.
	Target() int64
}

// ReplacerFromMemory replaces (or adds) the record PathID with Data tagged
// with the (ClassID, ScriptIndex) type.
type ReplacerFromMemory struct {
	Data        []byte
	PathID      int64
	ClassID     int32
	ScriptIndex uint16
}

// Target returns the replaced path id.
func (r ReplacerFromMemory) Target() int64 { return r.PathID }

// Remover removes the record PathID.
type Remover struct {
	PathID int64
}

// Target returns the removed path id.
func (r Remover) Target() int64 { return r.PathID }

func alignUp(v int64, align int64) int64 {
	if rem := v % align; rem != 0 {
		return v + align - rem
	}

	return v
}
