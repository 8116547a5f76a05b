// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"io"
	"time"

	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	headerSize    = 8       // magic + format version
	entryFields   = 20      // fixed entry record size after the NUL-terminated name
	maxNameLen    = 1024    // max entry name length
	maxBundleData = 1 << 32 // max addressable payload (4 GiB)
	formatVersion = 1       // current on-disk format version
)

// Magic is the 4-byte signature every bundle file starts with.
var Magic = [4]byte{'U', 'B', 'N', 'D'}

// HeaderEngineVersion is the header key carrying the engine version string.
const HeaderEngineVersion = "engine"

// Default packer tuning values.
const (
	DefaultWriteBuffer     = 4 * 1024 * 1024
	DefaultMinCompressSize = 64
	DefaultMaxCompressSize = 64 * 1024 * 1024
)

// Scheme is the per-entry compression scheme (stored little-endian).
type Scheme uint32

// Entry compression schemes.
const (
	// SchemeNone marks an entry stored raw.
	SchemeNone Scheme = 0
	// SchemeLZSS marks an LZSS-compressed entry.
	SchemeLZSS Scheme = 1
	// SchemeLZ4 marks an LZ4 block-compressed entry.
	SchemeLZ4 Scheme = 2
)

// String returns the command-line name of the scheme.
func (s Scheme) String() string {
	switch s {
	case SchemeNone:
		return "none"
	case SchemeLZSS:
		return "lzss"
	case SchemeLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// ParseScheme converts a command-line scheme name.
func ParseScheme(name string) (Scheme, error) {
	switch asciiLower(name) {
	case "none", "raw", "":
		return SchemeNone, nil
	case "lzss":
		return SchemeLZSS, nil
	case "lz4":
		return SchemeLZ4, nil
	default:
		return SchemeNone, ErrUnknownScheme
	}
}

// EntryInfo describes a single parsed bundle entry.
type EntryInfo struct {
	// Name is the entry name as stored in the entry table.
	Name string `json:"name" yaml:"name"`
	// Offset is absolute byte offset of the stored payload.
	Offset uint32 `json:"offset" yaml:"offset"`
	// DataSize is stored payload size in bytes.
	DataSize uint32 `json:"data_size" yaml:"data_size"`
	// OriginalSize is uncompressed size for compressed entries; zero otherwise.
	OriginalSize uint32 `json:"original_size,omitempty" yaml:"original_size,omitempty"`
	// TimeStamp is Unix timestamp from entry record.
	TimeStamp uint32 `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	// Scheme stores the entry compression scheme.
	Scheme Scheme `json:"scheme,omitempty" yaml:"scheme,omitempty"`
}

// IsCompressed reports whether this entry is stored compressed.
func (e *EntryInfo) IsCompressed() bool {
	return e.Scheme != SchemeNone
}

// Size returns the decompressed payload size.
func (e *EntryInfo) Size() uint32 {
	if e.IsCompressed() {
		return e.OriginalSize
	}

	return e.DataSize
}

// Input describes one source stream to be packed into a bundle entry.
type Input struct {
	// ModTime is optional entry timestamp.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
	// Open returns raw source stream for this entry.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Name is destination entry name.
	Name string `json:"name" yaml:"name"`
	// SizeHint is expected size in bytes (zero when unknown).
	SizeHint int64 `json:"size_hint,omitempty" yaml:"size_hint,omitempty"`
}

// Binding binds a named entry to a window of an external data source.
// The source is owned by the caller and must stay open until the rewrite
// that consumes the binding returns.
type Binding struct {
	// Source provides the replacement bytes.
	Source io.ReaderAt
	// Name is the entry the binding replaces or adds.
	Name string
	// Offset is the window start inside Source.
	Offset int64
	// Length is the window length in bytes.
	Length int64
}

// HeaderPair is a bundle header key-value pair written in provided order.
type HeaderPair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// PackEntryProgress contains one completed entry write event.
type PackEntryProgress struct {
	Name         string `json:"name" yaml:"name"`
	Offset       uint32 `json:"offset" yaml:"offset"`
	DataSize     uint32 `json:"data_size" yaml:"data_size"`
	OriginalSize uint32 `json:"original_size,omitempty" yaml:"original_size,omitempty"`
	Scheme       Scheme `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	// Copied reports whether the packed payload was copied from the source bundle unchanged.
	Copied bool `json:"copied,omitempty" yaml:"copied,omitempty"`
}

// PackOptions configures pack and rewrite behavior.
type PackOptions struct {
	// OnEntryDone is called after one entry is fully written.
	OnEntryDone func(entry PackEntryProgress) `json:"-" yaml:"-"`
	// Headers are written in provided order.
	Headers []HeaderPair `json:"headers,omitempty" yaml:"headers,omitempty"`
	// Compress selects entries for compression; empty means no compression.
	Compress []pathrules.Rule `json:"compress,omitempty" yaml:"compress,omitempty"`
	// CompressMatcherOptions control compression rule matching.
	CompressMatcherOptions pathrules.MatcherOptions `json:"compress_matcher_options,omitzero" yaml:"compress_matcher_options,omitzero"`
	// Scheme is the compression scheme for selected entries. Default is LZSS.
	Scheme Scheme `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	// WriterBufferSize is buffered writer size in bytes.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
	// MinCompressSize disables compression for entries smaller than this size.
	MinCompressSize uint32 `json:"min_compress_size,omitempty" yaml:"min_compress_size,omitempty"`
	// MaxCompressSize disables compression for entries larger than this size.
	MaxCompressSize uint32 `json:"max_compress_size,omitempty" yaml:"max_compress_size,omitempty"`
}

// PackResult contains pack output statistics.
type PackResult struct {
	WrittenEntries    int           `json:"written_entries" yaml:"written_entries"`
	CopiedEntries     int           `json:"copied_entries,omitempty" yaml:"copied_entries,omitempty"`
	CompressedEntries int           `json:"compressed_entries,omitempty" yaml:"compressed_entries,omitempty"`
	DataSize          int64         `json:"data_size" yaml:"data_size"`
	IndexSize         int64         `json:"index_size" yaml:"index_size"`
	Duration          time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ExportOptions configures Export behavior.
type ExportOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(entry EntryInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// FileName maps an entry to its output file name; nil keeps the sanitized entry name.
	FileName func(entry EntryInfo) string `json:"-" yaml:"-"`
	// FileMode controls output file creation policy.
	FileMode ExportFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// Entries limits export to selected metadata list; nil means all parsed entries.
	Entries []EntryInfo `json:"-" yaml:"-"`
}

// ExportFileMode controls output file open behavior during export.
type ExportFileMode string

// Output file creation policies for export.
const (
	// ExportFileModeTruncate opens existing files with truncate and creates missing files.
	ExportFileModeTruncate ExportFileMode = "truncate"
	// ExportFileModeCreateOnly creates files only when absent and fails on existing files.
	ExportFileModeCreateOnly ExportFileMode = "create_only"
)

// applyDefaults fills zero-valued pack options with defaults.
func (opts *PackOptions) applyDefaults() {
	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}

	if opts.MinCompressSize == 0 {
		opts.MinCompressSize = DefaultMinCompressSize
	}

	if opts.MaxCompressSize == 0 || opts.MaxCompressSize <= opts.MinCompressSize {
		opts.MaxCompressSize = DefaultMaxCompressSize
	}

	if opts.Scheme == SchemeNone {
		opts.Scheme = SchemeLZSS
	}

	if opts.CompressMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.CompressMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.CompressMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.CompressMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// CompressAll returns rules selecting every entry for compression.
func CompressAll() []pathrules.Rule {
	return []pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: "*"}}
}

// asciiLower lower-cases ASCII letters only.
func asciiLower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}

	return string(b)
}
