// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import "errors"

// Sentinel errors for bundle operations. Use errors.Is in callers.
var (
	// ErrInvalidHeader means the file is missing the bundle magic or has a bad header.
	ErrInvalidHeader = errors.New("invalid bundle file: missing or bad header")
	// ErrUnsupportedVersion means the bundle format version is newer than this codec.
	ErrUnsupportedVersion = errors.New("unsupported bundle format version")
	// ErrEntryNameTooLong means the entry name exceeds the maximum length.
	ErrEntryNameTooLong = errors.New("entry name exceeds maximum length")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrClosed means the reader is already closed.
	ErrClosed = errors.New("reader already closed")
	// ErrSizeOverflow means the size exceeds the uint32 or 4 GiB bundle limit.
	ErrSizeOverflow = errors.New("size exceeds uint32 or 4 GiB bundle limit")
	// ErrEmptyInputs means no inputs provided for pack.
	ErrEmptyInputs = errors.New("no inputs provided for pack")
	// ErrInvalidCompressPattern means one or more compression rules are invalid.
	ErrInvalidCompressPattern = errors.New("invalid compress rules")
	// ErrUnknownScheme means the entry compression scheme is not known to this codec.
	ErrUnknownScheme = errors.New("unknown compression scheme")
	// ErrInvalidEntryName means an entry name is empty or invalid after normalization.
	ErrInvalidEntryName = errors.New("invalid entry name")
	// ErrDuplicateEntryName means two entries resolve to the same name.
	ErrDuplicateEntryName = errors.New("duplicate entry name")
	// ErrInvalidExportPath means an entry name cannot be used as an output file name.
	ErrInvalidExportPath = errors.New("invalid export path")
	// ErrInvalidEntryOffset means one or more entry payloads are outside file bounds.
	ErrInvalidEntryOffset = errors.New("invalid entry offset")
	// ErrInvalidBinding means a binding has no source or an out-of-range window.
	ErrInvalidBinding = errors.New("invalid entry binding")
)
