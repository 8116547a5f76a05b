// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package assets

import "errors"

// Sentinel errors for record container operations. Use errors.Is in callers.
var (
	// ErrInvalidHeader means the file is missing the container magic or has a bad header.
	ErrInvalidHeader = errors.New("invalid assets file: missing or bad header")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrRecordNotFound means no record carries the requested path id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrTypeIndexOutOfRange means a record references a type table slot that does not exist.
	ErrTypeIndexOutOfRange = errors.New("type index out of range")
	// ErrRecordOutOfBounds means a record payload lies outside the file.
	ErrRecordOutOfBounds = errors.New("record payload out of file bounds")
	// ErrDuplicateReplacer means two replacers target the same path id.
	ErrDuplicateReplacer = errors.New("duplicate replacer for path id")
	// ErrDuplicateRecord means two records share one path id.
	ErrDuplicateRecord = errors.New("duplicate record path id")
	// ErrSizeOverflow means a size or offset exceeds the uint32 format limit.
	ErrSizeOverflow = errors.New("size exceeds uint32 format limit")
	// ErrClosed means the file is already closed.
	ErrClosed = errors.New("assets file already closed")
)
