// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"errors"
	"io"
)

// Buffer is an in-memory io.WriteSeeker that can be re-read as io.ReaderAt.
// It backs rewrites that must not touch the filesystem.
type Buffer struct {
	data []byte
	pos  int64
}

// Write writes p at the current position, growing the buffer as needed.
func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		if end > int64(cap(b.data)) {
			grown := make([]byte, end, max(end, 2*int64(cap(b.data))))
			copy(grown, b.data)
			b.data = grown
		} else {
			b.data = b.data[:end]
		}
	}

	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

// Seek sets the position for the next Write.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, errors.New("bundle buffer: invalid whence")
	}

	if abs < 0 {
		return 0, errors.New("bundle buffer: negative position")
	}

	b.pos = abs
	return abs, nil
}

// ReadAt implements io.ReaderAt over written bytes.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("bundle buffer: negative offset")
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}

	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// Bytes returns the written content.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the written content size.
func (b *Buffer) Len() int64 {
	return int64(len(b.data))
}
