// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

// Package names recovers display names of records.
package names

import (
	"encoding/binary"
	"io"
	"unicode"
	"unicode/utf8"
)

const (
	// ScanWindow is the maximum number of record bytes inspected by Scan.
	ScanWindow = 200
	// MaxNameLen is the longest length prefix Scan accepts.
	MaxNameLen = 100
	// typeTagSize is the descriptor-size prefix of type-tagged records.
	typeTagSize = 4
)

// Scan looks for a plausible length-prefixed name inside the record stored at
// start with payload size size. Tagged records have their 4-byte type tag
// skipped and are probed at every byte; untagged records are probed at 4-byte
// steps. The first int32 length L in (0, MaxNameLen] whose L following bytes
// fit in the window and are all letters, digits, space, '_' or '-' wins.
// fallback is returned when nothing matches. The cursor of r is restored on
// every path.
func Scan(r io.ReadSeeker, start int64, size int64, tagged bool, fallback string) (name string) {
	saved, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return fallback
	}
	defer func() {
		if _, err := r.Seek(saved, io.SeekStart); err != nil {
			name = fallback
		}
	}()

	step := int64(4)
	if tagged {
		start += typeTagSize
		step = 1
	}

	end := start + min(size, ScanWindow)
	for pos := start; pos+4 <= end; pos += step {
		if candidate, ok := probe(r, pos, end); ok {
			return candidate
		}
	}

	return fallback
}

// probe tries to read a length-prefixed name at pos that ends before end.
func probe(r io.ReadSeeker, pos int64, end int64) (string, bool) {
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return "", false
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", false
	}

	n := int64(int32(binary.LittleEndian.Uint32(lenBuf[:]))) //nolint:gosec // stored as signed int
	if n <= 0 || n > MaxNameLen || pos+4+n > end {
		return "", false
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", false
	}

	if !isNameLike(buf) {
		return "", false
	}

	return string(buf), true
}

// isNameLike reports whether b is valid UTF-8 made of letters, digits, space, '_' or '-'.
func isNameLike(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}

	for _, c := range string(b) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == ' ' || c == '_' || c == '-' {
			continue
		}

		return false
	}

	return true
}
