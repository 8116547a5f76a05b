// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

// Package backup allocates numbered backup files and swaps rewritten files
// into place without ever losing the original.
package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MaxSlots is the number of backup slots probed per file (.bak0000 through .bak9999).
const MaxSlots = 10000

// OverwriteSentinel is the output value that requests in-place replacement.
const OverwriteSentinel = "overwrite"

// ErrSlotsExhausted means every backup slot of a file is taken. Multi-file
// operations must stop when they see it.
var ErrSlotsExhausted = errors.New("too many backups")

// IsOverwrite reports whether output requests in-place replacement.
func IsOverwrite(output string) bool {
	return strings.EqualFold(strings.TrimSpace(output), OverwriteSentinel)
}

// SlotPath returns the backup path with counter n.
func SlotPath(path string, n int) string {
	return fmt.Sprintf("%s.bak%04d", path, n)
}

// NextSlot returns the first free backup path of path, probing from .bak0000.
// It never returns an existing file.
func NextSlot(path string) (string, error) {
	for n := 0; n < MaxSlots; n++ {
		candidate := SlotPath(path, n)
		_, err := os.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat backup slot %s: %w", candidate, err)
		}
	}

	return "", fmt.Errorf("%w: %s", ErrSlotsExhausted, path)
}

// Swap moves original to a fresh backup slot, then moves replacement to
// original. It returns the backup path. If the second rename fails the
// original is moved back.
func Swap(original string, replacement string) (string, error) {
	backupPath, err := NextSlot(original)
	if err != nil {
		return "", err
	}

	if err := os.Rename(original, backupPath); err != nil {
		return "", fmt.Errorf("move %s to backup: %w", original, err)
	}

	if err := os.Rename(replacement, original); err != nil {
		if restoreErr := os.Rename(backupPath, original); restoreErr != nil {
			return "", fmt.Errorf("move %s into place: %w (restore failed: %v)", replacement, err, restoreErr)
		}

		return "", fmt.Errorf("move %s into place: %w", replacement, err)
	}

	return backupPath, nil
}

// WriteFile creates path through a temporary file in the same directory:
// write, sync, close, rename. path is untouched when write fails.
func WriteFile(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}

	return nil
}

// Replace writes the new content of original to tmpPath and swaps it into
// place with a backup. It returns the backup path. tmpPath is removed on
// write failure.
func Replace(original string, tmpPath string, write func(f *os.File) error) (string, error) {
	if err := WriteFile(tmpPath, write); err != nil {
		return "", err
	}

	backupPath, err := Swap(original, tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	return backupPath, nil
}
