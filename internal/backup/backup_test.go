// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, data string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	return string(data)
}

func TestNextSlotProbesLinearly(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "level0")
	for n := 0; n < 8; n++ {
		writeFile(t, SlotPath(path, n), "old")
	}

	got, err := NextSlot(path)
	if err != nil {
		t.Fatalf("NextSlot: %v", err)
	}
	if got != path+".bak0008" {
		t.Fatalf("NextSlot=%q, want %q", got, path+".bak0008")
	}
}

func TestNextSlotFillsGaps(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "level0")
	writeFile(t, SlotPath(path, 0), "old")
	writeFile(t, SlotPath(path, 2), "old")

	got, err := NextSlot(path)
	if err != nil || got != path+".bak0001" {
		t.Fatalf("NextSlot=%q,%v", got, err)
	}
}

func TestNextSlotExhausted(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "level0")
	for n := 0; n < MaxSlots; n++ {
		writeFile(t, SlotPath(path, n), "")
	}

	if _, err := NextSlot(path); !errors.Is(err, ErrSlotsExhausted) {
		t.Fatalf("expected ErrSlotsExhausted, got %v", err)
	}

	writeFile(t, path, "original")
	writeFile(t, path+".new", "new")
	if _, err := Swap(path, path+".new"); !errors.Is(err, ErrSlotsExhausted) {
		t.Fatalf("expected ErrSlotsExhausted, got %v", err)
	}
	if got := readFile(t, path); got != "original" {
		t.Fatalf("original changed to %q", got)
	}
}

func TestSwap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	original := filepath.Join(dir, "data.assets")
	replacement := filepath.Join(dir, "data.assets.patch")
	writeFile(t, original, "before")
	writeFile(t, SlotPath(original, 0), "older")
	writeFile(t, replacement, "after")

	backupPath, err := Swap(original, replacement)
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	if backupPath != SlotPath(original, 1) {
		t.Fatalf("backup=%q", backupPath)
	}
	if got := readFile(t, original); got != "after" {
		t.Fatalf("original=%q, want new bytes", got)
	}
	if got := readFile(t, backupPath); got != "before" {
		t.Fatalf("backup=%q, want pre-swap bytes", got)
	}
	if got := readFile(t, SlotPath(original, 0)); got != "older" {
		t.Fatal("existing backup must not be overwritten")
	}
	if _, err := os.Stat(replacement); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("replacement must be moved, stat err=%v", err)
	}
}

func TestSwapRestoresOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	original := filepath.Join(dir, "data.assets")
	writeFile(t, original, "before")

	if _, err := Swap(original, filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing replacement")
	}
	if got := readFile(t, original); got != "before" {
		t.Fatalf("original=%q after failed swap", got)
	}
	if _, err := os.Stat(SlotPath(original, 0)); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("backup slot must be released after restore")
	}
}

func TestReplaceAndWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	original := filepath.Join(dir, "level0")
	writeFile(t, original, "v1")

	backupPath, err := Replace(original, original+".patch", func(f *os.File) error {
		_, err := f.WriteString("v2")
		return err
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if readFile(t, original) != "v2" || readFile(t, backupPath) != "v1" {
		t.Fatal("Replace did not swap contents")
	}

	boom := errors.New("boom")
	if err := WriteFile(original, func(f *os.File) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
	if readFile(t, original) != "v2" {
		t.Fatal("failed WriteFile must not touch the target")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("leftover temp files: %d entries", len(entries))
	}
}

func TestIsOverwrite(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{"overwrite": true, "OverWrite": true, " overwrite ": true, "out.assets": false, "": false} {
		if got := IsOverwrite(in); got != want {
			t.Fatalf("IsOverwrite(%q)=%v", in, got)
		}
	}
}
