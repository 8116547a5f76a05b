// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestEditorCommitAddReplaceDelete(t *testing.T) {
	t.Parallel()

	r, _ := packTestBundle(t, sampleEntries(), PackOptions{Compress: CompressAll()})

	editor, err := NewEditor(r, PackOptions{})
	if err != nil {
		t.Fatalf("NewEditor: %v", err)
	}
	if editor.Pending() {
		t.Fatal("fresh editor must have no pending operations")
	}

	if err := editor.ReplaceData("CAB-0002", []byte("patched")); err != nil {
		t.Fatalf("ReplaceData: %v", err)
	}
	if err := editor.Add(BytesBinding("CAB-0009", []byte("added"))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := editor.Delete("CAB-0001.resS"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var out Buffer
	res, err := editor.Commit(context.Background(), &out)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.WrittenEntries != 3 {
		t.Fatalf("WrittenEntries=%d, want 3", res.WrittenEntries)
	}

	got := reopen(t, &out)
	want := []string{"CAB-0001", "CAB-0002", "CAB-0009"}
	entries := got.Entries()
	for i, name := range want {
		if entries[i].Name != name {
			t.Fatalf("entry[%d]=%q, want %q", i, entries[i].Name, name)
		}
	}

	if data := mustReadEntry(t, got, "CAB-0002"); string(data) != "patched" {
		t.Fatalf("CAB-0002=%q", data)
	}
	if data := mustReadEntry(t, got, "CAB-0001"); !bytes.Equal(data, sampleEntries()[0].data) {
		t.Fatal("untouched entry payload changed")
	}
	if _, err := got.Entry("CAB-0001.resS"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestEditorErrors(t *testing.T) {
	t.Parallel()

	r, _ := packTestBundle(t, sampleEntries(), PackOptions{})

	testCases := []struct {
		name  string
		stage func(e *Editor) error
		want  error
	}{
		{
			name:  "replace missing",
			stage: func(e *Editor) error { return e.ReplaceData("missing", []byte("x")) },
			want:  ErrEntryNotFound,
		},
		{
			name:  "add existing",
			stage: func(e *Editor) error { return e.Add(BytesBinding("CAB-0001", []byte("x"))) },
			want:  ErrDuplicateEntryName,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			editor, err := NewEditor(r, PackOptions{})
			if err != nil {
				t.Fatalf("NewEditor: %v", err)
			}
			if err := tc.stage(editor); err != nil {
				t.Fatalf("stage: %v", err)
			}

			var out Buffer
			if _, err := editor.Commit(context.Background(), &out); !errors.Is(err, tc.want) {
				t.Fatalf("Commit error=%v, want %v", err, tc.want)
			}
		})
	}

	editor, err := NewEditor(r, PackOptions{})
	if err != nil {
		t.Fatalf("NewEditor: %v", err)
	}
	if err := editor.Replace(Binding{Name: "CAB-0001"}); !errors.Is(err, ErrInvalidBinding) {
		t.Fatalf("expected ErrInvalidBinding, got %v", err)
	}
	if err := editor.Delete(""); !errors.Is(err, ErrInvalidEntryName) {
		t.Fatalf("expected ErrInvalidEntryName, got %v", err)
	}
}
