// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func sampleEntries() []testEntry {
	return []testEntry{
		{name: "CAB-0001", data: bytes.Repeat([]byte("record-container"), 512)},
		{name: "CAB-0001.resS", data: []byte("raw stream bytes")},
		{name: "CAB-0002", data: bytes.Repeat([]byte{0xAB, 0xCD}, 300)},
	}
}

func TestPackRoundTrip(t *testing.T) {
	t.Parallel()

	for _, scheme := range []Scheme{SchemeLZSS, SchemeLZ4} {
		t.Run(scheme.String(), func(t *testing.T) {
			t.Parallel()

			entries := sampleEntries()
			r, _ := packTestBundle(t, entries, PackOptions{
				Compress: includeRules("CAB-*"),
				Scheme:   scheme,
			})

			if got := r.EngineVersion(); got != "2021.3.4f1" {
				t.Fatalf("EngineVersion=%q", got)
			}
			if !r.IsCompressed() {
				t.Fatal("expected compressed bundle")
			}

			got := r.Entries()
			if len(got) != len(entries) {
				t.Fatalf("entries=%d, want %d", len(got), len(entries))
			}

			for i, e := range entries {
				if got[i].Name != e.name {
					t.Fatalf("entry[%d]=%q, want %q (order must be kept)", i, got[i].Name, e.name)
				}
				if got[i].Size() != uint32(len(e.data)) {
					t.Fatalf("entry %s size=%d, want %d", e.name, got[i].Size(), len(e.data))
				}
				if !bytes.Equal(mustReadEntry(t, r, e.name), e.data) {
					t.Fatalf("entry %s payload mismatch", e.name)
				}
			}

			first, err := r.Entry("CAB-0001")
			if err != nil {
				t.Fatalf("Entry: %v", err)
			}
			if first.Scheme != scheme {
				t.Fatalf("scheme=%s, want %s", first.Scheme, scheme)
			}
			if first.TimeStamp != uint32(testModTime.Unix()) {
				t.Fatalf("timestamp=%d", first.TimeStamp)
			}
		})
	}
}

func TestPackRejectsDuplicates(t *testing.T) {
	t.Parallel()

	var buf Buffer
	_, err := Pack(context.Background(), &buf, testInputs([]testEntry{
		{name: "a", data: []byte("1")},
		{name: "./a", data: []byte("2")},
	}), PackOptions{})
	if !errors.Is(err, ErrDuplicateEntryName) {
		t.Fatalf("expected ErrDuplicateEntryName, got %v", err)
	}

	if _, err := Pack(context.Background(), &buf, nil, PackOptions{}); !errors.Is(err, ErrEmptyInputs) {
		t.Fatalf("expected ErrEmptyInputs, got %v", err)
	}
}

func TestRewriteWithoutBindingsIsByteIdentical(t *testing.T) {
	t.Parallel()

	r, src := packTestBundle(t, sampleEntries(), PackOptions{Compress: CompressAll()})

	var out Buffer
	res, err := Rewrite(context.Background(), &out, r, nil, PackOptions{})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if res.CopiedEntries != 3 {
		t.Fatalf("CopiedEntries=%d, want 3", res.CopiedEntries)
	}

	if !bytes.Equal(out.Bytes(), src.Bytes()) {
		t.Fatal("rewrite without bindings must reproduce source bytes")
	}
}

func TestRewriteBindingReplacesAndAppends(t *testing.T) {
	t.Parallel()

	entries := sampleEntries()
	r, _ := packTestBundle(t, entries, PackOptions{Compress: includeRules("CAB-0002")})

	external := []byte("prefix|replacement payload|suffix")
	bindings := []Binding{
		{Name: "CAB-0001", Source: bytes.NewReader(external), Offset: 7, Length: 19},
		BytesBinding("CAB-0003", []byte("brand new")),
	}

	var out Buffer
	if _, err := Rewrite(context.Background(), &out, r, bindings, PackOptions{}); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	got := reopen(t, &out)
	if data := mustReadEntry(t, got, "CAB-0001"); string(data) != "replacement payload" {
		t.Fatalf("CAB-0001=%q", data)
	}
	if data := mustReadEntry(t, got, "CAB-0003"); string(data) != "brand new" {
		t.Fatalf("CAB-0003=%q", data)
	}

	for _, e := range entries[1:] {
		before, _ := r.Entry(e.name)
		after, _ := got.Entry(e.name)
		if before.Scheme != after.Scheme || before.DataSize != after.DataSize {
			t.Fatalf("entry %s framing changed: %+v -> %+v", e.name, before, after)
		}
		if !bytes.Equal(mustReadEntry(t, got, e.name), e.data) {
			t.Fatalf("entry %s payload changed", e.name)
		}
	}

	names := got.Entries()
	if names[len(names)-1].Name != "CAB-0003" {
		t.Fatalf("appended entry must be last, got %q", names[len(names)-1].Name)
	}
}

func TestRewriteInvalidBinding(t *testing.T) {
	t.Parallel()

	r, _ := packTestBundle(t, sampleEntries(), PackOptions{})

	var out Buffer
	_, err := Rewrite(context.Background(), &out, r, []Binding{{Name: "CAB-0001"}}, PackOptions{})
	if !errors.Is(err, ErrInvalidBinding) {
		t.Fatalf("expected ErrInvalidBinding, got %v", err)
	}
}

func TestDecompressAndRecompress(t *testing.T) {
	t.Parallel()

	entries := sampleEntries()
	r, _ := packTestBundle(t, entries, PackOptions{Compress: CompressAll(), Scheme: SchemeLZ4})

	var raw Buffer
	if _, err := Decompress(context.Background(), r, &raw); err != nil {
		t.Fatalf("Decompress: %v", err)
	}

	decompressed := reopen(t, &raw)
	if decompressed.IsCompressed() {
		t.Fatal("decompressed bundle must not contain compressed entries")
	}
	if decompressed.EngineVersion() != r.EngineVersion() {
		t.Fatal("headers must survive decompression")
	}

	var again Buffer
	if _, err := Rewrite(context.Background(), &again, decompressed, nil, PackOptions{}); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if !bytes.Equal(again.Bytes(), raw.Bytes()) {
		t.Fatal("rewrite of decompressed bundle must be byte-identical")
	}

	var packed Buffer
	res, err := Recompress(context.Background(), decompressed, &packed, PackOptions{Scheme: SchemeLZSS})
	if err != nil {
		t.Fatalf("Recompress: %v", err)
	}
	if res.CompressedEntries == 0 {
		t.Fatal("expected compressed entries")
	}

	recompressed := reopen(t, &packed)
	for _, e := range entries {
		if !bytes.Equal(mustReadEntry(t, recompressed, e.name), e.data) {
			t.Fatalf("entry %s payload mismatch after recompress", e.name)
		}
	}
}

func TestRecompressFromKeepsStoredForm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	entries := sampleEntries()
	original, origBuf := packTestBundle(t, entries, PackOptions{Compress: includeRules("CAB-0001"), Scheme: SchemeLZ4})

	var raw Buffer
	if _, err := Decompress(ctx, original, &raw); err != nil {
		t.Fatalf("Decompress: %v", err)
	}

	replaced := bytes.Repeat([]byte("patched"), 600)
	var staged Buffer
	binding := BytesBinding("CAB-0002", replaced)
	if _, err := Rewrite(ctx, &staged, reopen(t, &raw), []Binding{binding}, PackOptions{}); err != nil {
		t.Fatalf("Rewrite: %v", err)
	}

	var out Buffer
	res, err := RecompressFrom(ctx, reopen(t, &staged), original, []string{"CAB-0002"}, &out, PackOptions{Scheme: SchemeLZSS})
	if err != nil {
		t.Fatalf("RecompressFrom: %v", err)
	}
	if res.CopiedEntries != 2 {
		t.Fatalf("copied=%d, want 2", res.CopiedEntries)
	}

	result := reopen(t, &out)
	for _, name := range []string{"CAB-0001", "CAB-0001.resS"} {
		before, err := original.Entry(name)
		if err != nil {
			t.Fatalf("Entry(%s): %v", name, err)
		}

		after, err := result.Entry(name)
		if err != nil {
			t.Fatalf("Entry(%s): %v", name, err)
		}

		if before.Scheme != after.Scheme || before.DataSize != after.DataSize || before.OriginalSize != after.OriginalSize {
			t.Fatalf("%s: stored form changed: before=%+v after=%+v", name, before, after)
		}

		want := origBuf.Bytes()[before.Offset : before.Offset+before.DataSize]
		got := out.Bytes()[after.Offset : after.Offset+after.DataSize]
		if !bytes.Equal(want, got) {
			t.Fatalf("%s: packed bytes changed", name)
		}
	}

	changed, err := result.Entry("CAB-0002")
	if err != nil {
		t.Fatalf("Entry(CAB-0002): %v", err)
	}
	if changed.Scheme != SchemeLZSS {
		t.Fatalf("changed entry scheme=%s, want %s", changed.Scheme, SchemeLZSS)
	}
	if !bytes.Equal(mustReadEntry(t, result, "CAB-0002"), replaced) {
		t.Fatal("changed entry payload mismatch")
	}
	if !bytes.Equal(mustReadEntry(t, result, "CAB-0001"), entries[0].data) {
		t.Fatal("copied entry payload mismatch")
	}
}

func TestPackFileAndOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.bundle")
	if _, err := PackFile(context.Background(), path, testInputs(sampleEntries()), PackOptions{}); err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	if !IsBundle(path) {
		t.Fatal("IsBundle=false")
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	if len(r.Entries()) != 3 {
		t.Fatalf("entries=%d", len(r.Entries()))
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := r.ReadEntry("CAB-0001"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCopyPayloadBounded(t *testing.T) {
	t.Parallel()

	var dst bytes.Buffer
	written, err := copyPayloadBounded(&dst, bytes.NewReader([]byte("abcdef")), 3, make([]byte, 2))
	if !errors.Is(err, ErrSizeOverflow) {
		t.Fatalf("expected ErrSizeOverflow, got %v", err)
	}
	if written != 3 || dst.String() != "abc" {
		t.Fatalf("written=%d dst=%q", written, dst.String())
	}
}
