// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package batch

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/woozymasta/pathrules"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/backup"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
)

var (
	readme  = []byte(strings.Repeat("readme line\n", 200))
	cabMain = []byte(strings.Repeat("CAB payload ", 300))
)

func writeArchive(t *testing.T, dir string, name string, compress bool) string {
	t.Helper()

	opts := bundle.PackOptions{Headers: []bundle.HeaderPair{{Key: bundle.HeaderEngineVersion, Value: "2021.3.4f1"}}}
	if compress {
		opts.Compress = bundle.CompressAll()
	}

	path := filepath.Join(dir, name)
	_, err := bundle.PackFile(context.Background(), path, []bundle.Input{
		bytesInput("readme.txt", readme),
		bytesInput("data/CAB-main", cabMain),
	}, opts)
	require.NoError(t, err)
	return path
}

func bytesInput(name string, data []byte) bundle.Input {
	return bundle.Input{
		Name:     name,
		ModTime:  time.Unix(1700000000, 0),
		SizeHint: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func decompressedBytes(t *testing.T, path string) []byte {
	t.Helper()

	r, err := bundle.Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var buf bundle.Buffer
	_, err = bundle.Decompress(context.Background(), r, &buf)
	require.NoError(t, err)
	return append([]byte(nil), buf.Bytes()...)
}

func readEntry(t *testing.T, path string, name string) []byte {
	t.Helper()

	r, err := bundle.Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := r.ReadEntry(name)
	require.NoError(t, err)
	return data
}

func TestListArchivesSkipsArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeArchive(t, dir, "a.bundle", false)
	b := writeArchive(t, dir, "b.bundle", true)

	raw, err := os.ReadFile(a)
	require.NoError(t, err)
	for _, name := range []string{"a.bundle.decomp", "a.bundle.bak0000", "a.bundle.mod", "a.bundle.patch"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bundle.bak12"), raw, 0o600))

	got, err := ListArchives(dir)
	require.NoError(t, err)
	require.Equal(t, []string{a, b, filepath.Join(dir, "c.bundle.bak12")}, got)
}

func TestExportBundleNamesFilesAfterArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := t.TempDir()
	path := writeArchive(t, dir, "a.bundle", true)

	rep, err := ExportBundle(context.Background(), path, out, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, rep.Entries)

	got, err := os.ReadFile(filepath.Join(out, "a.bundle_readme.txt"))
	require.NoError(t, err)
	require.Equal(t, readme, got)

	got, err = os.ReadFile(filepath.Join(out, "a.bundle_data_CAB-main"))
	require.NoError(t, err)
	require.Equal(t, cabMain, got)

	require.NoFileExists(t, path+".decomp")
}

func TestExportBundleCacheLifecycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := t.TempDir()
	path := writeArchive(t, dir, "a.bundle", true)
	ctx := context.Background()

	_, err := ExportBundle(ctx, path, out, Options{KeepNames: true, KeepCache: true})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(out, "readme.txt"))
	require.FileExists(t, filepath.Join(out, "data_CAB-main"))
	require.Equal(t, decompressedBytes(t, path), mustRead(t, path+".decomp"))

	_, err = ExportBundle(ctx, path, out, Options{KeepNames: true})
	require.ErrorIs(t, err, ErrCacheExists)

	_, err = ExportBundle(ctx, path, out, Options{KeepNames: true, ForceCache: true})
	require.NoError(t, err)
	require.NoFileExists(t, path+".decomp")
}

func TestExportBundleMemoryOnlyIgnoresCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := t.TempDir()
	path := writeArchive(t, dir, "a.bundle", true)
	require.NoError(t, os.WriteFile(path+".decomp", []byte("stale"), 0o600))

	rep, err := ExportBundle(context.Background(), path, out, Options{MemoryOnly: true, KeepCache: true})
	require.NoError(t, err)
	require.Equal(t, 2, rep.Entries)
	require.Equal(t, []byte("stale"), mustRead(t, path+".decomp"))
}

func TestImportBundleWithoutFilesIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, compress := range []bool{false, true} {
		dir := t.TempDir()
		path := writeArchive(t, dir, "a.bundle", compress)
		want := mustRead(t, path)

		rep, err := ImportBundle(context.Background(), path, t.TempDir(), Options{})
		require.NoError(t, err)
		require.Zero(t, rep.Entries)

		require.Equal(t, want, mustRead(t, path))
		require.NoFileExists(t, path+".decomp")
		require.NoFileExists(t, path+".mod")
	}
}

func TestExportImportRoundTripRecompresses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := t.TempDir()
	path := writeArchive(t, dir, "a.bundle", true)
	ctx := context.Background()

	_, err := ExportBundle(ctx, path, files, Options{MemoryOnly: true})
	require.NoError(t, err)

	replacement := []byte(strings.Repeat("patched payload ", 100))
	require.NoError(t, os.WriteFile(filepath.Join(files, "a.bundle_data_CAB-main"), replacement, 0o600))
	require.NoError(t, os.Remove(filepath.Join(files, "a.bundle_readme.txt")))

	rep, err := ImportBundle(ctx, path, files, Options{MemoryOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Entries)

	r, err := bundle.Open(path)
	require.NoError(t, err)
	require.True(t, r.IsCompressed())
	require.NoError(t, r.Close())

	require.Equal(t, replacement, readEntry(t, path, "data/CAB-main"))
	require.Equal(t, readme, readEntry(t, path, "readme.txt"))
}

func TestImportBundleKeepsBackup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := t.TempDir()
	path := writeArchive(t, dir, "a.bundle", false)
	original := mustRead(t, path)
	require.NoError(t, os.WriteFile(filepath.Join(files, "readme.txt"), []byte("new readme"), 0o600))

	rep, err := ImportBundle(context.Background(), path, files, Options{KeepNames: true, Backup: true})
	require.NoError(t, err)
	require.Equal(t, backup.SlotPath(path, 0), rep.Backup)
	require.Equal(t, original, mustRead(t, rep.Backup))
	require.Equal(t, []byte("new readme"), readEntry(t, path, "readme.txt"))
}

func TestImportDirContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := t.TempDir()
	a := writeArchive(t, dir, "a.bundle", false)
	b := writeArchive(t, dir, "b.bundle", true)
	require.NoError(t, os.WriteFile(a+".decomp", []byte("stale"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(files, "b.bundle_readme.txt"), []byte("b readme"), 0o600))

	reports, err := ImportDir(context.Background(), dir, files, Options{})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	require.Equal(t, a, reports[0].Path)
	require.ErrorIs(t, reports[0].Err, ErrCacheExists)
	require.Equal(t, []byte("stale"), mustRead(t, a+".decomp"))

	require.Equal(t, b, reports[1].Path)
	require.NoError(t, reports[1].Err)
	require.Equal(t, 1, reports[1].Entries)
	require.Equal(t, []byte("b readme"), readEntry(t, b, "readme.txt"))
}

func TestExportDirStopsOnCancel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeArchive(t, dir, "a.bundle", false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := ExportDir(ctx, dir, t.TempDir(), Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, reports)
}

func writeMixedArchive(t *testing.T, dir string, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	_, err := bundle.PackFile(context.Background(), path, []bundle.Input{
		bytesInput("readme.txt", readme),
		bytesInput("data/CAB-main", cabMain),
	}, bundle.PackOptions{
		Headers:  []bundle.HeaderPair{{Key: bundle.HeaderEngineVersion, Value: "2021.3.4f1"}},
		Compress: []pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: "data/*"}},
		Scheme:   bundle.SchemeLZ4,
	})
	require.NoError(t, err)
	return path
}

func storedEntries(t *testing.T, path string) map[string]bundle.EntryInfo {
	t.Helper()

	r, err := bundle.Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	out := map[string]bundle.EntryInfo{}
	for _, e := range r.Entries() {
		e.Offset = 0
		out[e.Name] = e
	}

	return out
}

func TestImportBundleKeepsStoredSchemes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	path := writeMixedArchive(t, dir, "a.bundle")
	before := storedEntries(t, path)
	require.Equal(t, bundle.SchemeLZ4, before["data/CAB-main"].Scheme)
	require.Equal(t, bundle.SchemeNone, before["readme.txt"].Scheme)

	_, err := ImportBundle(ctx, path, t.TempDir(), Options{MemoryOnly: true})
	require.NoError(t, err)
	require.Equal(t, before, storedEntries(t, path))

	files := t.TempDir()
	replacement := []byte(strings.Repeat("replaced readme ", 100))
	require.NoError(t, os.WriteFile(filepath.Join(files, "readme.txt"), replacement, 0o600))

	opts := Options{MemoryOnly: true, KeepNames: true, Pack: bundle.PackOptions{Scheme: bundle.SchemeLZSS}}
	rep, err := ImportBundle(ctx, path, files, opts)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Entries)

	after := storedEntries(t, path)
	require.Equal(t, before["data/CAB-main"], after["data/CAB-main"])
	require.Equal(t, bundle.SchemeLZSS, after["readme.txt"].Scheme)
	require.Equal(t, replacement, readEntry(t, path, "readme.txt"))
	require.Equal(t, cabMain, readEntry(t, path, "data/CAB-main"))
}

func TestEntryFileNameCollision(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.bundle")
	_, err := bundle.PackFile(context.Background(), path, []bundle.Input{
		bytesInput("a/b", []byte("first")),
		bytesInput("a_b", []byte("second")),
	}, bundle.PackOptions{})
	require.NoError(t, err)

	out := t.TempDir()
	_, err = ExportBundle(context.Background(), path, out, Options{MemoryOnly: true})
	require.ErrorIs(t, err, ErrNameCollision)
	require.NoFileExists(t, filepath.Join(out, "a.bundle_a_b"))

	original := mustRead(t, path)
	require.NoError(t, os.WriteFile(filepath.Join(out, "a.bundle_a_b"), []byte("changed"), 0o600))
	_, err = ImportBundle(context.Background(), path, out, Options{MemoryOnly: true})
	require.ErrorIs(t, err, ErrNameCollision)
	require.Equal(t, original, mustRead(t, path))
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestExportBundleFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := t.TempDir()
	path := writeArchive(t, dir, "a.bundle", false)

	opts := Options{MemoryOnly: true, Filter: bundle.EntryFilter{Prefix: "data"}}
	rep, err := ExportBundle(context.Background(), path, out, opts)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Entries)
	require.FileExists(t, filepath.Join(out, "a.bundle_data_CAB-main"))
	require.NoFileExists(t, filepath.Join(out, "a.bundle_readme.txt"))
}
