// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/backup"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/naming"
)

// ExportDir exports every archive in dir into outDir. A failing archive is
// reported and the batch continues; only context cancellation stops it.
func ExportDir(ctx context.Context, dir string, outDir string, opts Options) ([]Report, error) {
	return runDir(ctx, dir, opts, "export", func(path string) (Report, error) {
		return ExportBundle(ctx, path, outDir, opts)
	})
}

// ImportDir re-imports files from filesDir into every archive in dir.
// A failing archive is reported and the batch continues, except when backup
// slots run out, which stops the batch.
func ImportDir(ctx context.Context, dir string, filesDir string, opts Options) ([]Report, error) {
	return runDir(ctx, dir, opts, "import", func(path string) (Report, error) {
		return ImportBundle(ctx, path, filesDir, opts)
	})
}

// runDir applies one per-archive step to every archive in dir.
func runDir(ctx context.Context, dir string, opts Options, op string, step func(path string) (Report, error)) ([]Report, error) {
	paths, err := ListArchives(dir)
	if err != nil {
		return nil, err
	}

	log := opts.logger()
	reports := make([]Report, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		rep, err := step(path)
		rep.Path = path
		rep.Err = err
		reports = append(reports, rep)

		if err != nil {
			log.Error(op+" failed", zap.String("archive", path), zap.Error(err))
			if errors.Is(err, backup.ErrSlotsExhausted) || errors.Is(err, context.Canceled) {
				return reports, err
			}

			continue
		}

		log.Info(op+" done", zap.String("archive", path), zap.Int("entries", rep.Entries))
	}

	return reports, nil
}

// ExportBundle writes every entry of the archive at path into outDir in
// decompressed form.
func ExportBundle(ctx context.Context, path string, outDir string, opts Options) (rep Report, err error) {
	rep.Path = path

	d, err := OpenDecompressed(ctx, path, opts.Cache())
	if err != nil {
		return rep, err
	}
	defer func() {
		if relErr := d.Close(); relErr != nil && err == nil {
			err = relErr
		}
	}()

	entries, err := opts.Filter.Apply(d.Raw.Entries())
	if err != nil {
		return rep, err
	}

	if err := checkFileNames(path, entries, opts.KeepNames); err != nil {
		return rep, err
	}

	err = d.Raw.Export(ctx, outDir, bundle.ExportOptions{
		Entries: entries,
		FileName: func(e bundle.EntryInfo) string {
			return EntryFileName(path, e.Name, opts.KeepNames)
		},
		OnEntryDone: func(e bundle.EntryInfo, written int64, outPath string) {
			rep.Entries++
			opts.logger().Debug("entry exported",
				zap.String("entry", e.Name),
				zap.String("file", outPath),
				zap.Int64("bytes", written))
		},
	})
	if err != nil {
		return rep, fmt.Errorf("export %s: %w", path, err)
	}

	return rep, nil
}

// ImportBundle replaces every entry of the archive at path that has a
// matching file in filesDir and overwrites the archive. Replaced entries are
// compressed when the archive was compressed on disk; the others keep their
// stored form.
func ImportBundle(ctx context.Context, path string, filesDir string, opts Options) (rep Report, err error) {
	rep.Path = path

	d, err := OpenDecompressed(ctx, path, opts.Cache())
	if err != nil {
		return rep, err
	}

	var sources []io.Closer
	cleanup := func() error {
		var errs []error
		for _, c := range sources {
			errs = append(errs, c.Close())
		}
		sources = nil

		return errors.Join(append(errs, d.Close())...)
	}
	defer func() {
		if relErr := cleanup(); relErr != nil && err == nil {
			err = relErr
		}
	}()

	entries, err := opts.Filter.Apply(d.Raw.Entries())
	if err != nil {
		return rep, err
	}

	bindings, sources, err := bindEntries(entries, path, filesDir, opts.KeepNames)
	if err != nil {
		return rep, err
	}
	rep.Entries = len(bindings)

	tmp := naming.ModPath(path)
	err = backup.WriteFile(tmp, func(f *os.File) error {
		return rewrite(ctx, f, d, bindings, opts.Pack)
	})
	if err != nil {
		return rep, fmt.Errorf("rewrite %s: %w", path, err)
	}

	if err := cleanup(); err != nil {
		_ = os.Remove(tmp)
		return rep, err
	}

	if opts.Backup {
		rep.Backup, err = backup.Swap(path, tmp)
		if err != nil {
			_ = os.Remove(tmp)
			return rep, err
		}

		return rep, nil
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return rep, fmt.Errorf("replace %s: %w", path, err)
	}

	return rep, nil
}

// checkFileNames fails when two entries map to the same external file name.
// Names are compared case-insensitively to match case-folding filesystems.
func checkFileNames(path string, entries []bundle.EntryInfo, keepNames bool) error {
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		key := strings.ToLower(EntryFileName(path, e.Name, keepNames))
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q and %q", ErrNameCollision, prev, e.Name)
		}
		seen[key] = e.Name
	}

	return nil
}

// bindEntries opens the external file of every entry that has one. The
// returned closers own the opened files.
func bindEntries(entries []bundle.EntryInfo, path string, filesDir string, keepNames bool) ([]bundle.Binding, []io.Closer, error) {
	if err := checkFileNames(path, entries, keepNames); err != nil {
		return nil, nil, err
	}

	var (
		bindings []bundle.Binding
		closers  []io.Closer
	)

	for _, e := range entries {
		name := filepath.Join(filesDir, EntryFileName(path, e.Name, keepNames))
		f, err := os.Open(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, closers, fmt.Errorf("open %s: %w", name, err)
		}
		closers = append(closers, f)

		fi, err := f.Stat()
		if err != nil {
			return nil, closers, fmt.Errorf("stat %s: %w", name, err)
		}
		if fi.IsDir() {
			continue
		}

		bindings = append(bindings, bundle.Binding{Name: e.Name, Source: f, Length: fi.Size()})
	}

	return bindings, closers, nil
}

// rewrite writes the decompressed archive with bindings applied to w. When
// the source was compressed, untouched entries keep their stored form and
// bound entries are compressed per pack.
func rewrite(ctx context.Context, w io.WriteSeeker, d *Decompressed, bindings []bundle.Binding, pack bundle.PackOptions) error {
	if !d.Compressed() {
		_, err := bundle.Rewrite(ctx, w, d.Raw, bindings, bundle.PackOptions{})
		return err
	}

	staged := &bundle.Buffer{}
	if _, err := bundle.Rewrite(ctx, staged, d.Raw, bindings, bundle.PackOptions{}); err != nil {
		return err
	}

	packed, err := bundle.NewReaderFromReaderAt(staged, staged.Len())
	if err != nil {
		return err
	}
	defer func() { _ = packed.Close() }()

	changed := make([]string, 0, len(bindings))
	for _, b := range bindings {
		changed = append(changed, b.Name)
	}

	_, err = bundle.RecompressFrom(ctx, packed, d.Source, changed, w, pack)
	return err
}
