// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package patch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/assets"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/backup"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/batch"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/dump"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/instpkg"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/naming"
)

// ApplyOptions control installer package application.
type ApplyOptions struct {
	// OutputDir receives modified files under their package-relative paths.
	// Empty replaces every affected file in place behind its own backup.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	// Cache controls where archives are decompressed while they are patched.
	Cache batch.CacheOptions `json:"cache,omitzero" yaml:"cache,omitempty"`
}

// FileResult is the outcome for one affected file.
type FileResult struct {
	Path   string `json:"path" yaml:"path"`
	Output string `json:"output" yaml:"output"`
	Backup string `json:"backup,omitempty" yaml:"backup,omitempty"`
}

// ApplyReport lists the affected files completed so far.
type ApplyReport struct {
	Package string       `json:"package" yaml:"package"`
	Files   []FileResult `json:"files" yaml:"files"`
}

// ApplyPackage applies pkg to the files below root, in package order. The
// first failing file stops the run; files already written keep their
// outputs and backups.
func (p *Patcher) ApplyPackage(ctx context.Context, pkg *instpkg.Package, root string, opts ApplyOptions) (*ApplyReport, error) {
	report := &ApplyReport{Package: pkg.Name}
	for _, af := range pkg.Files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		rel, err := af.CleanPath()
		if err != nil {
			return report, fmt.Errorf("affected file %q: %w", af.Path, err)
		}

		path := filepath.Join(root, filepath.FromSlash(rel))
		output := backup.OverwriteSentinel
		if opts.OutputDir != "" {
			output = filepath.Join(opts.OutputDir, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
				return report, fmt.Errorf("create output dir: %w", err)
			}
		}

		var res FileResult
		if af.IsArchive {
			res, err = p.applyArchive(ctx, path, output, af, opts.Cache)
		} else {
			res, err = p.applyContainer(path, output, af)
		}
		if err != nil {
			return report, fmt.Errorf("apply %s: %w", rel, err)
		}

		p.logger().Info("package file applied",
			zap.String("package", pkg.Name),
			zap.String("path", res.Path),
			zap.String("output", res.Output),
			zap.String("backup", res.Backup),
		)
		report.Files = append(report.Files, res)
	}

	return report, nil
}

// applyContainer applies the record replacers of af to a standalone container.
func (p *Patcher) applyContainer(path string, output string, af instpkg.AffectedFile) (FileResult, error) {
	f, err := assets.Open(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("%w: %s: %w", ErrContainerRead, path, err)
	}
	defer func() { _ = f.Close() }()

	out, backupPath, err := writeOutput(path, output, naming.ModPath(path), f, func(w *os.File) error {
		if err := f.Write(w, 0, af.Replacers, af.Types); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrContainerWrite, path, err)
		}

		return nil
	})
	if err != nil {
		return FileResult{}, err
	}

	return FileResult{Path: path, Output: out, Backup: backupPath}, nil
}

// applyArchive applies the entry replacers of af to an archive. Container
// replacers are re-anchored on the named entry of the decompressed archive
// and also receive the file-level types of af.
func (p *Patcher) applyArchive(ctx context.Context, path string, output string, af instpkg.AffectedFile, cache batch.CacheOptions) (FileResult, error) {
	a, err := openCachedArchive(ctx, path, cache)
	if err != nil {
		return FileResult{}, err
	}
	defer func() { _ = a.Close() }()

	ed, err := bundle.NewEditor(a.raw, bundle.PackOptions{})
	if err != nil {
		return FileResult{}, fmt.Errorf("%w: %s: %w", ErrContainerRead, path, err)
	}

	changed := make([]string, 0, len(af.Entries))
	for _, rep := range af.Entries {
		changed = append(changed, rep.EntryName())
		switch r := rep.(type) {
		case instpkg.FromFile:
			err = setEntry(ed, a.raw, r.Entry, r.Data)
		case instpkg.FromContainer:
			var data []byte
			data, err = a.patchContainer(r, af.Types)
			if err == nil {
				err = setEntry(ed, a.raw, r.Entry, data)
			}
		case instpkg.Remove:
			err = ed.Delete(r.Entry)
		default:
			err = fmt.Errorf("%w: %T", instpkg.ErrUnknownReplacer, rep)
		}
		if err != nil {
			return FileResult{}, fmt.Errorf("entry %s: %w", rep.EntryName(), err)
		}
	}

	out, backupPath, err := writeOutput(path, output, naming.ModPath(path), a, func(w *os.File) error {
		return a.finish(ctx, w, p.Pack, changed, func(dst io.WriteSeeker) error {
			_, err := ed.Commit(ctx, dst)
			return err
		})
	})
	if err != nil {
		return FileResult{}, err
	}

	return FileResult{Path: path, Output: out, Backup: backupPath}, nil
}

// patchContainer rewrites the record container of r.Source() with r's
// replacers. fileTypes are merged before r.Types, so r's descriptors win.
func (a *archive) patchContainer(r instpkg.FromContainer, fileTypes []assets.TypeInfo) ([]byte, error) {
	f, err := a.openContainer(r.Source())
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf := &bundle.Buffer{}
	types := append(append([]assets.TypeInfo(nil), fileTypes...), r.Types...)
	if err := f.Write(buf, 0, r.Replacers, types); err != nil {
		return nil, fmt.Errorf("%w: entry %s: %w", ErrContainerWrite, r.Source(), err)
	}

	return buf.Bytes(), nil
}

// setEntry replaces name when src has it and adds it otherwise.
func setEntry(ed *bundle.Editor, src *bundle.Reader, name string, data []byte) error {
	if _, err := src.Entry(name); err == nil {
		return ed.ReplaceData(name, data)
	}

	return ed.Add(bundle.BytesBinding(name, data))
}

// BuildRequest describes an installer package built from dump files.
type BuildRequest struct {
	Name        string
	Authors     string
	Description string
	// Root is the install root; Container is relative to it.
	Root      string
	Container string
	// Dumps are auxiliary files named "<anything>-<path id>.<ext>".
	Dumps []string
	Mode  dump.Mode
	// FileID selects the record container inside an archive.
	FileID        int32
	AllowExternal bool
}

// BuildPackage imports every dump of req against its container and returns
// a one-file installer package replaying the changes.
func (p *Patcher) BuildPackage(ctx context.Context, req BuildRequest) (*instpkg.Package, error) {
	af := instpkg.AffectedFile{Path: filepath.ToSlash(req.Container)}
	rel, err := af.CleanPath()
	if err != nil {
		return nil, fmt.Errorf("container %q: %w", req.Container, err)
	}
	af.Path = rel

	t, err := openTarget(ctx, RecordRef{Container: filepath.Join(req.Root, filepath.FromSlash(rel)), FileID: req.FileID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()

	reps := make([]assets.Replacer, 0, len(req.Dumps))
	for _, d := range req.Dumps {
		id, err := naming.ParseRecordID(d)
		if err != nil {
			return nil, err
		}

		data, _, err := p.importDump(t, id, d, req.Mode)
		if err != nil {
			return nil, err
		}

		rep, err := p.replacerFor(t, id, data, Options{AllowExternal: req.AllowExternal})
		if err != nil {
			return nil, err
		}

		reps = append(reps, rep)
	}

	if t.archive == nil {
		af.Replacers = reps
	} else {
		af.IsArchive = true
		af.Entries = []instpkg.EntryReplacer{instpkg.FromContainer{Entry: t.entry, Replacers: reps}}
	}

	return &instpkg.Package{
		Name:        req.Name,
		Authors:     req.Authors,
		Description: req.Description,
		Files:       []instpkg.AffectedFile{af},
	}, nil
}
