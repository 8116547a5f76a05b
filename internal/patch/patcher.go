// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

// Package patch applies record replacements to standalone record containers
// and to record containers stored inside archives.
//
// Every operation builds an ordered replacer list, performs exactly one
// container rewrite and writes the result either to a separate output file or,
// for the "overwrite" output, to a temporary file that is swapped into place
// behind a numbered backup.
package patch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/assets"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/backup"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/dump"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/naming"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/schema"
)

// externalRefFields are the value paths that point record payloads at
// external resource files.
var externalRefFields = [][]string{
	{"m_StreamData", "path"},
	{"m_ExternalResources", "m_Source"},
	{"m_Resource", "m_Source"},
}

// RecordRef addresses one record. For archives FileID selects the record
// container entry (0 is the first); it is ignored for standalone containers.
type RecordRef struct {
	Container string `json:"container" yaml:"container"`
	PathID    int64  `json:"path_id" yaml:"path_id"`
	FileID    int32  `json:"file_id,omitempty" yaml:"file_id,omitempty"`
}

// Options control where a patch is written.
type Options struct {
	// Output is the output path. Empty writes "<container>.patch"; the
	// "overwrite" sentinel replaces the container behind a numbered backup.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
	// AllowExternal permits patching records whose payload lives in an
	// external resource file. The new payload is stored inline.
	AllowExternal bool `json:"allow_external,omitempty" yaml:"allow_external,omitempty"`
}

// Outcome describes one completed patch.
type Outcome struct {
	Container string `json:"container" yaml:"container"`
	// Entry is the archive entry holding the patched container.
	Entry  string `json:"entry,omitempty" yaml:"entry,omitempty"`
	Output string `json:"output" yaml:"output"`
	// Backup is set when the container was replaced in place.
	Backup   string   `json:"backup,omitempty" yaml:"backup,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	PathID   int64    `json:"path_id" yaml:"path_id"`
}

// Patcher drives container rewrites.
type Patcher struct {
	// Schemas resolves record templates; nil limits lookups to type trees.
	Schemas *schema.Provider
	// Log receives progress events; nil disables logging.
	Log *zap.Logger
	// Pack configures recompression of archives that were compressed on disk.
	Pack bundle.PackOptions
}

func (p *Patcher) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}

	return p.Log
}

// PatchSingleRecord replaces the payload of ref with data.
func (p *Patcher) PatchSingleRecord(ctx context.Context, ref RecordRef, data []byte, opts Options) (*Outcome, error) {
	t, err := openTarget(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()

	rep, err := p.replacerFor(t, ref.PathID, data, opts)
	if err != nil {
		return nil, err
	}

	return p.commit(ctx, t, ref, []assets.Replacer{rep}, opts)
}

// PatchFromDump imports the dump at dumpPath and replaces the payload of ref
// with the result. Structured imports fall back to plain text with a warning
// when the record has no template.
func (p *Patcher) PatchFromDump(ctx context.Context, ref RecordRef, dumpPath string, mode dump.Mode, opts Options) (*Outcome, error) {
	t, err := openTarget(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()

	data, warnings, err := p.importDump(t, ref.PathID, dumpPath, mode)
	if err != nil {
		return nil, err
	}

	rep, err := p.replacerFor(t, ref.PathID, data, opts)
	if err != nil {
		return nil, err
	}

	out, err := p.commit(ctx, t, ref, []assets.Replacer{rep}, opts)
	if err != nil {
		return nil, err
	}

	out.Warnings = warnings
	return out, nil
}

// importDump converts the dump at dumpPath for record pathID of t.
func (p *Patcher) importDump(t *target, pathID int64, dumpPath string, mode dump.Mode) ([]byte, []string, error) {
	info, err := t.file.Record(pathID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(dumpPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open dump: %w", err)
	}
	defer func() { _ = f.Close() }()

	res, err := dump.Import(dump.Request{
		Source: f,
		Path:   dumpPath,
		Mode:   mode,
		Template: func() (*schema.Field, error) {
			return p.Schemas.TemplateFor(t.file, info, t.engine)
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("record %d from %s: %w", pathID, dumpPath, err)
	}

	for _, w := range res.Warnings {
		p.logger().Warn(w, zap.String("dump", dumpPath), zap.Int64("path_id", pathID))
	}

	return res.Data, res.Warnings, nil
}

// replacerFor builds the replacer of record pathID. The type is taken from
// the container's own type table slot of the record.
func (p *Patcher) replacerFor(t *target, pathID int64, data []byte, opts Options) (assets.Replacer, error) {
	info, err := t.file.Record(pathID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.path, err)
	}

	if !opts.AllowExternal {
		if err := p.checkExternal(t, info); err != nil {
			return nil, err
		}
	}

	typ, err := t.file.TypeOf(info)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrContainerRead, t.path, err)
	}

	return assets.ReplacerFromMemory{
		PathID:      pathID,
		ClassID:     typ.ClassID,
		ScriptIndex: typ.ScriptIndex,
		Data:        data,
	}, nil
}

// checkExternal fails when the decoded record points at an external
// resource. Records that cannot be decoded are treated as inline.
func (p *Patcher) checkExternal(t *target, info assets.RecordInfo) error {
	root, err := p.Schemas.TemplateFor(t.file, info, t.engine)
	if err != nil {
		return nil
	}

	payload, err := t.file.ReadPayload(info)
	if err != nil {
		return nil
	}

	v, err := schema.Decode(root, payload)
	if err != nil {
		return nil
	}

	for _, path := range externalRefFields {
		if s, ok := v.Path(path...).AsString(); ok && s != "" {
			return fmt.Errorf("%w: record %d uses %q", ErrExternalResource, info.PathID, s)
		}
	}

	return nil
}

// commit rewrites t with reps and writes the result per opts.
func (p *Patcher) commit(ctx context.Context, t *target, ref RecordRef, reps []assets.Replacer, opts Options) (*Outcome, error) {
	write := func(w *os.File) error {
		return p.writeTarget(ctx, t, reps, w)
	}

	output, backupPath, err := writeOutput(t.path, opts.Output, naming.PatchPath(t.path), t, write)
	if err != nil {
		return nil, err
	}

	p.logger().Info("record patched",
		zap.String("path", t.path),
		zap.String("entry", t.entry),
		zap.Int64("path_id", ref.PathID),
		zap.String("output", output),
		zap.String("backup", backupPath),
	)

	return &Outcome{
		Container: t.path,
		Entry:     t.entry,
		Output:    output,
		Backup:    backupPath,
		PathID:    ref.PathID,
	}, nil
}

// writeTarget writes the rewritten container, or the archive holding it, to w.
func (p *Patcher) writeTarget(ctx context.Context, t *target, reps []assets.Replacer, w io.WriteSeeker) error {
	if t.archive == nil {
		if err := t.file.Write(w, 0, reps, nil); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrContainerWrite, t.path, err)
		}

		return nil
	}

	patched := &bundle.Buffer{}
	if err := t.file.Write(patched, 0, reps, nil); err != nil {
		return fmt.Errorf("%w: %s entry %s: %w", ErrContainerWrite, t.path, t.entry, err)
	}

	binding := bundle.Binding{Name: t.entry, Source: patched, Length: patched.Len()}
	return t.archive.finish(ctx, w, p.Pack, []string{t.entry}, func(out io.WriteSeeker) error {
		_, err := bundle.Rewrite(ctx, out, t.archive.raw, []bundle.Binding{binding}, bundle.PackOptions{})
		return err
	})
}

// finish runs write against the decompressed archive form. Archives that
// were compressed on disk are written to w with the changed entries
// compressed per pack and every other entry in its stored form; others are
// written as is.
func (a *archive) finish(ctx context.Context, w io.WriteSeeker, pack bundle.PackOptions, changed []string, write func(out io.WriteSeeker) error) error {
	if !a.compressed {
		if err := write(w); err != nil {
			return fmt.Errorf("%w: %w", ErrContainerWrite, err)
		}

		return nil
	}

	staged := &bundle.Buffer{}
	if err := write(staged); err != nil {
		return fmt.Errorf("%w: %w", ErrContainerWrite, err)
	}

	out, err := bundle.NewReaderFromReaderAt(staged, staged.Len())
	if err != nil {
		return fmt.Errorf("%w: reopen rewritten archive: %w", ErrContainerWrite, err)
	}
	defer func() { _ = out.Close() }()

	if _, err := bundle.RecompressFrom(ctx, out, a.src, changed, w, pack); err != nil {
		return fmt.Errorf("%w: recompress: %w", ErrContainerWrite, err)
	}

	return nil
}

// writeOutput writes the new content of path. A regular output is written
// atomically through a temporary file. The overwrite sentinel writes tmp,
// releases the source, then swaps tmp into place behind a backup. It returns
// the written path and the backup path.
func writeOutput(path string, output string, tmp string, release io.Closer, write func(f *os.File) error) (string, string, error) {
	if !backup.IsOverwrite(output) {
		if output == "" {
			output = naming.PatchPath(path)
		}

		if err := backup.WriteFile(output, write); err != nil {
			return "", "", wrapWrite(err)
		}

		return output, "", nil
	}

	if err := backup.WriteFile(tmp, write); err != nil {
		return "", "", wrapWrite(err)
	}

	if err := release.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", "", fmt.Errorf("close %s: %w", path, err)
	}

	backupPath, err := backup.Swap(path, tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return "", "", err
	}

	return path, backupPath, nil
}

func wrapWrite(err error) error {
	if errors.Is(err, ErrContainerWrite) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrContainerWrite, err)
}
