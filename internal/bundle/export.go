// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// exportCopyBufferSize defines buffer size for file copy during export.
const exportCopyBufferSize = 64 * 1024

// reservedDOSNames contains case-insensitive reserved Windows device names.
var reservedDOSNames = map[string]struct{}{
	"aux": {}, "con": {}, "nul": {}, "prn": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// Export writes selected entries to dstDir sequentially in decompressed form.
// It stops at the first failing entry.
func (r *Reader) Export(ctx context.Context, dstDir string, opts ExportOptions) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	entries := r.entries
	if opts.Entries != nil {
		entries = opts.Entries
	}

	fileMode := opts.FileMode
	if fileMode == "" {
		fileMode = ExportFileModeTruncate
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	copyBuf := make([]byte, exportCopyBufferSize)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := entry.Name
		if opts.FileName != nil {
			name = opts.FileName(entry)
		}

		relPath, err := normalizeExportPath(name)
		if err != nil {
			return fmt.Errorf("export %s: %w", entry.Name, err)
		}

		outPath := filepath.Join(dstRootAbs, filepath.FromSlash(relPath))
		if dir := filepath.Dir(outPath); dir != dstRootAbs {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("create output directory %s: %w", dir, err)
			}
		}

		written, err := r.exportEntry(entry, outPath, fileMode, copyBuf)
		if err != nil {
			return err
		}

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(entry, written, outPath)
		}
	}

	return nil
}

// exportEntry writes one entry to outPath.
func (r *Reader) exportEntry(entry EntryInfo, outPath string, mode ExportFileMode, copyBuf []byte) (int64, error) {
	rc, err := r.openEntryByInfo(&entry, entry.Name)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	file, err := openExportFile(outPath, mode)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", entry.Name, err)
	}

	written, copyErr := io.CopyBuffer(file, rc, copyBuf)
	closeErr := file.Close()
	if copyErr != nil {
		return written, fmt.Errorf("write %s: %w", entry.Name, copyErr)
	}

	if closeErr != nil {
		return written, fmt.Errorf("close %s: %w", entry.Name, closeErr)
	}

	return written, nil
}

// openExportFile opens output path according to selected export file mode.
func openExportFile(path string, mode ExportFileMode) (*os.File, error) {
	switch mode {
	case ExportFileModeTruncate:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExportFileModeCreateOnly:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	default:
		return nil, fmt.Errorf("unknown export file mode %q", mode)
	}
}

// SanitizeFileName rewrites one name segment into a filesystem-safe file name.
// Path separators are kept as part of the name by turning them into "_".
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimRight(b.String(), ". ")
	if out == "" {
		return "_"
	}

	base := out
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if _, reserved := reservedDOSNames[asciiLower(base)]; reserved {
		out = "_" + out
	}

	return out
}

// normalizeExportPath normalizes an output name and rejects absolute/traversal inputs.
func normalizeExportPath(name string) (string, error) {
	raw := strings.TrimSpace(name)
	if raw == "" || strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExportPath
	}
	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrInvalidExportPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if len(raw) >= 2 && raw[1] == ':' {
		return "", ErrInvalidExportPath
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExportPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}
	if len(cleanParts) == 0 {
		return "", ErrInvalidExportPath
	}

	return strings.Join(cleanParts, `/`), nil
}
