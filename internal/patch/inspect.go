// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package patch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/assets"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/backup"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/dump"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/names"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/naming"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/schema"
)

// RecordRow is one listed record.
type RecordRow struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	PathID      int64  `json:"path_id" yaml:"path_id"`
	Size        uint32 `json:"size" yaml:"size"`
	ClassID     int32  `json:"class_id" yaml:"class_id"`
	ScriptIndex uint16 `json:"script_index" yaml:"script_index"`
}

// Detail describes one record in depth.
type Detail struct {
	// Value is the decoded record; nil when no template resolved.
	Value  *schema.Value `json:"-" yaml:"-"`
	Entry  string        `json:"entry,omitempty" yaml:"entry,omitempty"`
	Engine string        `json:"engine,omitempty" yaml:"engine,omitempty"`
	RecordRow
	Decoded bool `json:"decoded" yaml:"decoded"`
}

// row resolves the display row of info.
func (p *Patcher) row(t *target, info assets.RecordInfo) (RecordRow, names.Resolution) {
	root, err := p.Schemas.TemplateFor(t.file, info, t.engine)
	typeName := schema.ClassName(info.ClassID)
	if err != nil {
		root = nil
	} else if root.Type != "" {
		typeName = root.Type
	}

	res := names.ResolveWith(t.file, root, info)
	return RecordRow{
		Name:        res.Name(typeName),
		Type:        typeName,
		PathID:      info.PathID,
		Size:        info.Size,
		ClassID:     info.ClassID,
		ScriptIndex: info.ScriptIndex,
	}, res
}

// List returns one row per record of the container ref addresses.
// ref.PathID is ignored.
func (p *Patcher) List(ctx context.Context, ref RecordRef) ([]RecordRow, error) {
	t, err := openTarget(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()

	records := t.file.Records()
	rows := make([]RecordRow, 0, len(records))
	for _, info := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, _ := p.row(t, info)
		rows = append(rows, row)
	}

	return rows, nil
}

// Search returns the rows whose name or type contains term, ignoring case.
func (p *Patcher) Search(ctx context.Context, ref RecordRef, term string) ([]RecordRow, error) {
	rows, err := p.List(ctx, ref)
	if err != nil {
		return nil, err
	}

	term = strings.ToLower(term)
	out := rows[:0]
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Name), term) || strings.Contains(strings.ToLower(row.Type), term) {
			out = append(out, row)
		}
	}

	return out, nil
}

// Info describes the record ref addresses.
func (p *Patcher) Info(ctx context.Context, ref RecordRef) (*Detail, error) {
	t, err := openTarget(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()

	info, err := t.file.Record(ref.PathID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref.Container, err)
	}

	row, res := p.row(t, info)
	return &Detail{
		RecordRow: row,
		Entry:     t.entry,
		Engine:    t.engine,
		Decoded:   res.IsDecoded(),
		Value:     res.Value(),
	}, nil
}

// DumpRequest selects records to export as dumps.
type DumpRequest struct {
	Ref    RecordRef
	OutDir string
	Mode   dump.Mode
	// PathIDs limits the export; empty exports every decodable record.
	PathIDs []int64
}

// Dump writes one dump per selected record into OutDir, named so that
// PatchFromDump can read the record id back. Records without a template are
// skipped with a warning. It returns the written paths.
func (p *Patcher) Dump(ctx context.Context, req DumpRequest) ([]string, error) {
	t, err := openTarget(ctx, req.Ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()

	records := t.file.Records()
	if len(req.PathIDs) > 0 {
		records = records[:0]
		for _, id := range req.PathIDs {
			info, err := t.file.Record(id)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", req.Ref.Container, err)
			}

			records = append(records, info)
		}
	}

	if err := os.MkdirAll(req.OutDir, 0o750); err != nil {
		return nil, fmt.Errorf("create dump dir: %w", err)
	}

	label := filepath.Base(t.path)
	if t.entry != "" {
		label = t.entry
	}

	mode := req.Mode
	if mode == dump.ModeAuto || mode == "" {
		mode = dump.ModeText
	}

	var written []string
	for _, info := range records {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		row, res := p.row(t, info)
		if !res.IsDecoded() {
			p.logger().Warn("record skipped: no template", zap.String("path", t.path), zap.Int64("path_id", info.PathID))
			continue
		}

		name := naming.AuxiliaryName(bundle.SanitizeFileName(row.Name), bundle.SanitizeFileName(label), info.PathID, mode.Extension())
		out := filepath.Join(req.OutDir, name)
		err := backup.WriteFile(out, func(f *os.File) error {
			return dump.Export(f, res.Value(), mode)
		})
		if err != nil {
			return written, fmt.Errorf("dump record %d: %w", info.PathID, err)
		}

		written = append(written, out)
	}

	return written, nil
}
