// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// Editor accumulates bundle edit operations and applies them on Commit.
type Editor struct {
	src  *Reader
	ops  []editOperation
	opts PackOptions
}

// editOperation stores one staged editor operation.
type editOperation struct {
	bindings []Binding
	names    []string
	kind     editOperationKind
}

// editOperationKind identifies staged edit action type.
type editOperationKind uint8

const (
	// editOperationAdd appends new entries and fails on existing name.
	editOperationAdd editOperationKind = iota + 1
	// editOperationReplace rewrites existing entries.
	editOperationReplace
	// editOperationDelete removes exact names.
	editOperationDelete
)

// NewEditor creates a staged editor over src. Commit writes the edited bundle
// to a separate destination; src is never modified.
func NewEditor(src *Reader, opts PackOptions) (*Editor, error) {
	if err := src.checkOpen(); err != nil {
		return nil, err
	}

	return &Editor{
		src:  src,
		opts: opts,
		ops:  make([]editOperation, 0, 8),
	}, nil
}

// Add schedules adding new entries and fails on name collision during commit.
func (e *Editor) Add(bindings ...Binding) error {
	return e.stageBindings(editOperationAdd, bindings)
}

// Replace schedules replacing existing entries.
func (e *Editor) Replace(bindings ...Binding) error {
	return e.stageBindings(editOperationReplace, bindings)
}

// ReplaceData schedules replacing name with an in-memory payload.
func (e *Editor) ReplaceData(name string, data []byte) error {
	return e.Replace(BytesBinding(name, data))
}

// Delete schedules exact-name removal.
func (e *Editor) Delete(names ...string) error {
	if e == nil {
		return ErrNilReader
	}

	normalized := make([]string, 0, len(names))
	for _, raw := range names {
		name, err := canonicalEntryName(raw)
		if err != nil {
			return err
		}

		normalized = append(normalized, name)
	}

	if len(normalized) == 0 {
		return nil
	}

	e.ops = append(e.ops, editOperation{kind: editOperationDelete, names: normalized})
	return nil
}

// Pending reports whether any operation is staged.
func (e *Editor) Pending() bool {
	return e != nil && len(e.ops) > 0
}

// Commit applies all staged operations in one rewrite to out.
func (e *Editor) Commit(ctx context.Context, out io.WriteSeeker) (*PackResult, error) {
	if e == nil {
		return nil, ErrNilReader
	}

	if err := e.src.checkOpen(); err != nil {
		return nil, err
	}

	plan, err := buildEditPlan(e.src.entries, e.ops)
	if err != nil {
		return nil, err
	}

	opts := e.opts
	if len(opts.Headers) == 0 {
		opts.Headers = e.src.Headers()
	}

	return rewriteBundle(ctx, out, e.src, plan, opts)
}

// BytesBinding binds name to an in-memory payload.
func BytesBinding(name string, data []byte) Binding {
	return Binding{
		Source: bytes.NewReader(data),
		Name:   name,
		Length: int64(len(data)),
	}
}

// stageBindings validates and stores one add/replace operation.
func (e *Editor) stageBindings(kind editOperationKind, bindings []Binding) error {
	if e == nil {
		return ErrNilReader
	}

	normalized := make([]Binding, 0, len(bindings))
	for _, b := range bindings {
		if b.Source == nil || b.Offset < 0 || b.Length < 0 {
			return fmt.Errorf("%w: %q", ErrInvalidBinding, b.Name)
		}

		name, err := canonicalEntryName(b.Name)
		if err != nil {
			return err
		}

		b.Name = name
		normalized = append(normalized, b)
	}

	if len(normalized) == 0 {
		return nil
	}

	e.ops = append(e.ops, editOperation{kind: kind, bindings: normalized})
	return nil
}

// buildEditPlan applies staged operations to source entries and builds the
// final write plan. Source order is kept; added entries follow in staging order.
func buildEditPlan(sourceEntries []EntryInfo, ops []editOperation) ([]rewriteEntry, error) {
	order := make([]string, 0, len(sourceEntries))
	state := make(map[string]rewriteEntry, len(sourceEntries))
	for i := range sourceEntries {
		key := entryKey(sourceEntries[i].Name)
		if _, exists := state[key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateEntryName, sourceEntries[i].Name)
		}

		entry := sourceEntries[i]
		state[key] = rewriteEntry{name: entry.Name, source: &entry}
		order = append(order, key)
	}

	for _, op := range ops {
		switch op.kind {
		case editOperationAdd:
			for _, b := range op.bindings {
				key := entryKey(b.Name)
				if _, exists := state[key]; exists {
					return nil, fmt.Errorf("%w: %q", ErrDuplicateEntryName, b.Name)
				}

				item := b
				state[key] = rewriteEntry{name: item.Name, binding: &item}
				order = append(order, key)
			}
		case editOperationReplace:
			for _, b := range op.bindings {
				key := entryKey(b.Name)
				current, exists := state[key]
				if !exists {
					return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, b.Name)
				}

				item := b
				state[key] = rewriteEntry{name: current.name, binding: &item}
			}
		case editOperationDelete:
			for _, name := range op.names {
				delete(state, entryKey(name))
			}
		default:
			return nil, fmt.Errorf("unknown edit operation kind: %d", op.kind)
		}
	}

	plan := make([]rewriteEntry, 0, len(state))
	for _, key := range order {
		item, ok := state[key]
		if !ok {
			continue
		}

		plan = append(plan, item)
		// A deleted then re-added name appears twice in order.
		delete(state, key)
	}

	return plan, nil
}
