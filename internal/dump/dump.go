// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

// Package dump converts editable record dumps to raw record payloads and back.
//
// Two dump forms are supported: the indented plain-text form
// ("<align> <type> <name> [= value]" per line) and a structured JSON form
// walked against a field template.
package dump

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/schema"
)

// Mode selects the dump form.
type Mode string

// Dump modes.
const (
	// ModeAuto picks the mode from the dump file extension.
	ModeAuto Mode = "auto"
	// ModeText is the indented plain-text form.
	ModeText Mode = "txt"
	// ModeJSON is the structured form.
	ModeJSON Mode = "json"
)

var (
	// ErrDumpImportFailed means no dump form could produce record bytes.
	ErrDumpImportFailed = errors.New("dump import failed")
	// ErrUnknownMode means the mode name is not recognized.
	ErrUnknownMode = errors.New("unknown dump mode")
)

// ParseMode converts a command-line mode name. Empty means ModeAuto.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return ModeAuto, nil
	case "txt", "text":
		return ModeText, nil
	case "json":
		return ModeJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// ResolveMode returns the effective mode for path. An explicit mode always
// wins; ModeAuto selects ModeJSON for ".json" files and ModeText otherwise.
func ResolveMode(mode Mode, path string) Mode {
	if mode != ModeAuto && mode != "" {
		return mode
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ModeJSON
	}

	return ModeText
}

// Extension returns the dump file extension of mode, dot included.
func (m Mode) Extension() string {
	if m == ModeJSON {
		return ".json"
	}

	return ".txt"
}

// Request is one dump import.
type Request struct {
	// Template returns the record field template. It is only called for
	// structured imports; a nil func or an error triggers the text fallback.
	Template func() (*schema.Field, error)
	// Source is the dump content.
	Source io.Reader
	// Path is the dump file path used for mode detection.
	Path string
	// Mode is the requested mode.
	Mode Mode
}

// Result is the outcome of a dump import.
type Result struct {
	// Data is the raw record payload.
	Data []byte
	// Mode is the form that produced Data.
	Mode Mode
	// Warnings lists recovered problems, such as a structured import that
	// fell back to plain text.
	Warnings []string
}

// Import converts a dump into record bytes. Structured imports without a
// usable template fall back to plain text with a warning.
func Import(req Request) (*Result, error) {
	if req.Source == nil {
		return nil, fmt.Errorf("%w: no dump source", ErrDumpImportFailed)
	}

	content, err := io.ReadAll(req.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: read dump: %w", ErrDumpImportFailed, err)
	}

	res := &Result{Mode: ResolveMode(req.Mode, req.Path)}
	if res.Mode == ModeJSON {
		template, terr := loadTemplate(req.Template)
		if terr == nil {
			data, err := ImportStructured(template, bytes.NewReader(content))
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrDumpImportFailed, err)
			}

			res.Data = data
			return res, nil
		}

		res.Warnings = append(res.Warnings, fmt.Sprintf("no template for structured import (%v), trying plain text", terr))
		res.Mode = ModeText
	}

	data, err := ImportPlainText(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDumpImportFailed, err)
	}

	res.Data = data
	return res, nil
}

func loadTemplate(fn func() (*schema.Field, error)) (*schema.Field, error) {
	if fn == nil {
		return nil, schema.ErrNoTemplate
	}

	template, err := fn()
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, schema.ErrNoTemplate
	}

	return template, nil
}

// Export writes v in mode form to w. ModeAuto writes plain text.
func Export(w io.Writer, v *schema.Value, mode Mode) error {
	if mode == ModeJSON {
		return ExportStructured(w, v)
	}

	return ExportPlainText(w, v)
}
