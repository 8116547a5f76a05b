// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"fmt"
	"path"
	"strings"
)

// NormalizeName converts an entry name to normalized slash-separated form.
// It trims spaces, accepts both "/" and "\", removes leading "./" and "/", and cleans "." segments.
func NormalizeName(raw string) string {
	raw = normalizeNameForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// normalizeNameForMatching normalizes user/input names for matcher use.
func normalizeNameForMatching(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, `\`, `/`)
	name = strings.TrimPrefix(name, "./")
	return name
}

// canonicalEntryName validates an entry name and returns its canonical form.
func canonicalEntryName(raw string) (string, error) {
	name := NormalizeName(raw)
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryName, raw)
	}
	if len(name) > maxNameLen {
		return "", fmt.Errorf("%w: %q", ErrEntryNameTooLong, raw)
	}

	return name, nil
}

// entryKey returns the map key used for entry name lookups.
func entryKey(name string) string {
	return NormalizeName(name)
}
