// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package names

import (
	"io"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/assets"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/schema"
)

// nameFields are probed in order for a display name.
var nameFields = []string{"m_Name", "name", "Name", "m_GameObject", "m_TextureName", "m_ShaderName"}

// Resolution is the outcome of decoding one record for display. It is either
// Decoded, carrying the structured value, or Fallback, carrying the raw
// record location for heuristic scanning.
type Resolution struct {
	value *schema.Value
	src   io.ReadSeeker
	info  assets.RecordInfo
}

// Decoded wraps a structured value.
func Decoded(v *schema.Value) Resolution {
	return Resolution{value: v}
}

// Fallback wraps the raw bytes of info inside src.
func Fallback(src io.ReadSeeker, info assets.RecordInfo) Resolution {
	return Resolution{src: src, info: info}
}

// IsDecoded reports whether the structured decode succeeded.
func (r Resolution) IsDecoded() bool {
	return r.value != nil
}

// Value returns the decoded value, or nil for fallbacks.
func (r Resolution) Value() *schema.Value {
	return r.value
}

// Name returns the display name, using typeName when nothing better exists.
func (r Resolution) Name(typeName string) string {
	var name string
	switch {
	case r.value != nil:
		name = fromValue(r.value, typeName)
	case r.src != nil:
		name = Scan(r.src, r.info.Offset, int64(r.info.Size), r.info.Tagged, typeName)
	}

	if isBlank(name) {
		return typeName
	}

	return name
}

// Resolve decodes info with provider and falls back to the raw record when no
// template exists or decoding fails.
func Resolve(f *assets.File, provider *schema.Provider, info assets.RecordInfo) Resolution {
	root, err := provider.Template(f, info)
	if err != nil {
		return Fallback(f.ReadSeeker(), info)
	}

	return ResolveWith(f, root, info)
}

// ResolveWith decodes info with an already resolved template. A nil root
// yields a fallback.
func ResolveWith(f *assets.File, root *schema.Field, info assets.RecordInfo) Resolution {
	if root == nil {
		return Fallback(f.ReadSeeker(), info)
	}

	payload, err := f.ReadPayload(info)
	if err != nil {
		return Fallback(f.ReadSeeker(), info)
	}

	v, err := schema.Decode(root, payload)
	if err != nil {
		return Fallback(f.ReadSeeker(), info)
	}

	return Decoded(v)
}

func fromValue(v *schema.Value, typeName string) string {
	for _, field := range nameFields {
		if s, ok := v.Get(field).AsString(); ok && !isBlank(s) {
			return s
		}
	}

	if typeName == "MonoBehaviour" {
		if s, ok := v.Path("m_Script", "m_Name").AsString(); ok {
			return s + " (Script)"
		}
	}

	return typeName
}

func isBlank(s string) bool {
	return s == "" || s == "null" || s == "None"
}

// Truncate shortens s to at most n runes, marking cuts with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n || n < 4 {
		return s
	}

	return string(runes[:n-3]) + "..."
}
