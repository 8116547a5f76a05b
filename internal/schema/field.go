// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package schema

import "sort"

// Field is one node of a record field template.
//
// Array nodes (IsArray) carry exactly two children: the element count
// ("size", an int) and the element template ("data").
type Field struct {
	Name     string   `json:"name" yaml:"name"`
	Type     string   `json:"type" yaml:"type"`
	Children []*Field `json:"children,omitempty" yaml:"children,omitempty"`
	// Align pads the stream to a 4-byte boundary after this field.
	Align   bool `json:"align,omitempty" yaml:"align,omitempty"`
	IsArray bool `json:"array,omitempty" yaml:"array,omitempty"`
}

// Child returns the direct child named name, or nil.
func (f *Field) Child(name string) *Field {
	if f == nil {
		return nil
	}

	for _, c := range f.Children {
		if c.Name == name {
			return c
		}
	}

	return nil
}

// Element returns the element template of an array node.
func (f *Field) Element() *Field {
	if f == nil || !f.IsArray || len(f.Children) != 2 {
		return nil
	}

	return f.Children[1]
}

// Kind is the storage kind of a primitive field type.
type Kind uint8

// Primitive storage kinds.
const (
	KindNone Kind = iota
	KindBool
	KindInt8
	KindUInt8
	KindInt16
	KindUInt16
	KindInt32
	KindUInt32
	KindInt64
	KindUInt64
	KindFloat32
	KindFloat64
	KindString
)

// primitiveKinds maps engine type names to their storage kinds.
var primitiveKinds = map[string]Kind{
	"bool":               KindBool,
	"SInt8":              KindInt8,
	"UInt8":              KindUInt8,
	"char":               KindUInt8,
	"unsigned char":      KindUInt8,
	"SInt16":             KindInt16,
	"short":              KindInt16,
	"UInt16":             KindUInt16,
	"unsigned short":     KindUInt16,
	"int":                KindInt32,
	"SInt32":             KindInt32,
	"UInt32":             KindUInt32,
	"unsigned int":       KindUInt32,
	"SInt64":             KindInt64,
	"long long":          KindInt64,
	"UInt64":             KindUInt64,
	"unsigned long long": KindUInt64,
	"FileSize":           KindUInt64,
	"float":              KindFloat32,
	"double":             KindFloat64,
	"string":             KindString,
}

// PrimitiveTypes returns every known primitive type name, longest first.
// Longest-first order lets prefix matching prefer "unsigned int" over "int".
func PrimitiveTypes() []string {
	out := make([]string, 0, len(primitiveKinds))
	for name := range primitiveKinds {
		out = append(out, name)
	}

	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}

		return out[i] < out[j]
	})

	return out
}

// KindOf returns the storage kind of typeName, or KindNone for composite types.
func KindOf(typeName string) Kind {
	return primitiveKinds[typeName]
}

// Size returns the fixed byte size of k; strings and KindNone return 0.
func (k Kind) Size() int {
	switch k {
	case KindBool, KindInt8, KindUInt8:
		return 1
	case KindInt16, KindUInt16:
		return 2
	case KindInt32, KindUInt32, KindFloat32:
		return 4
	case KindInt64, KindUInt64, KindFloat64:
		return 8
	default:
		return 0
	}
}
