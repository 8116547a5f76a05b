// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package schema

import (
	"encoding/binary"
	"fmt"
	"math"
)

// maxArrayLen bounds decoded array lengths.
const maxArrayLen = 1 << 26

// Value is one decoded node of a record.
type Value struct {
	// Field is the template node the value was decoded with.
	Field *Field
	// Scalar holds primitives: bool, int64, uint64, float64 or string.
	Scalar any
	// Children holds the members of composite nodes.
	Children []*Value
	// Elements holds the items of array nodes.
	Elements []*Value
}

// Get returns the direct child named name, or nil. It is nil-safe.
func (v *Value) Get(name string) *Value {
	if v == nil {
		return nil
	}

	for _, c := range v.Children {
		if c.Field.Name == name {
			return c
		}
	}

	return nil
}

// Path walks nested children by name.
func (v *Value) Path(names ...string) *Value {
	for _, name := range names {
		v = v.Get(name)
	}

	return v
}

// AsString returns the string scalar of v.
func (v *Value) AsString() (string, bool) {
	if v == nil {
		return "", false
	}

	s, ok := v.Scalar.(string)
	return s, ok
}

// AsInt returns an integer scalar of v as int64.
func (v *Value) AsInt() (int64, bool) {
	if v == nil {
		return 0, false
	}

	switch n := v.Scalar.(type) {
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}

		return int64(n), true
	default:
		return 0, false
	}
}

// Decode decodes payload with template root. Trailing bytes are ignored.
func Decode(root *Field, payload []byte) (*Value, error) {
	if root == nil {
		return nil, ErrNoTemplate
	}

	d := valueDecoder{data: payload}
	return d.value(root, 0)
}

type valueDecoder struct {
	data []byte
	pos  int
}

func (d *valueDecoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, fmt.Errorf("%w: need %d bytes at %d", ErrTruncated, n, d.pos)
	}

	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *valueDecoder) align() {
	d.pos = (d.pos + 3) &^ 3
	if d.pos > len(d.data) {
		d.pos = len(d.data)
	}
}

func (d *valueDecoder) value(f *Field, depth int) (*Value, error) {
	if depth > maxDescriptorDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidDescriptor, maxDescriptorDepth)
	}

	v := &Value{Field: f}
	switch {
	case f.IsArray:
		elem := f.Element()
		if elem == nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidArray, f.Name)
		}

		b, err := d.take(4)
		if err != nil {
			return nil, err
		}

		count := int32(binary.LittleEndian.Uint32(b)) //nolint:gosec // stored as signed int
		if count < 0 || count > maxArrayLen {
			return nil, fmt.Errorf("%w: %q length %d", ErrInvalidArray, f.Name, count)
		}

		v.Elements = make([]*Value, 0, min(int(count), 1024))
		for i := int32(0); i < count; i++ {
			item, err := d.value(elem, depth+1)
			if err != nil {
				return nil, err
			}

			v.Elements = append(v.Elements, item)
		}
	case KindOf(f.Type) != KindNone:
		scalar, err := d.scalar(KindOf(f.Type))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}

		v.Scalar = scalar
	default:
		v.Children = make([]*Value, 0, len(f.Children))
		for _, c := range f.Children {
			child, err := d.value(c, depth+1)
			if err != nil {
				return nil, err
			}

			v.Children = append(v.Children, child)
		}
	}

	if f.Align {
		d.align()
	}

	return v, nil
}

func (d *valueDecoder) scalar(k Kind) (any, error) {
	if k == KindString {
		b, err := d.take(4)
		if err != nil {
			return nil, err
		}

		n := int32(binary.LittleEndian.Uint32(b)) //nolint:gosec // stored as signed int
		if n < 0 {
			return nil, fmt.Errorf("%w: negative string length", ErrTruncated)
		}

		s, err := d.take(int(n))
		if err != nil {
			return nil, err
		}

		return string(s), nil
	}

	b, err := d.take(k.Size())
	if err != nil {
		return nil, err
	}

	switch k {
	case KindBool:
		return b[0] != 0, nil
	case KindInt8:
		return int64(int8(b[0])), nil
	case KindUInt8:
		return uint64(b[0]), nil
	case KindInt16:
		return int64(int16(binary.LittleEndian.Uint16(b))), nil //nolint:gosec // two's complement
	case KindUInt16:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case KindInt32:
		return int64(int32(binary.LittleEndian.Uint32(b))), nil //nolint:gosec // two's complement
	case KindUInt32:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case KindInt64:
		return int64(binary.LittleEndian.Uint64(b)), nil //nolint:gosec // two's complement
	case KindUInt64:
		return binary.LittleEndian.Uint64(b), nil
	case KindFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case KindFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	default:
		return nil, fmt.Errorf("unsupported kind %d", k)
	}
}
