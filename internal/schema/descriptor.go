// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package schema

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// maxDescriptorDepth bounds template nesting on decode.
	maxDescriptorDepth = 64

	descriptorFlagAlign = 1 << 0
	descriptorFlagArray = 1 << 1
)

// MarshalDescriptor serializes a field template into its type tree form.
//
// Each node is: u8 flags, u16 name length, name, u16 type length, type,
// u16 child count, children.
func MarshalDescriptor(root *Field) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil template", ErrInvalidDescriptor)
	}

	return appendField(nil, root, 0)
}

func appendField(dst []byte, f *Field, depth int) ([]byte, error) {
	if depth > maxDescriptorDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidDescriptor, maxDescriptorDepth)
	}
	if len(f.Name) > math.MaxUint16 || len(f.Type) > math.MaxUint16 || len(f.Children) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: field %q too large", ErrInvalidDescriptor, f.Name)
	}

	var flags byte
	if f.Align {
		flags |= descriptorFlagAlign
	}
	if f.IsArray {
		flags |= descriptorFlagArray
	}

	dst = append(dst, flags)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(f.Name)))
	dst = append(dst, f.Name...)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(f.Type)))
	dst = append(dst, f.Type...)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(f.Children)))

	var err error
	for _, c := range f.Children {
		if dst, err = appendField(dst, c, depth+1); err != nil {
			return nil, err
		}
	}

	return dst, nil
}

// UnmarshalDescriptor parses a type tree descriptor produced by MarshalDescriptor.
func UnmarshalDescriptor(data []byte) (*Field, error) {
	d := descriptorDecoder{data: data}
	f, err := d.field(0)
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidDescriptor, len(d.data)-d.pos)
	}

	return f, nil
}

type descriptorDecoder struct {
	data []byte
	pos  int
}

func (d *descriptorDecoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, fmt.Errorf("%w: short read at %d", ErrInvalidDescriptor, d.pos)
	}

	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *descriptorDecoder) u16() (int, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}

	return int(binary.LittleEndian.Uint16(b)), nil
}

func (d *descriptorDecoder) str() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}

	b, err := d.take(n)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func (d *descriptorDecoder) field(depth int) (*Field, error) {
	if depth > maxDescriptorDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidDescriptor, maxDescriptorDepth)
	}

	flags, err := d.take(1)
	if err != nil {
		return nil, err
	}

	f := &Field{
		Align:   flags[0]&descriptorFlagAlign != 0,
		IsArray: flags[0]&descriptorFlagArray != 0,
	}
	if f.Name, err = d.str(); err != nil {
		return nil, err
	}
	if f.Type, err = d.str(); err != nil {
		return nil, err
	}

	count, err := d.u16()
	if err != nil {
		return nil, err
	}

	if count > 0 {
		f.Children = make([]*Field, 0, count)
	}
	for i := 0; i < count; i++ {
		c, err := d.field(depth + 1)
		if err != nil {
			return nil, err
		}

		f.Children = append(f.Children, c)
	}

	if f.IsArray && len(f.Children) != 2 {
		return nil, fmt.Errorf("%w: array %q has %d children", ErrInvalidDescriptor, f.Name, len(f.Children))
	}

	return f, nil
}
