// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package dump

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/schema"
)

var (
	// ErrMissingField means a structured dump lacks a field the template requires.
	ErrMissingField = errors.New("missing field")
	// ErrFieldType means a structured dump value has the wrong JSON type.
	ErrFieldType = errors.New("unexpected value type")
)

// ImportStructured converts a JSON dump into record bytes by walking template.
// Composite fields are JSON objects keyed by field name; arrays are JSON
// arrays or objects of the form {"Array": [...]}. Unknown keys are ignored.
func ImportStructured(template *schema.Field, r io.Reader) ([]byte, error) {
	if template == nil {
		return nil, schema.ErrNoTemplate
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse json dump: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("parse json dump: trailing data after document")
	}

	return appendJSONField(nil, template, doc, template.Name)
}

func appendJSONField(dst []byte, f *schema.Field, v any, path string) ([]byte, error) {
	var err error
	kind := schema.KindOf(f.Type)

	switch {
	case f.IsArray:
		elem := f.Element()
		if elem == nil {
			return nil, fmt.Errorf("%w: %s", schema.ErrInvalidArray, path)
		}

		items, ok := jsonArray(v)
		if !ok {
			return nil, fmt.Errorf("%w: %s: want array, got %T", ErrFieldType, path, v)
		}

		dst = schema.AppendArrayLen(dst, len(items))
		for i, item := range items {
			dst, err = appendJSONField(dst, elem, item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
		}
	case kind != schema.KindNone:
		text, err := jsonScalarText(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		dst, err = schema.AppendScalar(dst, kind, text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s: want object, got %T", ErrFieldType, path, v)
		}

		for _, c := range f.Children {
			cv, ok := obj[c.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrMissingField, path, c.Name)
			}

			dst, err = appendJSONField(dst, c, cv, path+"."+c.Name)
			if err != nil {
				return nil, err
			}
		}
	}

	if f.Align {
		dst = schema.AlignBytes(dst)
	}

	return dst, nil
}

func jsonArray(v any) ([]any, bool) {
	switch a := v.(type) {
	case []any:
		return a, true
	case map[string]any:
		items, ok := a["Array"].([]any)
		return items, ok
	default:
		return nil, false
	}
}

func jsonScalarText(v any) (string, error) {
	switch s := v.(type) {
	case bool:
		return strconv.FormatBool(s), nil
	case json.Number:
		return s.String(), nil
	case string:
		return s, nil
	default:
		return "", fmt.Errorf("%w: want scalar, got %T", ErrFieldType, v)
	}
}

// ExportStructured writes v as an indented JSON dump accepted by
// ImportStructured. Object keys keep template order.
func ExportStructured(w io.Writer, v *schema.Value) error {
	if v == nil || v.Field == nil {
		return schema.ErrNoTemplate
	}

	compact, err := appendJSONValue(nil, v)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return fmt.Errorf("format json dump: %w", err)
	}
	out.WriteByte('\n')

	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}

	return nil
}

func appendJSONValue(dst []byte, v *schema.Value) ([]byte, error) {
	var err error
	f := v.Field
	kind := schema.KindOf(f.Type)

	switch {
	case f.IsArray:
		dst = append(dst, '[')
		for i, e := range v.Elements {
			if i > 0 {
				dst = append(dst, ',')
			}

			dst, err = appendJSONValue(dst, e)
			if err != nil {
				return nil, err
			}
		}

		return append(dst, ']'), nil
	case kind != schema.KindNone:
		return appendJSONScalar(dst, kind, v.Scalar)
	default:
		dst = append(dst, '{')
		for i, c := range v.Children {
			if i > 0 {
				dst = append(dst, ',')
			}

			dst, err = appendJSONString(dst, c.Field.Name)
			if err != nil {
				return nil, err
			}
			dst = append(dst, ':')
			dst, err = appendJSONValue(dst, c)
			if err != nil {
				return nil, err
			}
		}

		return append(dst, '}'), nil
	}
}

func appendJSONScalar(dst []byte, kind schema.Kind, v any) ([]byte, error) {
	switch s := v.(type) {
	case bool:
		return strconv.AppendBool(dst, s), nil
	case int64:
		return strconv.AppendInt(dst, s, 10), nil
	case uint64:
		return strconv.AppendUint(dst, s, 10), nil
	case float64:
		if math.IsNaN(s) || math.IsInf(s, 0) {
			// JSON has no literal for these; ParseFloat accepts the quoted form.
			return appendJSONString(dst, schema.FormatScalar(kind, s))
		}

		return append(dst, schema.FormatScalar(kind, s)...), nil
	case string:
		return appendJSONString(dst, s)
	default:
		return nil, fmt.Errorf("%w: scalar %T", ErrFieldType, v)
	}
}

func appendJSONString(dst []byte, s string) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode string: %w", err)
	}

	return append(dst, b...), nil
}
