// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package schema

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AppendScalar parses the text literal of a primitive of kind k and appends its
// stored form to dst. String literals are taken verbatim.
func AppendScalar(dst []byte, k Kind, text string) ([]byte, error) {
	switch k {
	case KindBool:
		b, err := parseBool(text)
		if err != nil {
			return nil, err
		}
		if b {
			return append(dst, 1), nil
		}

		return append(dst, 0), nil
	case KindInt8, KindInt16, KindInt32, KindInt64:
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, k.Size()*8)
		if err != nil {
			return nil, fmt.Errorf("parse integer %q: %w", text, err)
		}

		return appendUint(dst, uint64(n), k.Size()), nil //nolint:gosec // two's complement
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		n, err := strconv.ParseUint(strings.TrimSpace(text), 10, k.Size()*8)
		if err != nil {
			return nil, fmt.Errorf("parse unsigned integer %q: %w", text, err)
		}

		return appendUint(dst, n, k.Size()), nil
	case KindFloat32:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 32)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", text, err)
		}

		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(f))), nil
	case KindFloat64:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("parse double %q: %w", text, err)
		}

		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(f)), nil
	case KindString:
		if len(text) > math.MaxInt32 {
			return nil, fmt.Errorf("string of %d bytes is too long", len(text))
		}

		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(text))) //nolint:gosec // checked above
		return append(dst, text...), nil
	default:
		return nil, fmt.Errorf("kind %d is not a primitive", k)
	}
}

// AppendArrayLen appends an array element count.
func AppendArrayLen(dst []byte, n int) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(int32(n))) //nolint:gosec // bounded by callers
}

// AlignBytes pads dst with zeros to a 4-byte boundary.
func AlignBytes(dst []byte) []byte {
	for len(dst)%4 != 0 {
		dst = append(dst, 0)
	}

	return dst
}

// FormatScalar formats a decoded scalar as a text literal accepted by AppendScalar.
func FormatScalar(k Kind, v any) string {
	switch s := v.(type) {
	case bool:
		return strconv.FormatBool(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	case float64:
		if k == KindFloat32 {
			return strconv.FormatFloat(s, 'g', -1, 32)
		}

		return strconv.FormatFloat(s, 'g', -1, 64)
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

func parseBool(text string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("parse bool %q", text)
	}
}

func appendUint(dst []byte, v uint64, size int) []byte {
	switch size {
	case 1:
		return append(dst, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(dst, uint16(v))
	case 4:
		return binary.LittleEndian.AppendUint32(dst, uint32(v))
	default:
		return binary.LittleEndian.AppendUint64(dst, v)
	}
}
