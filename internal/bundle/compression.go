// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/woozymasta/lzss"
	"github.com/woozymasta/pathrules"
)

// compressMatcher holds compiled allow-list rules for compression.
type compressMatcher struct {
	matcher *pathrules.Matcher
}

// newCompressMatcher compiles compression rules.
func newCompressMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*compressMatcher, error) {
	rules = normalizeCompressRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidCompressPattern, err)
	}

	return &compressMatcher{matcher: matcher}, nil
}

// normalizeCompressRules normalizes rule patterns and drops empty patterns.
func normalizeCompressRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizeNameForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether name is included by the compress rules.
func (m *compressMatcher) Match(name string) bool {
	if m == nil || m.matcher == nil {
		return false
	}

	candidate := NormalizeName(name)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// shouldCompress returns true if name and size pass compression policy.
func shouldCompress(opts PackOptions, matcher *compressMatcher, name string, size int64) bool {
	if size > int64(opts.MaxCompressSize) || size < int64(opts.MinCompressSize) {
		return false
	}

	return matcher.Match(name)
}

// compressPayload compresses data with scheme. The bool result is false when
// the compressed form would not be smaller and data must be stored raw.
func compressPayload(scheme Scheme, data []byte) ([]byte, bool, error) {
	var (
		out []byte
		err error
	)

	switch scheme {
	case SchemeLZSS:
		out, err = lzss.Compress(data, lzss.DefaultCompressOptions())
		if err != nil {
			return nil, false, err
		}
	case SchemeLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, false, err
		}
		// Zero means the block is incompressible.
		if n == 0 {
			return nil, false, nil
		}

		out = buf[:n]
	default:
		return nil, false, fmt.Errorf("%w: %d", ErrUnknownScheme, scheme)
	}

	if len(out) >= len(data) {
		return nil, false, nil
	}

	return out, true, nil
}

// decompressPayload writes the decompressed form of a stored payload into dst.
func decompressPayload(dst io.Writer, src io.Reader, scheme Scheme, originalSize int, storedSize int) error {
	switch scheme {
	case SchemeNone:
		_, err := io.Copy(dst, src)
		return err
	case SchemeLZSS:
		_, err := lzss.DecompressToWriter(dst, src, originalSize, nil)
		return err
	case SchemeLZ4:
		packed := make([]byte, storedSize)
		if _, err := io.ReadFull(src, packed); err != nil {
			return err
		}

		out := make([]byte, originalSize)
		n, err := lz4.UncompressBlock(packed, out)
		if err != nil {
			return err
		}
		if n != originalSize {
			return fmt.Errorf("lz4 block size %d, want %d", n, originalSize)
		}

		_, err = io.Copy(dst, bytes.NewReader(out))
		return err
	default:
		return fmt.Errorf("%w: %d", ErrUnknownScheme, scheme)
	}
}
