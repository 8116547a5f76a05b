// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/woozymasta/pathrules"
)

type testEntry struct {
	name string
	data []byte
}

var testModTime = time.Unix(1700000000, 0)

func testInputs(entries []testEntry) []Input {
	inputs := make([]Input, 0, len(entries))
	for _, e := range entries {
		data := e.data
		inputs = append(inputs, Input{
			Name:     e.name,
			ModTime:  testModTime,
			SizeHint: int64(len(data)),
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(data)), nil
			},
		})
	}

	return inputs
}

// packTestBundle packs entries into memory and returns a reader over the result.
func packTestBundle(t *testing.T, entries []testEntry, opts PackOptions) (*Reader, *Buffer) {
	t.Helper()

	if len(opts.Headers) == 0 {
		opts.Headers = []HeaderPair{{Key: HeaderEngineVersion, Value: "2021.3.4f1"}}
	}

	var buf Buffer
	if _, err := Pack(context.Background(), &buf, testInputs(entries), opts); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	r, err := NewReaderFromReaderAt(&buf, buf.Len())
	if err != nil {
		t.Fatalf("NewReaderFromReaderAt: %v", err)
	}

	return r, &buf
}

func reopen(t *testing.T, buf *Buffer) *Reader {
	t.Helper()

	r, err := NewReaderFromReaderAt(buf, buf.Len())
	if err != nil {
		t.Fatalf("NewReaderFromReaderAt: %v", err)
	}

	return r
}

func includeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: p})
	}

	return rules
}

func mustReadEntry(t *testing.T, r *Reader, name string) []byte {
	t.Helper()

	data, err := r.ReadEntry(name)
	if err != nil {
		t.Fatalf("ReadEntry(%s): %v", name, err)
	}

	return data
}
