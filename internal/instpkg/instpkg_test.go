// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package instpkg

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/assets"
)

func samplePackage() *Package {
	return &Package{
		Name:        "Bigger Lamps",
		Authors:     "modder",
		Description: "Doubles lamp radius",
		Files: []AffectedFile{
			{
				Path: "Data/level0",
				Types: []assets.TypeInfo{
					{ClassID: 114, ScriptIndex: 2, Descriptor: []byte{1, 2, 3}},
				},
				Replacers: []assets.Replacer{
					assets.ReplacerFromMemory{PathID: 7, ClassID: 114, ScriptIndex: 2, Data: []byte("lamp")},
					assets.Remover{PathID: 9},
				},
			},
			{
				Path:      "Data/lamps.bundle",
				IsArchive: true,
				Types: []assets.TypeInfo{
					{ClassID: 115, ScriptIndex: assets.NoScript, Descriptor: []byte{4, 5}},
				},
				Entries: []EntryReplacer{
					FromFile{Entry: "readme.txt", Data: []byte("hello")},
					FromContainer{
						Entry:         "CAB-1",
						OriginalEntry: "CAB-0",
						Replacers: []assets.Replacer{
							assets.ReplacerFromMemory{PathID: -3, ClassID: 49, ScriptIndex: assets.NoScript, Data: []byte{0}},
						},
					},
					Remove{Entry: "old.bin"},
				},
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, samplePackage()))
	require.Equal(t, Magic[:], buf.Bytes()[:4])

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, samplePackage(), got)
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mod.emip")
	require.NoError(t, WriteFile(path, samplePackage()))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "Bigger Lamps", got.Name)
	require.Len(t, got.Files, 2)
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	_, err := Read(bytes.NewReader([]byte("NOPE")))
	require.ErrorIs(t, err, ErrInvalidHeader)

	_, err = Read(bytes.NewReader([]byte("EMIP\x09\x00\x00\x00")))
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, samplePackage()))
	_, err = Read(bytes.NewReader(buf.Bytes()[:buf.Len()-3]))
	require.Error(t, err)

	pkg := &Package{Files: []AffectedFile{{Path: "a", Replacers: []assets.Replacer{badReplacer{}}}}}
	require.ErrorIs(t, Write(&bytes.Buffer{}, pkg), ErrUnknownReplacer)
}

type badReplacer struct{}

func (badReplacer) Target() int64 { return 0 }

func TestCleanPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{in: "Data/level0", want: "Data/level0"},
		{in: `Data\sub\..\level1`, want: "Data/level1"},
		{in: "./resources.assets", want: "resources.assets"},
		{in: "", err: true},
		{in: "/etc/passwd", err: true},
		{in: `C:\game\level0`, err: true},
		{in: "../outside", err: true},
		{in: "Data/../../outside", err: true},
	}

	for _, tt := range tests {
		got, err := AffectedFile{Path: tt.in}.CleanPath()
		if tt.err {
			require.ErrorIs(t, err, ErrUnsafePath, tt.in)
			continue
		}

		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got)
	}

	require.Equal(t, "CAB-0", FromContainer{Entry: "CAB-1", OriginalEntry: "CAB-0"}.Source())
	require.Equal(t, "CAB-1", FromContainer{Entry: "CAB-1"}.Source())
}
