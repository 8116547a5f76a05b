// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package patch

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/assets"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/schema"
)

const testEngine = "2021.3.4f1"

type testRecord struct {
	data    []byte
	pathID  int64
	classID int32
}

func textAssetTemplate() *schema.Field {
	return &schema.Field{Name: "Base", Type: "TextAsset", Children: []*schema.Field{
		{Name: "m_Name", Type: "string", Align: true},
		{Name: "m_Script", Type: "string", Align: true},
	}}
}

func textureTemplate() *schema.Field {
	return &schema.Field{Name: "Base", Type: "Texture2D", Children: []*schema.Field{
		{Name: "m_Name", Type: "string", Align: true},
		{Name: "m_StreamData", Type: "StreamingInfo", Children: []*schema.Field{
			{Name: "offset", Type: "UInt64"},
			{Name: "size", Type: "unsigned int"},
			{Name: "path", Type: "string", Align: true},
		}},
	}}
}

func appendAlignedString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
	b = append(b, s...)
	return schema.AlignBytes(b)
}

func textAsset(name string, script string) []byte {
	return appendAlignedString(appendAlignedString(nil, name), script)
}

func texture(name string, streamPath string) []byte {
	b := appendAlignedString(nil, name)
	b = binary.LittleEndian.AppendUint64(b, 0)
	b = binary.LittleEndian.AppendUint32(b, 16)
	return appendAlignedString(b, streamPath)
}

func typeTable(t *testing.T) []assets.TypeInfo {
	t.Helper()

	textDesc, err := schema.MarshalDescriptor(textAssetTemplate())
	require.NoError(t, err)
	texDesc, err := schema.MarshalDescriptor(textureTemplate())
	require.NoError(t, err)

	return []assets.TypeInfo{
		{ClassID: schema.ClassTextAsset, ScriptIndex: assets.NoScript, Descriptor: textDesc},
		{ClassID: schema.ClassTexture2D, ScriptIndex: assets.NoScript, Descriptor: texDesc},
	}
}

func sampleRecords() []testRecord {
	return []testRecord{
		{pathID: 1, classID: schema.ClassTextAsset, data: textAsset("one", "first")},
		{pathID: 2, classID: schema.ClassTextAsset, data: textAsset("two", "second")},
		{pathID: 3, classID: schema.ClassTexture2D, data: texture("sky", "archive:/CAB-x/CAB-x.resS")},
		{pathID: 4, classID: schema.ClassTexture2D, data: texture("ground", "")},
	}
}

func containerBytes(t *testing.T, typeTree bool, records []testRecord) []byte {
	t.Helper()

	var types []assets.TypeInfo
	if typeTree {
		types = typeTable(t)
	}

	reps := make([]assets.Replacer, 0, len(records))
	for _, r := range records {
		reps = append(reps, assets.ReplacerFromMemory{PathID: r.pathID, ClassID: r.classID, ScriptIndex: assets.NoScript, Data: r.data})
	}

	var buf bytes.Buffer
	require.NoError(t, assets.Empty(22, testEngine, typeTree, types).Write(&buf, 0, reps, nil))
	return buf.Bytes()
}

func writeContainer(t *testing.T, dir string, name string, typeTree bool) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, containerBytes(t, typeTree, sampleRecords()), 0o600))
	return path
}

var readme = []byte(strings.Repeat("this archive holds one record container. ", 8))

func writeArchive(t *testing.T, dir string, name string, cab []byte, compress bool) string {
	t.Helper()

	opts := bundle.PackOptions{Headers: []bundle.HeaderPair{{Key: bundle.HeaderEngineVersion, Value: testEngine}}}
	if compress {
		opts.Compress = bundle.CompressAll()
	}

	path := filepath.Join(dir, name)
	_, err := bundle.PackFile(context.Background(), path, []bundle.Input{
		bytesInput("readme.txt", readme),
		bytesInput("CAB-main", cab),
	}, opts)
	require.NoError(t, err)
	return path
}

func bytesInput(name string, data []byte) bundle.Input {
	return bundle.Input{
		Name:     name,
		SizeHint: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func openContainer(t *testing.T, path string) *assets.File {
	t.Helper()

	f, err := assets.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func payload(t *testing.T, f *assets.File, pathID int64) []byte {
	t.Helper()

	info, err := f.Record(pathID)
	require.NoError(t, err)
	data, err := f.ReadPayload(info)
	require.NoError(t, err)
	return data
}

// requireOnlyChanged checks that every record of got except pathID equals want's.
func requireOnlyChanged(t *testing.T, want *assets.File, got *assets.File, pathID int64, data []byte) {
	t.Helper()

	require.Equal(t, len(want.Records()), len(got.Records()))
	for _, info := range want.Records() {
		if info.PathID == pathID {
			require.Equal(t, data, payload(t, got, pathID))
			continue
		}

		require.Equal(t, payload(t, want, info.PathID), payload(t, got, info.PathID), "record %d", info.PathID)
	}
}

func archiveContainer(t *testing.T, path string) *assets.File {
	t.Helper()

	r, err := bundle.Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := r.ReadEntry("CAB-main")
	require.NoError(t, err)
	f, err := assets.Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return f
}

func bytesReaderAt(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
