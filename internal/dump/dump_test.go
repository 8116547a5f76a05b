// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package dump

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/schema"
)

const sampleText = `0 MonoBehaviour Base
 1 string m_Name = "Abc"
 1 UInt8 m_Enabled = 1
 0 int m_Count = 7
 1 Array m_Values (2 items)
  0 int size = 2
  [0]
   0 unsigned int data = 10
  [1]
   0 unsigned int data = 20
 0 Vector2f m_Pos
  0 float x = 1.5
  0 float y = -2
`

func sampleTemplate() *schema.Field {
	return &schema.Field{Name: "Base", Type: "MonoBehaviour", Children: []*schema.Field{
		{Name: "m_Name", Type: "string", Align: true},
		{Name: "m_Enabled", Type: "UInt8", Align: true},
		{Name: "m_Count", Type: "int"},
		{Name: "m_Values", Type: "Array", IsArray: true, Align: true, Children: []*schema.Field{
			{Name: "size", Type: "int"},
			{Name: "data", Type: "unsigned int"},
		}},
		{Name: "m_Pos", Type: "Vector2f", Children: []*schema.Field{
			{Name: "x", Type: "float"},
			{Name: "y", Type: "float"},
		}},
	}}
}

func samplePayload() []byte {
	le := binary.LittleEndian
	var b []byte
	b = le.AppendUint32(b, 3)
	b = append(b, "Abc"...)
	b = append(b, 0)
	b = append(b, 1, 0, 0, 0)
	b = le.AppendUint32(b, 7)
	b = le.AppendUint32(b, 2)
	b = le.AppendUint32(b, 10)
	b = le.AppendUint32(b, 20)
	b = le.AppendUint32(b, math.Float32bits(1.5))
	b = le.AppendUint32(b, math.Float32bits(-2))
	return b
}

func TestImportPlainText(t *testing.T) {
	t.Parallel()

	got, err := ImportPlainText(strings.NewReader(sampleText))
	require.NoError(t, err)
	require.Equal(t, samplePayload(), got)
}

func TestImportPlainTextCRLF(t *testing.T) {
	t.Parallel()

	got, err := ImportPlainText(strings.NewReader(strings.ReplaceAll(sampleText, "\n", "\r\n")))
	require.NoError(t, err)
	require.Equal(t, samplePayload(), got)
}

func TestImportPlainTextStringEscapes(t *testing.T) {
	t.Parallel()

	got, err := ImportPlainText(strings.NewReader(`0 Base Base
 0 string m_Script = "a\nb\\c \"q\""
 0 unsigned int m_Flags = 4294967295
`))
	require.NoError(t, err)

	want := binary.LittleEndian.AppendUint32(nil, 9)
	want = append(want, "a\nb\\c \"q\""...)
	want = binary.LittleEndian.AppendUint32(want, math.MaxUint32)
	require.Equal(t, want, got)
}

func TestImportPlainTextErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want error
	}{
		{name: "empty", text: "\n  \n", want: ErrEmptyDump},
		{name: "bad align flag", text: "x int a = 1\n", want: ErrMalformedLine},
		{name: "json content", text: `{"m_Name": "a"}`, want: ErrMalformedLine},
		{name: "missing value", text: "0 int a\n", want: ErrMalformedLine},
		{name: "unquoted string", text: "0 string a = abc\n", want: ErrMalformedLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ImportPlainText(strings.NewReader(tt.text))
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := ImportPlainText(strings.NewReader("0 int a = notanumber\n"))
	require.Error(t, err)
}

func TestPlainTextRoundTrip(t *testing.T) {
	t.Parallel()

	v, err := schema.Decode(sampleTemplate(), samplePayload())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportPlainText(&buf, v))
	require.Equal(t, sampleText, buf.String())

	got, err := ImportPlainText(&buf)
	require.NoError(t, err)
	require.Equal(t, samplePayload(), got)
}

func TestStructuredRoundTrip(t *testing.T) {
	t.Parallel()

	v, err := schema.Decode(sampleTemplate(), samplePayload())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportStructured(&buf, v))
	require.True(t, strings.HasPrefix(buf.String(), "{\n  \"m_Name\": \"Abc\""), buf.String())

	got, err := ImportStructured(sampleTemplate(), &buf)
	require.NoError(t, err)
	require.Equal(t, samplePayload(), got)
}

func TestImportStructuredArrayForms(t *testing.T) {
	t.Parallel()

	doc := `{
  "m_Name": "Abc",
  "m_Enabled": 1,
  "m_Count": 7,
  "m_Values": {"Array": [10, 20]},
  "m_Pos": {"x": 1.5, "y": -2},
  "m_Unknown": "ignored"
}`

	got, err := ImportStructured(sampleTemplate(), strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, samplePayload(), got)
}

func TestImportStructuredErrors(t *testing.T) {
	t.Parallel()

	_, err := ImportStructured(sampleTemplate(), strings.NewReader(`{"m_Name": "Abc"}`))
	require.ErrorIs(t, err, ErrMissingField)

	_, err = ImportStructured(sampleTemplate(), strings.NewReader(`[1, 2]`))
	require.ErrorIs(t, err, ErrFieldType)

	_, err = ImportStructured(sampleTemplate(), strings.NewReader(`{} {}`))
	require.Error(t, err)

	_, err = ImportStructured(nil, strings.NewReader(`{}`))
	require.ErrorIs(t, err, schema.ErrNoTemplate)
}

func TestResolveMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		mode Mode
		want Mode
	}{
		{path: "x-1.json", mode: ModeAuto, want: ModeJSON},
		{path: "x-1.JSON", mode: "", want: ModeJSON},
		{path: "x-1.txt", mode: ModeAuto, want: ModeText},
		{path: "x-1", mode: ModeAuto, want: ModeText},
		{path: "x-1.json", mode: ModeText, want: ModeText},
		{path: "x-1.txt", mode: ModeJSON, want: ModeJSON},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ResolveMode(tt.mode, tt.path), tt.path)
	}

	m, err := ParseMode("TEXT")
	require.NoError(t, err)
	require.Equal(t, ModeText, m)

	_, err = ParseMode("xml")
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestImportFallsBackToPlainText(t *testing.T) {
	t.Parallel()

	res, err := Import(Request{
		Source:   strings.NewReader(sampleText),
		Path:     "rec-level0-5.json",
		Mode:     ModeAuto,
		Template: func() (*schema.Field, error) { return nil, schema.ErrNoTemplate },
	})
	require.NoError(t, err)
	require.Equal(t, ModeText, res.Mode)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, samplePayload(), res.Data)
}

func TestImportFallbackFails(t *testing.T) {
	t.Parallel()

	_, err := Import(Request{
		Source: strings.NewReader(`{"m_Name": "Abc"}`),
		Path:   "rec-level0-5.json",
	})
	require.ErrorIs(t, err, ErrDumpImportFailed)
}

func TestImportStructuredWithTemplate(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	v, err := schema.Decode(sampleTemplate(), samplePayload())
	require.NoError(t, err)
	require.NoError(t, Export(&buf, v, ModeJSON))

	res, err := Import(Request{
		Source:   &buf,
		Path:     "rec-level0-5.json",
		Template: func() (*schema.Field, error) { return sampleTemplate(), nil },
	})
	require.NoError(t, err)
	require.Equal(t, ModeJSON, res.Mode)
	require.Empty(t, res.Warnings)
	require.Equal(t, samplePayload(), res.Data)

	_, err = Import(Request{
		Source:   strings.NewReader(`{"m_Name": 1}`),
		Mode:     ModeJSON,
		Template: func() (*schema.Field, error) { return sampleTemplate(), nil },
	})
	require.True(t, errors.Is(err, ErrDumpImportFailed))
}
