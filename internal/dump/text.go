// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/schema"
)

// maxTextLine bounds one plain-text dump line.
const maxTextLine = 16 * 1024 * 1024

var (
	// ErrEmptyDump means the dump holds no field lines.
	ErrEmptyDump = errors.New("dump has no fields")
	// ErrMalformedLine means a plain-text dump line does not follow the line grammar.
	ErrMalformedLine = errors.New("malformed dump line")
)

// textLine is one parsed field line.
type textLine struct {
	typeName string
	name     string
	value    string
	kind     schema.Kind
	align    bool
	hasValue bool
}

// openNode is a composite field whose children are still being read.
type openNode struct {
	depth int
	align bool
}

// ImportPlainText converts a plain-text dump into record bytes.
//
// Each line is "<align> <type> <name> [= value]" indented by nesting depth.
// Primitive lines write their value; composite lines open a node that is
// closed by the next line at the same or a lower depth. Lines starting with
// "[" are array index markers and carry no data. The align flag pads the
// output to 4 bytes after the value, or after the node closes.
func ImportPlainText(r io.Reader) ([]byte, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxTextLine)

	types := schema.PrimitiveTypes()
	var (
		out    []byte
		stack  []openNode
		lineNo int
		fields int
	)

	closeTo := func(depth int) {
		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			if stack[len(stack)-1].align {
				out = schema.AlignBytes(out)
			}
			stack = stack[:len(stack)-1]
		}
	}

	for sc.Scan() {
		lineNo++
		raw := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimLeft(raw, " \t")
		if strings.TrimSpace(trimmed) == "" || strings.HasPrefix(trimmed, "[") {
			continue
		}

		depth := len(raw) - len(trimmed)
		closeTo(depth)

		ln, err := parseTextLine(trimmed, types)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		fields++

		if ln.kind == schema.KindNone {
			stack = append(stack, openNode{depth: depth, align: ln.align})
			continue
		}

		if !ln.hasValue {
			return nil, fmt.Errorf("line %d: %w: %s %s has no value", lineNo, ErrMalformedLine, ln.typeName, ln.name)
		}

		out, err = schema.AppendScalar(out, ln.kind, ln.value)
		if err != nil {
			return nil, fmt.Errorf("line %d: field %s: %w", lineNo, ln.name, err)
		}
		if ln.align {
			out = schema.AlignBytes(out)
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}
	if fields == 0 {
		return nil, ErrEmptyDump
	}

	closeTo(0)
	return out, nil
}

// parseTextLine parses one unindented field line. Primitive types are
// matched by prefix so multi-word names like "unsigned int" work.
func parseTextLine(line string, types []string) (textLine, error) {
	flag, rest, ok := strings.Cut(line, " ")
	if !ok || (flag != "0" && flag != "1") {
		return textLine{}, fmt.Errorf("%w: bad align flag in %q", ErrMalformedLine, line)
	}

	ln := textLine{align: flag == "1"}
	rest = strings.TrimLeft(rest, " ")

	for _, t := range types {
		if strings.HasPrefix(rest, t+" ") {
			ln.typeName = t
			ln.kind = schema.KindOf(t)
			rest = strings.TrimLeft(rest[len(t)+1:], " ")
			break
		}
	}

	if ln.kind == schema.KindNone {
		typeName, after, _ := strings.Cut(rest, " ")
		name, _, _ := strings.Cut(strings.TrimLeft(after, " "), " ")
		if typeName == "" || name == "" {
			return textLine{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
		}

		ln.typeName = typeName
		ln.name = name
		return ln, nil
	}

	name, after, _ := strings.Cut(rest, " ")
	if name == "" {
		return textLine{}, fmt.Errorf("%w: missing field name in %q", ErrMalformedLine, line)
	}
	ln.name = name

	after = strings.TrimLeft(after, " ")
	if after == "" {
		return ln, nil
	}

	value, ok := strings.CutPrefix(after, "=")
	if !ok {
		return textLine{}, fmt.Errorf("%w: expected '=' in %q", ErrMalformedLine, line)
	}
	value = strings.TrimPrefix(value, " ")

	if ln.kind == schema.KindString {
		s, err := unquoteText(value)
		if err != nil {
			return textLine{}, fmt.Errorf("%w: field %s: %w", ErrMalformedLine, name, err)
		}

		value = s
	}

	ln.value = value
	ln.hasValue = true
	return ln, nil
}

// unquoteText strips the surrounding quotes of a string value and resolves
// the \\, \n, \r and \" escapes. Unknown escapes are kept as written.
func unquoteText(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("string value %q is not quoted", s)
	}

	s = s[1 : len(s)-1]
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}

		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '"':
			b.WriteByte('"')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}

	return b.String(), nil
}

var textEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)

// ExportPlainText writes v as a plain-text dump accepted by ImportPlainText.
func ExportPlainText(w io.Writer, v *schema.Value) error {
	if v == nil || v.Field == nil {
		return schema.ErrNoTemplate
	}

	bw := bufio.NewWriter(w)
	writeTextNode(bw, v, 0)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}

	return nil
}

func writeTextNode(bw *bufio.Writer, v *schema.Value, depth int) {
	f := v.Field
	indent := strings.Repeat(" ", depth)
	align := 0
	if f.Align {
		align = 1
	}

	kind := schema.KindOf(f.Type)
	switch {
	case f.IsArray:
		sizeName := "size"
		if len(f.Children) == 2 && f.Children[0].Name != "" {
			sizeName = f.Children[0].Name
		}

		_, _ = fmt.Fprintf(bw, "%s%d %s %s (%d items)\n", indent, align, f.Type, f.Name, len(v.Elements))
		_, _ = fmt.Fprintf(bw, "%s 0 int %s = %d\n", indent, sizeName, len(v.Elements))
		for i, e := range v.Elements {
			_, _ = fmt.Fprintf(bw, "%s [%d]\n", indent, i)
			writeTextNode(bw, e, depth+2)
		}
	case kind != schema.KindNone:
		text := schema.FormatScalar(kind, v.Scalar)
		if kind == schema.KindString {
			text = `"` + textEscaper.Replace(text) + `"`
		}

		_, _ = fmt.Fprintf(bw, "%s%d %s %s = %s\n", indent, align, f.Type, f.Name, text)
	default:
		_, _ = fmt.Fprintf(bw, "%s%d %s %s\n", indent, align, f.Type, f.Name)
		for _, c := range v.Children {
			writeTextNode(bw, c, depth+1)
		}
	}
}
