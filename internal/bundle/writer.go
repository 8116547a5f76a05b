// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package bundle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// packCopyBufferSize is per-rewrite temporary buffer used by streaming payload copy.
const packCopyBufferSize = 64 * 1024

// writtenEntry stores concrete entry values produced during payload write.
type writtenEntry struct {
	dataSize     uint32
	originalSize uint32
	scheme       Scheme
	timestamp    uint32
}

// rewriteEntry describes one payload source for the rewrite core.
// Exactly one of input, binding and source is set.
type rewriteEntry struct {
	input   *Input
	binding *Binding
	source  *EntryInfo
	// from overrides the reader source is copied from.
	from *Reader
	name string
	// transcode decodes source payload and re-applies the compression policy.
	transcode bool
}

// Pack writes a bundle to out from the given inputs, keeping input order.
func Pack(ctx context.Context, out io.WriteSeeker, inputs []Input, opts PackOptions) (*PackResult, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInputs
	}

	plan := make([]rewriteEntry, 0, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i := range inputs {
		name, err := canonicalEntryName(inputs[i].Name)
		if err != nil {
			return nil, err
		}

		key := entryKey(name)
		if existing, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %q conflicts with %q", ErrDuplicateEntryName, inputs[i].Name, existing)
		}
		seen[key] = inputs[i].Name

		in := inputs[i]
		in.Name = name
		plan = append(plan, rewriteEntry{name: name, input: &in})
	}

	return rewriteBundle(ctx, out, nil, plan, opts)
}

// PackFile writes a bundle to outPath.
func PackFile(ctx context.Context, outPath string, inputs []Input, opts PackOptions) (*PackResult, error) {
	return writeFile(outPath, func(f *os.File) (*PackResult, error) {
		return Pack(ctx, f, inputs, opts)
	})
}

// Rewrite writes src to out with bindings applied. Entries without a binding
// are copied in packed form, byte-identical. Bindings for names absent from src
// are appended after the existing entries in binding order. Binding sources are
// not closed.
func Rewrite(ctx context.Context, out io.WriteSeeker, src *Reader, bindings []Binding, opts PackOptions) (*PackResult, error) {
	if err := src.checkOpen(); err != nil {
		return nil, err
	}

	plan, err := buildBindingPlan(src.entries, bindings)
	if err != nil {
		return nil, err
	}

	if len(opts.Headers) == 0 {
		opts.Headers = src.Headers()
	}

	return rewriteBundle(ctx, out, src, plan, opts)
}

// Decompress writes src to out with every entry stored raw.
func Decompress(ctx context.Context, src *Reader, out io.WriteSeeker) (*PackResult, error) {
	return transcode(ctx, src, out, PackOptions{})
}

// DecompressFile writes the decompressed form of src to outPath.
func DecompressFile(ctx context.Context, src *Reader, outPath string) (*PackResult, error) {
	return writeFile(outPath, func(f *os.File) (*PackResult, error) {
		return Decompress(ctx, src, f)
	})
}

// Recompress writes src to out, compressing entries selected by opts.Compress
// with opts.Scheme. Empty rules select every entry.
func Recompress(ctx context.Context, src *Reader, out io.WriteSeeker, opts PackOptions) (*PackResult, error) {
	if len(opts.Compress) == 0 {
		opts.Compress = CompressAll()
	}

	return transcode(ctx, src, out, opts)
}

// RecompressFrom writes staged to out, keeping the stored form of original.
// Entries named in changed and entries absent from original are compressed
// per opts as Recompress does. Every other entry is copied from original in
// packed form, so its scheme and bytes are unchanged.
func RecompressFrom(ctx context.Context, staged *Reader, original *Reader, changed []string, out io.WriteSeeker, opts PackOptions) (*PackResult, error) {
	if err := staged.checkOpen(); err != nil {
		return nil, err
	}
	if err := original.checkOpen(); err != nil {
		return nil, err
	}

	if len(opts.Compress) == 0 {
		opts.Compress = CompressAll()
	}

	stored := make(map[string]*EntryInfo, len(original.entries))
	for i := range original.entries {
		stored[entryKey(original.entries[i].Name)] = &original.entries[i]
	}

	touched := make(map[string]struct{}, len(changed))
	for _, name := range changed {
		touched[entryKey(name)] = struct{}{}
	}

	plan := make([]rewriteEntry, len(staged.entries))
	for i := range staged.entries {
		entry := staged.entries[i]
		key := entryKey(entry.Name)
		if orig, ok := stored[key]; ok {
			if _, hit := touched[key]; !hit {
				plan[i] = rewriteEntry{name: entry.Name, source: orig, from: original}
				continue
			}
		}

		plan[i] = rewriteEntry{name: entry.Name, source: &entry, transcode: true}
	}

	if len(opts.Headers) == 0 {
		opts.Headers = staged.Headers()
	}

	return rewriteBundle(ctx, out, staged, plan, opts)
}

// transcode decodes every entry of src and writes it with the opts compression policy.
func transcode(ctx context.Context, src *Reader, out io.WriteSeeker, opts PackOptions) (*PackResult, error) {
	if err := src.checkOpen(); err != nil {
		return nil, err
	}

	plan := make([]rewriteEntry, len(src.entries))
	for i := range src.entries {
		entry := src.entries[i]
		plan[i] = rewriteEntry{name: entry.Name, source: &entry, transcode: true}
	}

	if len(opts.Headers) == 0 {
		opts.Headers = src.Headers()
	}

	return rewriteBundle(ctx, out, src, plan, opts)
}

// buildBindingPlan keeps source order and swaps in bound entries.
func buildBindingPlan(entries []EntryInfo, bindings []Binding) ([]rewriteEntry, error) {
	plan := make([]rewriteEntry, len(entries))
	index := make(map[string]int, len(entries))
	for i := range entries {
		entry := entries[i]
		plan[i] = rewriteEntry{name: entry.Name, source: &entry}
		index[entryKey(entry.Name)] = i
	}

	for i := range bindings {
		b := bindings[i]
		if b.Source == nil || b.Offset < 0 || b.Length < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBinding, b.Name)
		}

		name, err := canonicalEntryName(b.Name)
		if err != nil {
			return nil, err
		}

		key := entryKey(name)
		if at, ok := index[key]; ok {
			if plan[at].binding != nil {
				return nil, fmt.Errorf("%w: %q bound twice", ErrDuplicateEntryName, b.Name)
			}

			// Keep the stored name so untouched table bytes stay identical.
			plan[at] = rewriteEntry{name: plan[at].name, binding: &b}
			continue
		}

		index[key] = len(plan)
		plan = append(plan, rewriteEntry{name: name, binding: &b})
	}

	return plan, nil
}

// writeFile creates outPath, runs write, and syncs the result.
func writeFile(outPath string, write func(f *os.File) (*PackResult, error)) (*PackResult, error) {
	f, err := os.OpenFile(outPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create bundle file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	res, err := write(f)
	if err != nil {
		return nil, err
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync bundle file: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close bundle file: %w", err)
	}
	f = nil

	return res, nil
}

// rewriteBundle is the shared writer core for pack, rewrite and transcode flows.
func rewriteBundle(
	ctx context.Context,
	out io.WriteSeeker,
	src *Reader,
	plan []rewriteEntry,
	opts PackOptions,
) (*PackResult, error) {
	startedAt := time.Now()

	if out == nil {
		return nil, ErrNilWriter
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	matcher, err := newCompressMatcher(opts.Compress, opts.CompressMatcherOptions)
	if err != nil {
		return nil, fmt.Errorf("compile compress rules: %w", err)
	}

	w := bufio.NewWriterSize(out, opts.WriterBufferSize)

	var header [headerSize]byte
	copy(header[0:4], Magic[:])
	binary.LittleEndian.PutUint32(header[4:8], formatVersion)
	if _, err := w.Write(header[:]); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for _, h := range opts.Headers {
		if err := writeCString(w, h.Key); err != nil {
			return nil, fmt.Errorf("write header key: %w", err)
		}

		if err := writeCString(w, h.Value); err != nil {
			return nil, fmt.Errorf("write header value: %w", err)
		}
	}

	if err := w.WriteByte(0); err != nil {
		return nil, fmt.Errorf("write header terminator: %w", err)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush headers: %w", err)
	}

	entriesStart, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("seek after headers: %w", err)
	}

	var placeholder [entryFields]byte
	for _, item := range plan {
		if err := writeCString(w, item.name); err != nil {
			return nil, fmt.Errorf("write entry name: %w", err)
		}

		if _, err := w.Write(placeholder[:]); err != nil {
			return nil, fmt.Errorf("write entry placeholder: %w", err)
		}
	}

	if err := w.WriteByte(0); err != nil {
		return nil, fmt.Errorf("write entries terminator: %w", err)
	}

	if _, err := w.Write(placeholder[:]); err != nil {
		return nil, fmt.Errorf("write entries tail fields: %w", err)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush after entries: %w", err)
	}

	dataStart, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	if dataStart > maxBundleData {
		return nil, fmt.Errorf("%w: data start offset %d", ErrSizeOverflow, dataStart)
	}

	written := make([]writtenEntry, 0, len(plan))
	currentOffset := uint32(dataStart) //nolint:gosec // checked above against maxBundleData
	copyBuf := make([]byte, packCopyBufferSize)
	res := &PackResult{}

	for _, item := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var record writtenEntry
		switch {
		case item.source != nil && !item.transcode:
			from := src
			if item.from != nil {
				from = item.from
			}
			if from == nil {
				return nil, ErrNilReader
			}

			record, err = writeSourcePackedPayload(w, from.ra, *item.source, currentOffset, copyBuf)
			res.CopiedEntries++
		case item.source != nil:
			record, err = writeTranscodedPayload(w, src, *item.source, opts, matcher, currentOffset)
		case item.binding != nil:
			sr := io.NewSectionReader(item.binding.Source, item.binding.Offset, item.binding.Length)
			record, err = writeStreamPayload(w, sr, item.name, item.binding.Length, time.Now(), opts, matcher, currentOffset, copyBuf)
		case item.input != nil:
			record, err = writeInputPayload(w, *item.input, opts, matcher, currentOffset, copyBuf)
		default:
			err = fmt.Errorf("entry %s: missing input/source", item.name)
		}
		if err != nil {
			return nil, err
		}

		if record.scheme != SchemeNone {
			res.CompressedEntries++
		}

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(PackEntryProgress{
				Name:         item.name,
				Offset:       currentOffset,
				DataSize:     record.dataSize,
				OriginalSize: record.originalSize,
				Scheme:       record.scheme,
				Copied:       item.source != nil && !item.transcode,
			})
		}

		written = append(written, record)
		currentOffset += record.dataSize
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush payloads: %w", err)
	}

	pos := entriesStart
	var fields [entryFields]byte
	for i, item := range plan {
		pos += int64(len(item.name) + 1)
		if _, err := out.Seek(pos, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek to entry %d: %w", i, err)
		}

		record := written[i]
		binary.LittleEndian.PutUint32(fields[0:4], uint32(record.scheme))
		binary.LittleEndian.PutUint32(fields[4:8], record.originalSize)
		// Offsets are derived sequentially on read.
		binary.LittleEndian.PutUint32(fields[8:12], 0)
		binary.LittleEndian.PutUint32(fields[12:16], record.timestamp)
		binary.LittleEndian.PutUint32(fields[16:20], record.dataSize)
		if _, err := out.Write(fields[:]); err != nil {
			return nil, fmt.Errorf("patch entry %d: %w", i, err)
		}

		pos += entryFields
	}

	if _, err := out.Seek(0, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("seek end: %w", err)
	}

	res.WrittenEntries = len(written)
	res.DataSize = int64(currentOffset) - dataStart
	res.IndexSize = dataStart - entriesStart
	res.Duration = time.Since(startedAt)

	return res, nil
}

// writeCString writes s followed by a NUL terminator.
func writeCString(w *bufio.Writer, s string) error {
	if _, err := w.WriteString(s); err != nil {
		return err
	}

	return w.WriteByte(0)
}

// writeInputPayload opens and writes one input-backed entry.
func writeInputPayload(
	dst io.Writer,
	in Input,
	opts PackOptions,
	matcher *compressMatcher,
	currentOffset uint32,
	copyBuf []byte,
) (writtenEntry, error) {
	if in.Open == nil {
		return writtenEntry{}, fmt.Errorf("input %s: Open is nil", in.Name)
	}

	rc, err := in.Open()
	if err != nil {
		return writtenEntry{}, fmt.Errorf("open input %s: %w", in.Name, err)
	}

	record, writeErr := writeStreamPayload(dst, rc, in.Name, in.SizeHint, in.ModTime, opts, matcher, currentOffset, copyBuf)
	closeErr := rc.Close()
	if writeErr != nil {
		return writtenEntry{}, writeErr
	}
	if closeErr != nil {
		return writtenEntry{}, fmt.Errorf("close input %s: %w", in.Name, closeErr)
	}

	return record, nil
}

// writeStreamPayload writes one stream payload, compressing known-size candidates in memory.
func writeStreamPayload(
	dst io.Writer,
	src io.Reader,
	name string,
	sizeHint int64,
	modTime time.Time,
	opts PackOptions,
	matcher *compressMatcher,
	currentOffset uint32,
	copyBuf []byte,
) (writtenEntry, error) {
	maxEntrySize := int64(^uint32(0)) - int64(currentOffset)
	if sizeHint <= 0 || !shouldCompress(opts, matcher, name, sizeHint) {
		streamed, err := copyPayloadBounded(dst, src, maxEntrySize, copyBuf)
		if err != nil {
			return writtenEntry{}, fmt.Errorf("stream input %s: %w", name, err)
		}

		dataSize, err := checkedDataSize(name, streamed, currentOffset)
		if err != nil {
			return writtenEntry{}, err
		}

		return writtenEntry{dataSize: dataSize, timestamp: timeToUint32(modTime)}, nil
	}

	var raw bytes.Buffer
	raw.Grow(int(sizeHint))
	if _, err := copyPayloadBounded(&raw, src, maxEntrySize, copyBuf); err != nil {
		return writtenEntry{}, fmt.Errorf("stream input %s: %w", name, err)
	}

	return writeMemoryPayload(dst, name, raw.Bytes(), timeToUint32(modTime), opts, matcher, currentOffset)
}

// writeTranscodedPayload decodes a source entry and writes it under the current policy.
func writeTranscodedPayload(
	dst io.Writer,
	src *Reader,
	entry EntryInfo,
	opts PackOptions,
	matcher *compressMatcher,
	currentOffset uint32,
) (writtenEntry, error) {
	raw, err := src.readEntryBytes(entry)
	if err != nil {
		return writtenEntry{}, err
	}

	return writeMemoryPayload(dst, entry.Name, raw, entry.TimeStamp, opts, matcher, currentOffset)
}

// writeMemoryPayload writes raw, compressed when the policy selects it and it shrinks.
func writeMemoryPayload(
	dst io.Writer,
	name string,
	raw []byte,
	timestamp uint32,
	opts PackOptions,
	matcher *compressMatcher,
	currentOffset uint32,
) (writtenEntry, error) {
	originalSize, err := checkedDataSize(name, int64(len(raw)), currentOffset)
	if err != nil {
		return writtenEntry{}, err
	}

	record := writtenEntry{dataSize: originalSize, timestamp: timestamp}
	payload := raw
	if shouldCompress(opts, matcher, name, int64(len(raw))) {
		compressed, ok, err := compressPayload(opts.Scheme, raw)
		if err != nil {
			return writtenEntry{}, fmt.Errorf("compress %s: %w", name, err)
		}

		if ok {
			payload = compressed
			record.dataSize = uint32(len(compressed)) //nolint:gosec // smaller than checked raw size
			record.originalSize = originalSize
			record.scheme = opts.Scheme
		}
	}

	if _, err := dst.Write(payload); err != nil {
		return writtenEntry{}, fmt.Errorf("write payload %s: %w", name, err)
	}

	return record, nil
}

// writeSourcePackedPayload copies already packed bytes from the source bundle.
func writeSourcePackedPayload(
	dst io.Writer,
	src io.ReaderAt,
	entry EntryInfo,
	currentOffset uint32,
	copyBuf []byte,
) (writtenEntry, error) {
	size := int64(entry.DataSize)
	dataSize, err := checkedDataSize(entry.Name, size, currentOffset)
	if err != nil {
		return writtenEntry{}, err
	}

	sr := io.NewSectionReader(src, int64(entry.Offset), size)
	written, err := copyPayloadBounded(dst, sr, size, copyBuf)
	if err != nil {
		return writtenEntry{}, fmt.Errorf("copy packed entry %s: %w", entry.Name, err)
	}
	if written != size {
		return writtenEntry{}, fmt.Errorf("copy packed entry %s: short read (%d/%d)", entry.Name, written, size)
	}

	return writtenEntry{
		dataSize:     dataSize,
		originalSize: entry.OriginalSize,
		scheme:       entry.Scheme,
		timestamp:    entry.TimeStamp,
	}, nil
}

// copyPayloadBounded streams payload from src to dst and enforces strict size limit.
func copyPayloadBounded(dst io.Writer, src io.Reader, limit int64, buf []byte) (int64, error) {
	if dst == nil {
		return 0, ErrNilWriter
	}
	if src == nil {
		return 0, ErrNilReader
	}
	if limit < 0 {
		return 0, ErrSizeOverflow
	}
	if len(buf) == 0 {
		buf = make([]byte, 32*1024)
	}

	var written int64
	emptyReads := 0
	for written < limit {
		chunkSize := len(buf)
		remaining := limit - written
		if int64(chunkSize) > remaining {
			chunkSize = int(remaining)
		}

		n, readErr := src.Read(buf[:chunkSize])
		if n > 0 {
			emptyReads = 0
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)

			if writeErr != nil {
				return written, writeErr
			}
			if nw != n {
				return written, io.ErrShortWrite
			}
		}
		if n == 0 && readErr == nil {
			emptyReads++
			if emptyReads > 100 {
				return written, io.ErrNoProgress
			}

			continue
		}

		if readErr != nil {
			if readErr == io.EOF {
				break
			}

			return written, readErr
		}
	}

	// Probe one extra byte when the limit was consumed exactly.
	if written == limit {
		var probe [1]byte
		n, err := src.Read(probe[:])
		if n > 0 {
			return written, ErrSizeOverflow
		}
		if err != nil && err != io.EOF {
			return written, err
		}
	}

	return written, nil
}

// checkedDataSize validates entry size for uint32-based fields and running offset.
func checkedDataSize(name string, size int64, currentOffset uint32) (uint32, error) {
	if size < 0 || size > int64(^uint32(0)) {
		return 0, fmt.Errorf("%w: entry %s size %d is out of uint32 range", ErrSizeOverflow, name, size)
	}

	maxEntrySize := int64(^uint32(0)) - int64(currentOffset)
	if size > maxEntrySize {
		return 0, fmt.Errorf("%w: entry %s size would exceed 4 GiB", ErrSizeOverflow, name)
	}

	return uint32(size), nil
}

// timeToUint32 converts time to uint32 Unix timestamp with bounds clamping.
func timeToUint32(t time.Time) uint32 {
	if t.IsZero() {
		return 0
	}

	u := t.Unix()
	if u < 0 {
		return 0
	}

	if u > 0xffffffff {
		return 0xffffffff
	}

	return uint32(u)
}
