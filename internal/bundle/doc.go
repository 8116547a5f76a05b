// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

/*
Package bundle reads, rewrites and recompresses archive bundles: a key/value
header block followed by a table of named entries and their payloads. Each
entry is stored raw or compressed with LZSS or LZ4. Reading works on any
io.ReaderAt without loading payloads into memory.

Compression rules (summary):
  - the entry name must be included by PackOptions.Compress rules;
  - the decoded size must be within [MinCompressSize, MaxCompressSize];
  - the compressed form is stored only when it is smaller than the source.

# Reading

	r, err := bundle.Open("data.bundle")
	if err != nil {
	    return err
	}
	defer r.Close()
	for _, e := range r.Entries() {
	    data, _ := r.ReadEntry(e.Name)
	    // use data
	}

Header-only scans skip the entry table:

	headers, err := bundle.ReadHeaders("data.bundle")

# Rewriting

Rewrite, Decompress, Recompress and Editor.Commit share one rewrite core.
Entries that are not touched are copied in packed form, byte-identical, so
a rewrite without bindings of a decompressed bundle reproduces it exactly:

	var buf bundle.Buffer
	_, err := bundle.Decompress(ctx, r, &buf)

Bindings replace or append entries from caller-owned sources, which must stay
open until the rewrite returns:

	_, err = bundle.Rewrite(ctx, out, r, []bundle.Binding{
	    {Name: "CAB-main", Source: f, Length: size},
	}, bundle.PackOptions{})

Recompress with every entry selected and the default LZSS scheme:

	_, err = bundle.Recompress(ctx, r, out, bundle.PackOptions{})

# Exporting

Export writes entries to a directory; EntryFilter narrows the selection:

	entries, err := bundle.EntryFilter{
	    Rules: bundle.ParseRules([]string{"CAB-*", "!*.resS"}),
	}.Apply(r.Entries())
	if err != nil {
	    return err
	}
	err = r.Export(ctx, "out", bundle.ExportOptions{Entries: entries})
*/
package bundle
