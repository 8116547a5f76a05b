// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/backup"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/batch"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
)

func (a *app) bundleInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bundle-info <archive>",
		Short: "Describe an archive and its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := bundle.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			s := r.Summarize()
			return a.emit(s, func(w io.Writer) error {
				fmt.Fprintln(w, "Archive information:")
				fmt.Fprintf(w, "  File Name: %s\n", filepath.Base(args[0]))
				fmt.Fprintf(w, "  File Size: %d bytes\n", s.Size)
				fmt.Fprintf(w, "  Format Version: %d\n", s.Version)
				fmt.Fprintf(w, "  Engine Version: %s\n", s.EngineVersion)
				fmt.Fprintf(w, "  Compressed: %t\n", s.Compressed)
				fmt.Fprintf(w, "  Entry Count: %d\n", len(s.Entries))
				for _, e := range s.Entries {
					fmt.Fprintf(w, "    %-40s %10d bytes  %s\n", e.Name, e.Size(), e.Scheme)
				}

				return nil
			})
		},
	}
}

func (a *app) compressCmd() *cobra.Command {
	var scheme string

	cmd := &cobra.Command{
		Use:   "compress <archive> <output>",
		Short: "Write a compressed copy of an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.packOptions(scheme)
			if err != nil {
				return err
			}

			r, err := bundle.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			var res *bundle.PackResult
			err = backup.WriteFile(args[1], func(f *os.File) error {
				res, err = bundle.Recompress(cmd.Context(), r, f, opts)
				return err
			})
			if err != nil {
				return err
			}

			a.log.Debug("archive compressed", zapEntries(res)...)
			fmt.Fprintf(a.out, "Archive compressed to %s using %s\n", args[1], opts.Scheme)
			return nil
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", "", "Compression scheme: lzss|lz4 (default from config)")

	return cmd
}

func (a *app) decompressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decompress <archive> <output>",
		Short: "Write a decompressed copy of an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := bundle.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			res, err := bundle.DecompressFile(cmd.Context(), r, args[1])
			if err != nil {
				return err
			}

			a.log.Debug("archive decompressed", zapEntries(res)...)
			fmt.Fprintf(a.out, "Archive decompressed to %s\n", args[1])
			return nil
		},
	}
}

// cacheFlags select where archives are decompressed.
type cacheFlags struct {
	keepCache  bool
	forceCache bool
	memoryOnly bool
}

func (f *cacheFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.keepCache, "keep-cache", false, "Keep <archive>.decomp files")
	cmd.Flags().BoolVar(&f.forceCache, "force-cache", false, "Overwrite existing <archive>.decomp files")
	cmd.Flags().BoolVar(&f.memoryOnly, "memory", false, "Decompress in memory; --keep-cache and --force-cache are ignored")
}

func (f cacheFlags) options() batch.CacheOptions {
	return batch.CacheOptions{KeepCache: f.keepCache, ForceCache: f.forceCache, MemoryOnly: f.memoryOnly}
}

// batchFlags are shared by the batch commands.
type batchFlags struct {
	cacheFlags
	prefix    string
	include   []string
	minSize   uint32
	keepNames bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	f.cacheFlags.register(cmd)
	cmd.Flags().BoolVar(&f.keepNames, "keep-names", false, "Name files by entry only, without the archive prefix")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "Only entries at or below this entry name prefix")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "Entry name pattern (repeatable; a leading '!' excludes)")
	cmd.Flags().Uint32Var(&f.minSize, "min-size", 0, "Skip entries smaller than this many bytes")
}

func (a *app) batchOptions(f batchFlags) (batch.Options, error) {
	pack, err := a.packOptions("")
	if err != nil {
		return batch.Options{}, err
	}

	return batch.Options{
		Log:  a.log,
		Pack: pack,
		Filter: bundle.EntryFilter{
			Prefix:  f.prefix,
			Rules:   bundle.ParseRules(f.include),
			MinSize: f.minSize,
		},
		KeepNames:  f.keepNames,
		KeepCache:  f.keepCache,
		ForceCache: f.forceCache,
		MemoryOnly: f.memoryOnly,
	}, nil
}

func (a *app) batchExportCmd() *cobra.Command {
	var (
		flags  batchFlags
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "batch-export <directory>",
		Short: "Export the entries of every archive in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.batchOptions(flags)
			if err != nil {
				return err
			}

			if outDir == "" {
				outDir = args[0]
			}

			reports, err := batch.ExportDir(cmd.Context(), args[0], outDir, opts)
			return a.emitReports(reports, err)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&outDir, "out", "", "Directory for exported files (default the input directory)")

	return cmd
}

func (a *app) batchImportCmd() *cobra.Command {
	var (
		flags    batchFlags
		filesDir string
		withBak  bool
	)

	cmd := &cobra.Command{
		Use:   "batch-import <directory>",
		Short: "Re-import exported files into every archive in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.batchOptions(flags)
			if err != nil {
				return err
			}
			opts.Backup = withBak

			if filesDir == "" {
				filesDir = args[0]
			}

			reports, err := batch.ImportDir(cmd.Context(), args[0], filesDir, opts)
			return a.emitReports(reports, err)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&filesDir, "files", "", "Directory holding the files to import (default the input directory)")
	cmd.Flags().BoolVar(&withBak, "backup", false, "Keep each previous archive as a numbered backup")

	return cmd
}

// reportView is the serialized form of a batch report.
type reportView struct {
	Path    string `json:"path" yaml:"path"`
	Backup  string `json:"backup,omitempty" yaml:"backup,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Entries int    `json:"entries" yaml:"entries"`
}

func (a *app) emitReports(reports []batch.Report, runErr error) error {
	views := make([]reportView, 0, len(reports))
	failed := 0
	for _, r := range reports {
		v := reportView{Path: r.Path, Backup: r.Backup, Entries: r.Entries}
		if r.Err != nil {
			v.Error = r.Err.Error()
			failed++
		}
		views = append(views, v)
	}

	err := a.emit(views, func(w io.Writer) error {
		for _, v := range views {
			if v.Error != "" {
				fmt.Fprintf(w, "FAIL %s: %s\n", v.Path, v.Error)
				continue
			}

			fmt.Fprintf(w, "ok   %s (%d entries)\n", v.Path, v.Entries)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d archives failed", failed, len(reports))
	}

	return nil
}
