// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/bundle"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/dump"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/instpkg"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/patch"
)

func (a *app) applyPackageCmd() *cobra.Command {
	var (
		outputDir string
		cache     cacheFlags
	)

	cmd := &cobra.Command{
		Use:   "apply-package <package file> <install dir>",
		Short: "Apply an installer package to an install directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := instpkg.ReadFile(args[0])
			if err != nil {
				return err
			}

			report, err := a.patcher.ApplyPackage(cmd.Context(), pkg, args[1], patch.ApplyOptions{
				OutputDir: outputDir,
				Cache:     cache.options(),
			})
			if report != nil {
				if emitErr := a.emitApply(report); emitErr != nil && err == nil {
					err = emitErr
				}
			}

			return err
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Write modified files below this directory instead of replacing them")
	cache.register(cmd)

	return cmd
}

func (a *app) emitApply(r *patch.ApplyReport) error {
	return a.emit(r, func(w io.Writer) error {
		fmt.Fprintf(w, "Package: %s\n", r.Package)
		for _, f := range r.Files {
			if f.Backup != "" {
				fmt.Fprintf(w, "  %s -> %s (backup %s)\n", f.Path, f.Output, f.Backup)
				continue
			}

			fmt.Fprintf(w, "  %s -> %s\n", f.Path, f.Output)
		}

		return nil
	})
}

func (a *app) makePackageCmd() *cobra.Command {
	var (
		req    patch.BuildRequest
		mode   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "make-package <install dir> <container> <dump file>...",
		Short: "Build an installer package from record dumps",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := dump.ParseMode(mode)
			if err != nil {
				return err
			}

			req.Root = args[0]
			req.Container = args[1]
			req.Dumps = args[2:]
			req.Mode = m

			pkg, err := a.patcher.BuildPackage(cmd.Context(), req)
			if err != nil {
				return err
			}

			if err := instpkg.WriteFile(output, pkg); err != nil {
				return err
			}

			a.log.Info("package written", zap.String("path", output), zap.Int("files", len(pkg.Files)))
			fmt.Fprintf(a.out, "Package %q written to %s\n", pkg.Name, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Package name")
	cmd.Flags().StringVar(&req.Authors, "authors", "", "Package authors")
	cmd.Flags().StringVar(&req.Description, "description", "", "Package description")
	cmd.Flags().Int32Var(&req.FileID, "file-id", 0, "Record container index inside an archive")
	cmd.Flags().BoolVar(&req.AllowExternal, "allow-external", false, "Accept records backed by external resources")
	cmd.Flags().StringVar(&mode, "mode", string(dump.ModeAuto), "Dump format: txt|json|auto")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Package file to write")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// zapEntries returns log fields describing a rewrite.
func zapEntries(res *bundle.PackResult) []zap.Field {
	if res == nil {
		return nil
	}

	return []zap.Field{
		zap.Int("entries", res.WrittenEntries),
		zap.Int("compressed", res.CompressedEntries),
		zap.Int64("data_size", res.DataSize),
		zap.Duration("duration", res.Duration),
	}
}
