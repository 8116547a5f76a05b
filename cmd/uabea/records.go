// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dwstkar490-afk/UABEA-CLI/internal/backup"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/dump"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/names"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/naming"
	"github.com/dwstkar490-afk/UABEA-CLI/internal/patch"
)

// List column widths.
const (
	listNameWidth = 24
	listTypeWidth = 22
)

// patchFlags are shared by the patch commands.
type patchFlags struct {
	output        string
	fileID        int32
	allowExternal bool
}

func (f *patchFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int32Var(&f.fileID, "file-id", 0, "Record container index inside an archive")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file (default <container>.patch; '"+backup.OverwriteSentinel+"' replaces the container)")
	cmd.Flags().BoolVar(&f.allowExternal, "allow-external", false, "Patch records backed by external resources, storing the payload inline")
}

func (f *patchFlags) options() patch.Options {
	return patch.Options{Output: f.output, AllowExternal: f.allowExternal}
}

func (a *app) patchRawCmd() *cobra.Command {
	var flags patchFlags

	cmd := &cobra.Command{
		Use:   "patch-raw <container> <raw file>",
		Short: "Replace one record with a raw payload named <anything>-<path id>.<ext>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathID, err := naming.ParseRecordID(args[1])
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			ref := patch.RecordRef{Container: args[0], PathID: pathID, FileID: flags.fileID}
			outcome, err := a.patcher.PatchSingleRecord(cmd.Context(), ref, data, flags.options())
			if err != nil {
				return err
			}

			return a.emitOutcome(outcome, flags.fileID)
		},
	}
	flags.register(cmd)

	return cmd
}

func (a *app) patchDumpCmd() *cobra.Command {
	var (
		flags patchFlags
		mode  string
	)

	cmd := &cobra.Command{
		Use:   "patch-dump <container> <dump file>",
		Short: "Replace one record from a text or JSON dump named <anything>-<path id>.<ext>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := dump.ParseMode(mode)
			if err != nil {
				return err
			}

			pathID, err := naming.ParseRecordID(args[1])
			if err != nil {
				return err
			}

			ref := patch.RecordRef{Container: args[0], PathID: pathID, FileID: flags.fileID}
			outcome, err := a.patcher.PatchFromDump(cmd.Context(), ref, args[1], m, flags.options())
			if err != nil {
				return err
			}

			return a.emitOutcome(outcome, flags.fileID)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&mode, "mode", string(dump.ModeAuto), "Dump format: txt|json|auto (auto uses the file extension)")

	return cmd
}

func (a *app) emitOutcome(o *patch.Outcome, fileID int32) error {
	return a.emit(o, func(w io.Writer) error {
		printWarnings(w, o.Warnings)
		fmt.Fprintf(w, "Patched record (File ID: %d, Path ID: %d) into %s\n", fileID, o.PathID, o.Output)
		if o.Backup != "" {
			fmt.Fprintf(w, "Backup: %s\n", o.Backup)
		}

		return nil
	})
}

func (a *app) dumpCmd() *cobra.Command {
	var (
		fileID  int32
		mode    string
		pathIDs []int64
	)

	cmd := &cobra.Command{
		Use:   "dump <container> <output dir>",
		Short: "Write records as dumps that patch-dump can read back",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := dump.ParseMode(mode)
			if err != nil {
				return err
			}

			written, err := a.patcher.Dump(cmd.Context(), patch.DumpRequest{
				Ref:     patch.RecordRef{Container: args[0], FileID: fileID},
				OutDir:  args[1],
				Mode:    m,
				PathIDs: pathIDs,
			})
			if err != nil {
				return err
			}

			return a.emit(written, func(w io.Writer) error {
				for _, p := range written {
					fmt.Fprintln(w, p)
				}
				fmt.Fprintf(w, "%d dumps written to %s\n", len(written), args[1])
				return nil
			})
		},
	}
	cmd.Flags().Int32Var(&fileID, "file-id", 0, "Record container index inside an archive")
	cmd.Flags().StringVar(&mode, "mode", string(dump.ModeText), "Dump format: txt|json")
	cmd.Flags().Int64SliceVar(&pathIDs, "path-id", nil, "Path ids to dump (repeatable; default all)")

	return cmd
}

func (a *app) infoCmd() *cobra.Command {
	var fileID int32

	cmd := &cobra.Command{
		Use:   "info <container> <path id>",
		Short: "Describe one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("path id %q: %w", args[1], err)
			}

			d, err := a.patcher.Info(cmd.Context(), patch.RecordRef{Container: args[0], PathID: pathID, FileID: fileID})
			if err != nil {
				return err
			}

			return a.emit(d, func(w io.Writer) error {
				fmt.Fprintln(w, "Record information:")
				if d.Entry != "" {
					fmt.Fprintf(w, "  Entry: %s\n", d.Entry)
				}
				fmt.Fprintf(w, "  File ID: %d\n", fileID)
				fmt.Fprintf(w, "  Path ID: %d\n", d.PathID)
				fmt.Fprintf(w, "  Name: %s\n", d.Name)
				fmt.Fprintf(w, "  Type Name: %s\n", d.Type)
				fmt.Fprintf(w, "  Class ID: 0x%08X\n", uint32(d.ClassID)) //nolint:gosec // display only
				fmt.Fprintf(w, "  Script Index: %d\n", d.ScriptIndex)
				fmt.Fprintf(w, "  Byte Size: %d bytes\n", d.Size)
				fmt.Fprintf(w, "  Engine: %s\n", d.Engine)
				if d.Value == nil {
					return nil
				}

				fmt.Fprintln(w)
				return dump.Export(w, d.Value, dump.ModeText)
			})
		},
	}
	cmd.Flags().Int32Var(&fileID, "file-id", 0, "Record container index inside an archive")

	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var (
		fileID int32
		output string
	)

	cmd := &cobra.Command{
		Use:   "list <container>",
		Short: "List the records of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.patcher.List(cmd.Context(), patch.RecordRef{Container: args[0], FileID: fileID})
			if err != nil {
				return err
			}

			if output == "" {
				return a.emit(rows, func(w io.Writer) error {
					return writeTable(w, args[0], fileID, rows)
				})
			}

			err = backup.WriteFile(output, func(f *os.File) error {
				return writeTable(f, args[0], fileID, rows)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Record list saved to: %s\n", output)
			return nil
		},
	}
	cmd.Flags().Int32Var(&fileID, "file-id", 0, "Record container index inside an archive")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the listing to a file instead of stdout")

	return cmd
}

// writeTable writes the fixed-width record listing.
func writeTable(w io.Writer, container string, fileID int32, rows []patch.RecordRow) error {
	fmt.Fprintf(w, "Records in %s:\n", filepath.Base(container))
	fmt.Fprintf(w, "Record Count: %d\n\n", len(rows))
	fmt.Fprintf(w, "%-7s | %-*s | %-*s | %9s | %11s | %s\n",
		"File ID", listNameWidth, "Name", listTypeWidth, "Type", "Size", "Path ID", "Class ID")

	for _, r := range rows {
		_, err := fmt.Fprintf(w, "%-7d | %-*s | %-*s | %9d | %11d | 0x%08X\n",
			fileID,
			listNameWidth, names.Truncate(r.Name, listNameWidth),
			listTypeWidth, names.Truncate(r.Type, listTypeWidth),
			r.Size, r.PathID, uint32(r.ClassID)) //nolint:gosec // display only
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *app) searchCmd() *cobra.Command {
	var fileID int32

	cmd := &cobra.Command{
		Use:   "search <container> <term>",
		Short: "Find records whose name or type contains term",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.patcher.Search(cmd.Context(), patch.RecordRef{Container: args[0], FileID: fileID}, args[1])
			if err != nil {
				return err
			}

			return a.emit(rows, func(w io.Writer) error {
				fmt.Fprintf(w, "Searching for '%s' in %s (File ID: %d)...\n", args[1], filepath.Base(args[0]), fileID)
				for _, r := range rows {
					fmt.Fprintf(w, "Found: %s | Type: %s | File ID: %d | PathID: %d | Size: %d bytes\n",
						r.Name, r.Type, fileID, r.PathID, r.Size)
				}
				fmt.Fprintf(w, "%d matches\n", len(rows))
				return nil
			})
		},
	}
	cmd.Flags().Int32Var(&fileID, "file-id", 0, "Record container index inside an archive")

	return cmd
}
