// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

// Package naming implements the file naming conventions shared by commands:
// record ids embedded in auxiliary file names, batch entry file names and
// derived cache and output paths.
package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrMalformedAuxiliaryName means a file name carries no "-<record id>" suffix.
var ErrMalformedAuxiliaryName = errors.New("malformed auxiliary file name")

const (
	// DecompCacheSuffix is appended to an archive path for its decompression cache.
	DecompCacheSuffix = ".decomp"
	// PatchSuffix is appended to a container path for the default patch output.
	PatchSuffix = ".patch"
	// ModSuffix is appended to a container path for an in-progress package output.
	ModSuffix = ".mod"
)

// ParseRecordID extracts the record id from names like "Name-file.assets-12345.json".
// The extension is stripped first; the id is the text after the last '-'.
func ParseRecordID(name string) (int64, error) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	i := strings.LastIndexByte(base, '-')
	if i < 0 {
		return 0, fmt.Errorf("%w: %q has no '-' separator", ErrMalformedAuxiliaryName, name)
	}

	suffix := base[i+1:]
	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || id < 0 || strings.HasPrefix(suffix, "+") {
		return 0, fmt.Errorf("%w: %q is not a record id", ErrMalformedAuxiliaryName, suffix)
	}

	return id, nil
}

// AuxiliaryName builds the dump file name of a record so ParseRecordID can read it back.
func AuxiliaryName(recordName string, containerFile string, pathID int64, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return fmt.Sprintf("%s-%s-%d%s", recordName, filepath.Base(containerFile), pathID, ext)
}

// BundleEntryFile returns the batch file name "<archive file>_<entry>" of an archive entry.
func BundleEntryFile(archivePath string, entry string) string {
	return filepath.Base(archivePath) + "_" + entry
}

// DecompCachePath returns the decompression cache path of an archive.
func DecompCachePath(archivePath string) string {
	return archivePath + DecompCacheSuffix
}

// PatchPath returns the default patch output path of a container.
func PatchPath(containerPath string) string {
	return containerPath + PatchSuffix
}

// ModPath returns the in-progress package output path of a container.
func ModPath(containerPath string) string {
	return containerPath + ModSuffix
}
