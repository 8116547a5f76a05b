// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package patch

import "errors"

// Sentinel errors for patch operations. Use errors.Is in callers.
var (
	// ErrContainerRead wraps failures to open or parse a container or archive.
	ErrContainerRead = errors.New("container read failed")
	// ErrContainerWrite wraps failures to rewrite a container or archive.
	ErrContainerWrite = errors.New("container write failed")
	// ErrNoRecordContainer means an archive has no record container at the requested file id.
	ErrNoRecordContainer = errors.New("no record container at file id")
	// ErrExternalResource means the record keeps its payload in an external
	// resource file and AllowExternal was not set.
	ErrExternalResource = errors.New("record references an external resource")
)
