// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package schema

import "errors"

// Sentinel errors for schema operations. Use errors.Is in callers.
var (
	// ErrNoTemplate means no field template is known for a record.
	ErrNoTemplate = errors.New("no field template for record")
	// ErrInvalidDescriptor means a serialized field template is malformed.
	ErrInvalidDescriptor = errors.New("invalid type descriptor")
	// ErrTruncated means a payload ended before its template was fully decoded.
	ErrTruncated = errors.New("payload truncated")
	// ErrInvalidArray means an array node has a bad shape or a negative length.
	ErrInvalidArray = errors.New("invalid array")
	// ErrUnknownDatabaseVersion means the class database has no entry for an engine version.
	ErrUnknownDatabaseVersion = errors.New("no class database for engine version")
)
