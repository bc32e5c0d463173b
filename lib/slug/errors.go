// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package slug

import "errors"

// Structural errors. These mean the archive is malformed and are never
// repaired automatically.
var (
	// ErrInvalidInput is returned by [Slug.AddData] for an empty
	// filename or nil data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedVersion is returned when an envelope or payload
	// carries a format version this package cannot read.
	ErrUnsupportedVersion = errors.New("unsupported slug version")

	// ErrInvalidSlug is returned when a payload cannot be decoded or
	// lacks its contents or filenames table.
	ErrInvalidSlug = errors.New("invalid slug")

	// ErrMissingContent is returned when a filename references a
	// content hash that has no entry in the contents table.
	ErrMissingContent = errors.New("missing content")
)

// Authenticity errors. [Verify] returns these; [Load] tolerates them.
var (
	// ErrInvalidSignature is returned when a signature does not recover
	// to the envelope's address for the envelope's payload.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnsignedSlug is returned by [Verify] for an envelope with no
	// signature when unsigned envelopes were not allowed.
	ErrUnsignedSlug = errors.New("unsigned slug")
)
