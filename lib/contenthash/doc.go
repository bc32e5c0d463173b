// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package contenthash computes the digests used to address slug
// content.
//
// Three hash functions live here, each with exactly one job:
//
//   - [Hash]: SHA-256, formatted as "0x" + 64 lowercase hex digits.
//     This is the content address inside a slug and the digest that
//     envelope signatures cover. The format is fixed by the wire
//     encoding; existing slugs must keep hashing identically.
//
//   - [GitBlobHash]: SHA-1 over "blob <len>\x00" + data, the identity
//     git assigns to a blob. Used only to compare slug content against
//     tree listings from git. Never used for addressing inside a slug.
//
//   - [ShortRef]: a BLAKE3 keyed hash of a compressed payload, shown
//     to operators as "slug-" + 12 hex digits so two prepared slugs can
//     be told apart at a glance. Display only; it carries no trust.
package contenthash
