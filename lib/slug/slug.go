// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package slug implements the slug archive format: a deterministic,
// content-addressed bundle of named files, optionally signed.
//
// A [Slug] is built by calling [Slug.AddData] once per file. Each file's
// bytes are stored once under their content hash (lib/contenthash), so
// identical files share storage. Encoding produces canonical JSON
//
//	{"contents":  {hash: hex bytes, ...},
//	 "filenames": {name: hash, ...},
//	 "gitHashes": {hash: git blob hash, ...},
//	 "salt":      "0x<32 random bytes>",
//	 "version":   2}
//
// serialized per RFC 8785, so the bytes match what a JavaScript
// JSON.stringify of the same object would produce. The JSON is
// compressed and base64-encoded into a payload, and the payload is
// wrapped in an envelope:
//
//	{"address": "0x…", "payload": "…", "signature": "0x…", "version": 2}
//
// Unsigned envelopes carry empty address and signature strings.
//
// Two format versions exist. Version 2 is the only one written.
// Version 1 is read for old archives: it uses gzip instead of zlib,
// has no salt or gitHashes, and its signing hash covers the base64
// text of the payload rather than the decoded bytes. See format.go.
//
// Reading is split into two entry points with different trust
// policies. [Verify] asserts authenticity and fails on a bad or missing
// signature. [Load] is for display paths only: it falls back to the
// unverified payload when verification fails.
//
// A Slug is not safe for concurrent mutation. Once fully built it may
// be read from multiple goroutines.
package slug

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/bureau-foundation/slug/lib/contenthash"
	"github.com/bureau-foundation/slug/lib/signer"
)

// SaltSize is the byte length of the per-encoding random salt.
const SaltSize = 32

// Slug is an in-memory set of named files.
type Slug struct {
	// contents maps content hash to file bytes. Entries orphaned by
	// re-adding a filename with new data are kept.
	contents map[string][]byte

	// gitHashes maps content hash to git blob hash.
	gitHashes map[string]string

	// filenames maps filename to content hash. Every value is a key
	// of contents.
	filenames map[string]string
}

// New returns an empty slug.
func New() *Slug {
	return &Slug{
		contents:  make(map[string][]byte),
		gitHashes: make(map[string]string),
		filenames: make(map[string]string),
	}
}

// AddData stores a copy of data under filename. Adding the same
// filename again repoints it to the new content.
func (s *Slug) AddData(filename string, data []byte) error {
	if filename == "" {
		return fmt.Errorf("%w: empty filename", ErrInvalidInput)
	}
	if data == nil {
		return fmt.Errorf("%w: nil data for %q", ErrInvalidInput, filename)
	}

	hash := contenthash.Hash(data)
	if _, ok := s.contents[hash]; !ok {
		s.contents[hash] = slices.Clone(data)
		s.gitHashes[hash] = contenthash.GitBlobHash(data)
	}
	s.filenames[filename] = hash
	return nil
}

// Data returns a copy of the bytes stored for filename, or nil if the
// filename is unknown.
func (s *Slug) Data(filename string) []byte {
	content, ok := s.content(filename)
	if !ok {
		return nil
	}
	return slices.Clone(content)
}

// Size returns the byte length of filename's content, or -1 if the
// filename is unknown.
func (s *Slug) Size(filename string) int {
	content, ok := s.content(filename)
	if !ok {
		return -1
	}
	return len(content)
}

// Hash returns the content hash of filename, or "" if unknown.
func (s *Slug) Hash(filename string) string {
	return s.filenames[filename]
}

// GitHash returns the git blob hash of filename's content, or "" if
// unknown. This is the identity used to compare a slug against git
// trees.
func (s *Slug) GitHash(filename string) string {
	hash, ok := s.filenames[filename]
	if !ok {
		return ""
	}
	return s.gitHashes[hash]
}

// Filenames returns every filename, sorted ascending by byte order.
func (s *Slug) Filenames() []string {
	names := make([]string, 0, len(s.filenames))
	for name := range s.filenames {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of filenames.
func (s *Slug) Len() int {
	return len(s.filenames)
}

// CanonicalJSON returns the canonical JSON encoding of the slug in the
// current format, with a fresh random salt.
func (s *Slug) CanonicalJSON() ([]byte, error) {
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	return currentFormat.canonicalJSON(s, salt)
}

// Payload returns the compressed, base64-encoded canonical JSON in the
// current format. Each call draws a new salt, so two payloads of the
// same slug differ.
func (s *Slug) Payload() (string, error) {
	salt, err := newSalt()
	if err != nil {
		return "", err
	}
	return encodePayload(currentFormat, s, salt)
}

// Sign encodes the slug and returns a signed envelope. Errors from the
// signer are returned unchanged; no unsigned envelope is produced when
// signing fails.
func (s *Slug) Sign(ctx context.Context, with signer.Signer) (string, error) {
	payload, err := s.Payload()
	if err != nil {
		return "", err
	}
	return signPayload(ctx, currentFormat, payload, with)
}

// Unsigned encodes the slug and returns an envelope with empty address
// and signature.
func (s *Slug) Unsigned() (string, error) {
	payload, err := s.Payload()
	if err != nil {
		return "", err
	}
	return Envelope{Payload: payload, Version: currentFormat.version()}.Encode()
}

// SignPayload signs an existing envelope's payload without re-encoding
// it. Used to sign a previously prepared unsigned slug, so the
// published payload is byte-identical to the prepared one.
func SignPayload(ctx context.Context, envelope *Envelope, with signer.Signer) (string, error) {
	format, err := formatFor(envelope.Version)
	if err != nil {
		return "", err
	}
	if format != currentFormat {
		return "", fmt.Errorf("%w: version %d envelopes are read-only", ErrUnsupportedVersion, envelope.Version)
	}
	return signPayload(ctx, format, envelope.Payload, with)
}

func signPayload(ctx context.Context, format format, payload string, with signer.Signer) (string, error) {
	digest, err := format.payloadHash(payload)
	if err != nil {
		return "", err
	}
	signature, err := with.SignDigest(ctx, digest)
	if err != nil {
		return "", err
	}
	return Envelope{
		Address:   with.Address(),
		Payload:   payload,
		Signature: signature,
		Version:   format.version(),
	}.Encode()
}

func (s *Slug) content(filename string) ([]byte, bool) {
	hash, ok := s.filenames[filename]
	if !ok {
		return nil, false
	}
	content, ok := s.contents[hash]
	return content, ok
}

// contentHashes returns every content hash, sorted.
func (s *Slug) contentHashes() []string {
	hashes := make([]string, 0, len(s.contents))
	for hash := range s.contents {
		hashes = append(hashes, hash)
	}
	slices.Sort(hashes)
	return hashes
}

func newSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

func hexWithPrefix(data []byte) string {
	return "0x" + hex.EncodeToString(data)
}
