// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package slug

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gowebpki/jcs"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/bureau-foundation/slug/lib/contenthash"
)

// CurrentVersion is the format version written by this package.
const CurrentVersion = 2

// MaxDecompressedSize bounds the canonical JSON a payload may expand
// to. Larger payloads are rejected as invalid.
const MaxDecompressedSize = 512 << 20

// format is one version of the slug encoding. Each version owns its
// compression, its canonical document shape, and the hash that
// signatures cover.
type format interface {
	version() int

	compress(data []byte) ([]byte, error)
	decompress(data []byte) ([]byte, error)

	// canonicalJSON encodes s. Versions without a salt ignore it.
	canonicalJSON(s *Slug, salt []byte) ([]byte, error)

	// payloadHash returns the digest that envelope signatures cover.
	payloadHash(payload string) ([]byte, error)
}

var (
	formatV1 format = legacyFormat{}
	formatV2 format = zlibFormat{}

	currentFormat = formatV2

	formats = map[int]format{
		1: formatV1,
		2: formatV2,
	}
)

func formatFor(version int) (format, error) {
	format, ok := formats[version]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return format, nil
}

// zlibFormat is version 2: zlib deflate, salt and gitHashes present,
// signatures cover the SHA-256 of the decoded payload bytes.
type zlibFormat struct{}

func (zlibFormat) version() int { return 2 }

func (zlibFormat) compress(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := zlib.NewWriter(&buffer)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("deflating payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("deflating payload: %w", err)
	}
	return buffer.Bytes(), nil
}

func (zlibFormat) decompress(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: inflating payload: %v", ErrInvalidSlug, err)
	}
	defer reader.Close()
	return readBounded(reader)
}

func (zlibFormat) canonicalJSON(s *Slug, salt []byte) ([]byte, error) {
	document := baseDocument(s, 2)
	gitHashes := make(map[string]string, len(s.contents))
	for hash := range s.contents {
		gitHashes[hash] = s.gitHashes[hash]
	}
	document["gitHashes"] = gitHashes
	document["salt"] = hexWithPrefix(salt)
	return canonicalize(document)
}

func (zlibFormat) payloadHash(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64: %v", ErrInvalidSlug, err)
	}
	return contenthash.Bytes(raw), nil
}

// legacyFormat is version 1: gzip, no salt or gitHashes, signatures
// cover the SHA-256 of the base64 payload text. Read-only.
type legacyFormat struct{}

func (legacyFormat) version() int { return 1 }

func (legacyFormat) compress(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("gzipping payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzipping payload: %w", err)
	}
	return buffer.Bytes(), nil
}

func (legacyFormat) decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gunzipping payload: %v", ErrInvalidSlug, err)
	}
	defer reader.Close()
	return readBounded(reader)
}

func (legacyFormat) canonicalJSON(s *Slug, _ []byte) ([]byte, error) {
	return canonicalize(baseDocument(s, 1))
}

func (legacyFormat) payloadHash(payload string) ([]byte, error) {
	return contenthash.Bytes([]byte(payload)), nil
}

// baseDocument builds the contents and filenames tables shared by every
// version. Content is hex without a prefix.
func baseDocument(s *Slug, version int) map[string]any {
	contents := make(map[string]string, len(s.contents))
	for hash, data := range s.contents {
		contents[hash] = hex.EncodeToString(data)
	}
	filenames := make(map[string]string, len(s.filenames))
	for name, hash := range s.filenames {
		filenames[name] = hash
	}
	return map[string]any{
		"contents":  contents,
		"filenames": filenames,
		"version":   version,
	}
}

// canonicalize serializes document per RFC 8785: keys sorted by UTF-16
// code units, no insignificant whitespace, no HTML escaping. This is
// byte-for-byte what JSON.stringify emits for an object whose keys were
// inserted in sorted order, except that JavaScript lists integer-like
// keys (a filename such as "404") first in numeric order. Such names
// still sort as strings here.
func canonicalize(document any) ([]byte, error) {
	encoded, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("encoding slug JSON: %w", err)
	}
	canonical, err := jcs.Transform(encoded)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing slug JSON: %w", err)
	}
	return canonical, nil
}

func encodePayload(format format, s *Slug, salt []byte) (string, error) {
	document, err := format.canonicalJSON(s, salt)
	if err != nil {
		return "", err
	}
	compressed, err := format.compress(document)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

func readBounded(reader io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing payload: %v", ErrInvalidSlug, err)
	}
	if len(data) > MaxDecompressedSize {
		return nil, fmt.Errorf("%w: payload expands beyond %d bytes", ErrInvalidSlug, MaxDecompressedSize)
	}
	return data, nil
}
