// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package slug

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/bureau-foundation/slug/lib/contenthash"
	"github.com/bureau-foundation/slug/lib/signer"
)

// document is the decoded canonical JSON. Absent or null tables decode
// to nil maps.
type document struct {
	Contents  map[string]string `json:"contents"`
	Filenames map[string]string `json:"filenames"`
	Version   int               `json:"version"`
}

// ParsePayload decodes a base64 payload written in the given format
// version and rebuilds the slug by replaying AddData for every file.
func ParsePayload(payload string, version int) (*Slug, error) {
	format, err := formatFor(version)
	if err != nil {
		return nil, err
	}

	compressed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64: %v", ErrInvalidSlug, err)
	}
	canonical, err := format.decompress(compressed)
	if err != nil {
		return nil, err
	}

	var decoded document
	if err := json.Unmarshal(canonical, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding payload JSON: %v", ErrInvalidSlug, err)
	}
	if decoded.Version != format.version() {
		return nil, fmt.Errorf("%w: payload version %d", ErrUnsupportedVersion, decoded.Version)
	}
	if decoded.Contents == nil || decoded.Filenames == nil {
		return nil, fmt.Errorf("%w: payload lacks contents or filenames", ErrInvalidSlug)
	}

	// Replay in sorted order so the first error reported is stable.
	names := make([]string, 0, len(decoded.Filenames))
	for name := range decoded.Filenames {
		names = append(names, name)
	}
	slices.Sort(names)

	result := New()
	for _, name := range names {
		hash := decoded.Filenames[name]
		encoded, ok := decoded.Contents[hash]
		if hash == "" || !ok {
			return nil, fmt.Errorf("%w: %q references %q", ErrMissingContent, name, hash)
		}
		data, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: content %s is not hex: %v", ErrInvalidSlug, hash, err)
		}
		if actual := contenthash.Hash(data); actual != hash {
			return nil, fmt.Errorf("%w: content for %q hashes to %s, table says %s", ErrInvalidSlug, name, actual, hash)
		}
		if err := result.AddData(name, data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSlug, err)
		}
	}
	return result, nil
}

// Verified is a slug whose envelope passed [Verify].
type Verified struct {
	Slug     *Slug
	Envelope *Envelope

	// Address is the checksummed signer address, or "" for an
	// unsigned slug accepted with allowUnsigned.
	Address string
}

// Verify parses envelope JSON and checks its signature. A signed
// envelope must recover to its own address over its payload hash or
// Verify fails with [ErrInvalidSignature]. An unsigned envelope fails
// with [ErrUnsignedSlug] unless allowUnsigned is set.
//
// Verify is the only entry point that may back a trust decision.
func Verify(envelopeJSON []byte, allowUnsigned bool) (*Verified, error) {
	envelope, err := ParseEnvelope(envelopeJSON)
	if err != nil {
		return nil, err
	}
	format, err := formatFor(envelope.Version)
	if err != nil {
		return nil, err
	}

	var address string
	if envelope.Signed() {
		address, err = recoverSigner(format, envelope)
		if err != nil {
			return nil, err
		}
	} else if !allowUnsigned {
		return nil, ErrUnsignedSlug
	}

	parsed, err := ParsePayload(envelope.Payload, envelope.Version)
	if err != nil {
		return nil, err
	}
	return &Verified{Slug: parsed, Envelope: envelope, Address: address}, nil
}

func recoverSigner(format format, envelope *Envelope) (string, error) {
	digest, err := format.payloadHash(envelope.Payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	recovered, err := signer.Recover(envelope.Signature, digest)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !signer.SameAddress(recovered, envelope.Address) {
		return "", fmt.Errorf("%w: signed by %s, envelope claims %q", ErrInvalidSignature, recovered, envelope.Address)
	}
	return recovered, nil
}

// Loaded is a slug read by [Load].
type Loaded struct {
	Slug     *Slug
	Envelope *Envelope

	// Signed is the verified signer address, or "" when the envelope
	// was unsigned or failed verification.
	Signed string

	// VerifyError is why verification failed, when Signed is "".
	VerifyError error
}

// Load reads envelope JSON for display. It tries [Verify] and, on any
// verification failure, falls back to [ParsePayload] with Signed left
// empty. Structural errors in the payload are still returned.
//
// Never use Load where authenticity matters; use [Verify].
func Load(envelopeJSON []byte) (*Loaded, error) {
	verified, verifyErr := Verify(envelopeJSON, false)
	if verifyErr == nil {
		return &Loaded{
			Slug:     verified.Slug,
			Envelope: verified.Envelope,
			Signed:   verified.Address,
		}, nil
	}

	envelope, err := ParseEnvelope(envelopeJSON)
	if err != nil {
		return nil, err
	}
	parsed, err := ParsePayload(envelope.Payload, envelope.Version)
	if err != nil {
		return nil, err
	}
	return &Loaded{
		Slug:        parsed,
		Envelope:    envelope,
		VerifyError: verifyErr,
	}, nil
}
