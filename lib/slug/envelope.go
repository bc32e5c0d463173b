// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package slug

import (
	"encoding/json"
	"fmt"
)

// Envelope is the outer JSON object of a slug file. Address and
// Signature are both empty for an unsigned slug.
type Envelope struct {
	Address   string `json:"address"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
	Version   int    `json:"version"`
}

// Signed reports whether the envelope carries a signature.
func (e Envelope) Signed() bool {
	return e.Signature != ""
}

// Encode returns the envelope as canonical JSON.
func (e Envelope) Encode() (string, error) {
	encoded, err := canonicalize(e)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// ParseEnvelope decodes envelope JSON. It checks only that the JSON is
// well-formed and has a payload; versions and signatures are checked
// by [Verify] and [ParsePayload].
func ParseEnvelope(data []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding envelope: %v", ErrInvalidSlug, err)
	}
	if envelope.Payload == "" {
		return nil, fmt.Errorf("%w: envelope has no payload", ErrInvalidSlug)
	}
	return &envelope, nil
}
