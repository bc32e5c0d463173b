// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/bureau-foundation/slug/lib/secret"
)

// PrivateKeySize is the byte length of a raw secp256k1 private key.
const PrivateKeySize = 32

// KeySigner signs with a private key held in a [secret.Buffer]. The
// scalar is reconstructed for each signature and zeroed afterwards.
type KeySigner struct {
	key     *secret.Buffer
	address string
}

var _ Signer = (*KeySigner)(nil)

// NewKeySigner takes ownership of key, a raw 32-byte private key, and
// returns a signer for it. The buffer is closed with the signer, or
// immediately if the key is invalid.
func NewKeySigner(key *secret.Buffer) (*KeySigner, error) {
	if key.Len() != PrivateKeySize {
		key.Close()
		return nil, fmt.Errorf("private key is %d bytes, want %d", key.Len(), PrivateKeySize)
	}

	privateKey := secp256k1.PrivKeyFromBytes(key.Bytes())
	defer privateKey.Zero()
	if privateKey.Key.IsZero() {
		key.Close()
		return nil, fmt.Errorf("private key is zero or not below the curve order")
	}

	return &KeySigner{
		key:     key,
		address: AddressFromPublicKey(privateKey.PubKey()),
	}, nil
}

// GeneratePrivateKey returns a fresh random private key in locked
// memory.
func GeneratePrivateKey() (*secret.Buffer, error) {
	privateKey, err := secp256k1.GeneratePrivateKeyFromRand(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating private key: %w", err)
	}
	defer privateKey.Zero()

	raw := privateKey.Serialize()
	return secret.NewFromBytes(raw)
}

// ParsePrivateKeyHex decodes a hex private key (with or without "0x")
// into locked memory. Heap copies of the decoded bytes are zeroed.
func ParsePrivateKeyHex(value string) (*secret.Buffer, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	if len(raw) != PrivateKeySize {
		secret.Zero(raw)
		return nil, fmt.Errorf("private key is %d bytes, want %d", len(raw), PrivateKeySize)
	}
	return secret.NewFromBytes(raw)
}

// Address returns the checksummed address of the key.
func (s *KeySigner) Address() string {
	return s.address
}

// SignDigest signs digest with the EIP-191 personal-message scheme.
func (s *KeySigner) SignDigest(_ context.Context, digest []byte) (string, error) {
	privateKey := secp256k1.PrivKeyFromBytes(s.key.Bytes())
	defer privateKey.Zero()

	// SignCompact puts the recovery code (27 + id for uncompressed
	// keys) first; the wire format wants it last.
	compact := ecdsa.SignCompact(privateKey, MessageHash(digest), false)

	signature := make([]byte, 0, SignatureSize)
	signature = append(signature, compact[1:]...)
	signature = append(signature, compact[0])
	return "0x" + hex.EncodeToString(signature), nil
}

// HexKey returns the private key as lowercase hex in locked memory,
// for sealing into an account file. The caller must Close the result.
func (s *KeySigner) HexKey() (*secret.Buffer, error) {
	encoded := make([]byte, hex.EncodedLen(PrivateKeySize))
	hex.Encode(encoded, s.key.Bytes())
	return secret.NewFromBytes(encoded)
}

// Close releases the private key.
func (s *KeySigner) Close() error {
	return s.key.Close()
}
