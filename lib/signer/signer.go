// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package signer provides the signing capability used to authenticate
// slug envelopes.
//
// A [Signer] has an account address and signs 32-byte digests. The
// signature scheme is the Ethereum personal-message scheme (EIP-191):
// the digest is prefixed with "\x19Ethereum Signed Message:\n32",
// hashed with Keccak-256, and signed with secp256k1. Signatures are 65
// bytes, r || s || v with v in {27, 28}, hex-encoded with a "0x"
// prefix. [Recover] is the inverse: it returns the address that
// produced a signature, so verification needs no key material.
//
// Concrete signers are chosen by configuration:
//
//   - [KeySigner]: a raw private key held in locked memory. The account
//     file (lib/account) decrypts into one of these.
//   - [NodeSigner]: delegates to a remote node's eth_sign JSON-RPC
//     method, for keys that never leave the node.
package signer

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// SignatureSize is the byte length of an encoded signature.
const SignatureSize = 65

// Signer signs digests on behalf of one account address.
type Signer interface {
	// Address returns the EIP-55 checksummed account address.
	Address() string

	// SignDigest signs digest and returns a "0x"-prefixed 65-byte
	// signature. Failures (locked keys, refused confirmation, node
	// errors) are returned unchanged; there is no unsigned fallback.
	SignDigest(ctx context.Context, digest []byte) (string, error)
}

// Recover returns the checksummed address whose key produced
// signature over digest.
func Recover(signature string, digest []byte) (string, error) {
	raw, err := decodeHex(signature)
	if err != nil {
		return "", fmt.Errorf("decoding signature: %w", err)
	}
	if len(raw) != SignatureSize {
		return "", fmt.Errorf("signature is %d bytes, want %d", len(raw), SignatureSize)
	}

	recovery := raw[64]
	if recovery < 27 {
		recovery += 27
	}
	if recovery != 27 && recovery != 28 {
		return "", fmt.Errorf("signature recovery byte %d out of range", raw[64])
	}

	// ecdsa.RecoverCompact wants the recovery code first.
	compact := make([]byte, 0, SignatureSize)
	compact = append(compact, recovery)
	compact = append(compact, raw[:64]...)

	publicKey, _, err := ecdsa.RecoverCompact(compact, MessageHash(digest))
	if err != nil {
		return "", fmt.Errorf("recovering public key: %w", err)
	}
	return AddressFromPublicKey(publicKey), nil
}

// MessageHash returns the EIP-191 personal-message hash of message:
// keccak256("\x19Ethereum Signed Message:\n" + len(message) + message).
func MessageHash(message []byte) []byte {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message))
	return keccak256([]byte(prefix), message)
}

// AddressFromPublicKey derives the account address of publicKey: the
// last 20 bytes of the Keccak-256 hash of the uncompressed point,
// without its 0x04 prefix.
func AddressFromPublicKey(publicKey *secp256k1.PublicKey) string {
	uncompressed := publicKey.SerializeUncompressed()
	hash := keccak256(uncompressed[1:])
	return ChecksumAddress(hex.EncodeToString(hash[12:]))
}

// ChecksumAddress returns the EIP-55 mixed-case form of a hex address.
// The input may have any case and an optional "0x" prefix.
func ChecksumAddress(address string) string {
	lower := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X"))
	hash := hex.EncodeToString(keccak256([]byte(lower)))

	var builder strings.Builder
	builder.Grow(len(lower) + 2)
	builder.WriteString("0x")
	for index, character := range lower {
		if character >= 'a' && character <= 'f' && hash[index] >= '8' {
			builder.WriteRune(character - 'a' + 'A')
			continue
		}
		builder.WriteRune(character)
	}
	return builder.String()
}

// ValidAddress reports whether address is "0x" followed by 40 hex
// digits. Mixed-case input must match its EIP-55 checksum.
func ValidAddress(address string) bool {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return false
	}
	if _, err := hex.DecodeString(address[2:]); err != nil {
		return false
	}
	body := address[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return ChecksumAddress(address) == address
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

func keccak256(parts ...[]byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	for _, part := range parts {
		hasher.Write(part)
	}
	return hasher.Sum(nil)
}

func decodeHex(value string) ([]byte, error) {
	if !strings.HasPrefix(value, "0x") {
		return nil, fmt.Errorf("missing 0x prefix")
	}
	return hex.DecodeString(value[2:])
}
