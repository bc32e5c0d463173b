// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contenthash

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/zeebo/blake3"
)

// Size is the byte length of a content hash digest.
const Size = sha256.Size

// refDomainKey is the BLAKE3 key for short payload references. The
// bytes are the ASCII domain name, zero-padded to 32 bytes, so the key
// is readable in hex dumps.
var refDomainKey = [32]byte{
	's', 'l', 'u', 'g', '.', 'p', 'a', 'y', 'l', 'o', 'a', 'd', '.',
	'r', 'e', 'f', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Hash returns the content hash of data: SHA-256 formatted as "0x"
// followed by lowercase hex.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return "0x" + hex.EncodeToString(sum[:])
}

// Bytes returns the raw SHA-256 digest of data. Signers sign this
// digest; [Hash] is its display form.
func Bytes(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// GitBlobHash returns the git object identity of data as a blob: the
// lowercase hex SHA-1 of "blob <len>\x00" followed by data. This is
// the hash "git ls-tree" reports, so it lets slug content be compared
// against git history without writing objects.
func GitBlobHash(data []byte) string {
	hasher := sha1.New()
	hasher.Write([]byte("blob " + strconv.Itoa(len(data)) + "\x00"))
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// ShortRef returns the operator-facing reference for a compressed
// payload: "slug-" followed by the first 12 hex digits of its BLAKE3
// keyed hash.
func ShortRef(payload []byte) string {
	hasher, err := blake3.NewKeyed(refDomainKey[:])
	if err != nil {
		// NewKeyed only fails for keys that are not 32 bytes.
		panic("contenthash: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	sum := hasher.Sum(nil)
	return "slug-" + hex.EncodeToString(sum[:6])
}
