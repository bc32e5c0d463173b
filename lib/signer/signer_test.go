// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bureau-foundation/slug/lib/secret"
)

// Private key 1 is the smallest valid key; its address is a widely
// published test vector.
const (
	keyOneHex     = "0000000000000000000000000000000000000000000000000000000000000001"
	keyOneAddress = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
)

func newKeySigner(t *testing.T, hexKey string) *KeySigner {
	t.Helper()
	key, err := ParsePrivateKeyHex(hexKey)
	if err != nil {
		t.Fatalf("ParsePrivateKeyHex: %v", err)
	}
	signer, err := NewKeySigner(key)
	if err != nil {
		t.Fatalf("NewKeySigner: %v", err)
	}
	t.Cleanup(func() { signer.Close() })
	return signer
}

func testDigest(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return sum[:]
}

func TestKeySignerAddress(t *testing.T) {
	signer := newKeySigner(t, keyOneHex)
	if got := signer.Address(); got != keyOneAddress {
		t.Errorf("Address() = %s, want %s", got, keyOneAddress)
	}
}

func TestSignRecoverRoundTrip(t *testing.T) {
	signer := newKeySigner(t, "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	digest := testDigest("payload")

	signature, err := signer.SignDigest(context.Background(), digest)
	if err != nil {
		t.Fatalf("SignDigest: %v", err)
	}
	if !strings.HasPrefix(signature, "0x") || len(signature) != 2+2*SignatureSize {
		t.Fatalf("signature %q has wrong shape", signature)
	}
	recovery := signature[len(signature)-2:]
	if recovery != "1b" && recovery != "1c" {
		t.Errorf("recovery byte = %s, want 1b or 1c", recovery)
	}

	recovered, err := Recover(signature, digest)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("Recover = %s, want %s", recovered, signer.Address())
	}
}

func TestRecoverWrongDigest(t *testing.T) {
	signer := newKeySigner(t, keyOneHex)
	signature, err := signer.SignDigest(context.Background(), testDigest("a"))
	if err != nil {
		t.Fatalf("SignDigest: %v", err)
	}

	recovered, err := Recover(signature, testDigest("b"))
	if err == nil && recovered == signer.Address() {
		t.Error("signature over one digest recovered the signer for another digest")
	}
}

func TestRecoverAcceptsRawRecoveryID(t *testing.T) {
	signer := newKeySigner(t, keyOneHex)
	digest := testDigest("raw recovery id")
	signature, err := signer.SignDigest(context.Background(), digest)
	if err != nil {
		t.Fatalf("SignDigest: %v", err)
	}

	raw, _ := hex.DecodeString(signature[2:])
	raw[64] -= 27
	recovered, err := Recover("0x"+hex.EncodeToString(raw), digest)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("Recover = %s, want %s", recovered, signer.Address())
	}
}

func TestRecoverMalformed(t *testing.T) {
	digest := testDigest("x")
	for _, signature := range []string{
		"",
		"deadbeef",
		"0x1234",
		"0x" + strings.Repeat("zz", SignatureSize),
		"0x" + strings.Repeat("00", 64) + "05",
	} {
		if _, err := Recover(signature, digest); err == nil {
			t.Errorf("Recover(%q) succeeded, want error", signature)
		}
	}
}

func TestChecksumAddress(t *testing.T) {
	// Vectors from EIP-55.
	for _, want := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	} {
		if got := ChecksumAddress(strings.ToLower(want)); got != want {
			t.Errorf("ChecksumAddress(lower %s) = %s", want, got)
		}
		if !ValidAddress(want) {
			t.Errorf("ValidAddress(%s) = false", want)
		}
	}
}

func TestValidAddress(t *testing.T) {
	cases := map[string]bool{
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed": true,
		"0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED": true,
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD": false, // bad checksum
		"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed":   false,
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1bea":   false,
		"0xgaaeb6053f3e94c9b9a09f33669435e7ef1beaed": false,
	}
	for address, want := range cases {
		if got := ValidAddress(address); got != want {
			t.Errorf("ValidAddress(%s) = %v, want %v", address, got, want)
		}
	}
}

func TestNewKeySignerRejectsInvalidKeys(t *testing.T) {
	zero, err := secret.NewFromBytes(make([]byte, PrivateKeySize))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	if _, err := NewKeySigner(zero); err == nil {
		t.Error("NewKeySigner accepted the zero key")
	}

	short, err := secret.NewFromBytes([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	if _, err := NewKeySigner(short); err == nil {
		t.Error("NewKeySigner accepted a 3-byte key")
	}

	if _, err := ParsePrivateKeyHex("0x1234"); err == nil {
		t.Error("ParsePrivateKeyHex accepted a short key")
	}
	if _, err := ParsePrivateKeyHex("not hex"); err == nil {
		t.Error("ParsePrivateKeyHex accepted non-hex input")
	}
}

func TestGeneratePrivateKey(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	signer, err := NewKeySigner(key)
	if err != nil {
		t.Fatalf("NewKeySigner: %v", err)
	}
	defer signer.Close()

	if !ValidAddress(signer.Address()) {
		t.Errorf("generated address %s is not valid", signer.Address())
	}

	hexKey, err := signer.HexKey()
	if err != nil {
		t.Fatalf("HexKey: %v", err)
	}
	defer hexKey.Close()

	reparsed := newKeySigner(t, hexKey.String())
	if reparsed.Address() != signer.Address() {
		t.Errorf("HexKey round trip changed address: %s vs %s", reparsed.Address(), signer.Address())
	}
}

// fakeNode answers eth_sign with the given signer's key, optionally
// reporting the recovery byte as a raw 0/1 id.
func fakeNode(t *testing.T, backing *KeySigner, rawRecovery bool) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var decoded rpcRequest
		if err := json.NewDecoder(request.Body).Decode(&decoded); err != nil {
			http.Error(writer, err.Error(), http.StatusBadRequest)
			return
		}
		if decoded.Method != "eth_sign" || len(decoded.Params) != 2 {
			json.NewEncoder(writer).Encode(map[string]any{
				"error": map[string]any{"code": -32601, "message": "method not found"},
			})
			return
		}
		data, _ := decoded.Params[1].(string)
		digest, err := hex.DecodeString(strings.TrimPrefix(data, "0x"))
		if err != nil {
			http.Error(writer, err.Error(), http.StatusBadRequest)
			return
		}
		signature, err := backing.SignDigest(request.Context(), digest)
		if err != nil {
			http.Error(writer, err.Error(), http.StatusInternalServerError)
			return
		}
		if rawRecovery {
			raw, _ := hex.DecodeString(signature[2:])
			raw[64] -= 27
			signature = "0x" + hex.EncodeToString(raw)
		}
		json.NewEncoder(writer).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": signature})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNodeSigner(t *testing.T) {
	backing := newKeySigner(t, keyOneHex)

	for _, rawRecovery := range []bool{false, true} {
		server := fakeNode(t, backing, rawRecovery)
		node, err := NewNodeSigner(server.URL, strings.ToLower(keyOneAddress), server.Client())
		if err != nil {
			t.Fatalf("NewNodeSigner: %v", err)
		}
		if node.Address() != keyOneAddress {
			t.Errorf("Address() = %s, want %s", node.Address(), keyOneAddress)
		}

		digest := testDigest("node")
		signature, err := node.SignDigest(context.Background(), digest)
		if err != nil {
			t.Fatalf("SignDigest (rawRecovery=%v): %v", rawRecovery, err)
		}
		recovered, err := Recover(signature, digest)
		if err != nil {
			t.Fatalf("Recover: %v", err)
		}
		if recovered != keyOneAddress {
			t.Errorf("Recover = %s, want %s", recovered, keyOneAddress)
		}
	}
}

func TestNodeSignerWrongAccount(t *testing.T) {
	backing := newKeySigner(t, keyOneHex)
	server := fakeNode(t, backing, false)

	node, err := NewNodeSigner(server.URL, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", server.Client())
	if err != nil {
		t.Fatalf("NewNodeSigner: %v", err)
	}
	_, err = node.SignDigest(context.Background(), testDigest("x"))
	if err == nil || !strings.Contains(err.Error(), "node signed as") {
		t.Errorf("SignDigest error = %v, want address mismatch", err)
	}
}

func TestNodeSignerRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"authentication needed: password or unlock"}}`))
	}))
	defer server.Close()

	node, err := NewNodeSigner(server.URL, keyOneAddress, server.Client())
	if err != nil {
		t.Fatalf("NewNodeSigner: %v", err)
	}
	_, err = node.SignDigest(context.Background(), testDigest("x"))
	if err == nil || !strings.Contains(err.Error(), "unlock") {
		t.Errorf("SignDigest error = %v, want node error", err)
	}
}

func TestNewNodeSignerValidation(t *testing.T) {
	if _, err := NewNodeSigner("", keyOneAddress, nil); err == nil {
		t.Error("NewNodeSigner accepted an empty URL")
	}
	if _, err := NewNodeSigner("http://localhost:8545", "0x1234", nil); err == nil {
		t.Error("NewNodeSigner accepted a short address")
	}
}
