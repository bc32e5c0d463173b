// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bureau-foundation/slug/lib/netutil"
)

// NodeSigner signs through a remote node's eth_sign JSON-RPC method.
// The node holds the key; eth_sign applies the same personal-message
// prefix that [KeySigner] does, so signatures from either verify with
// [Recover].
type NodeSigner struct {
	url        string
	address    string
	httpClient *http.Client
}

var _ Signer = (*NodeSigner)(nil)

// NewNodeSigner returns a signer for address backed by the node at
// url. httpClient may be nil for http.DefaultClient.
func NewNodeSigner(url, address string, httpClient *http.Client) (*NodeSigner, error) {
	if url == "" {
		return nil, fmt.Errorf("node URL is required")
	}
	if !ValidAddress(address) {
		return nil, fmt.Errorf("invalid account address %q", address)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &NodeSigner{
		url:        url,
		address:    ChecksumAddress(address),
		httpClient: httpClient,
	}, nil
}

// Address returns the checksummed address the node signs for.
func (s *NodeSigner) Address() string {
	return s.address
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result string    `json:"result"`
	Error  *rpcError `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SignDigest asks the node to eth_sign digest and checks that the
// returned signature recovers to the expected address.
func (s *NodeSigner) SignDigest(ctx context.Context, digest []byte) (string, error) {
	response, err := netutil.PostJSON(ctx, s.httpClient, s.url, rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_sign",
		Params:  []any{strings.ToLower(s.address), "0x" + hex.EncodeToString(digest)},
	})
	if err != nil {
		return "", fmt.Errorf("eth_sign: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("eth_sign: HTTP %d: %s", response.StatusCode, netutil.ErrorBody(response.Body))
	}

	var decoded rpcResponse
	if err := json.Unmarshal(response.Body, &decoded); err != nil {
		return "", fmt.Errorf("eth_sign: decoding response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("eth_sign: node error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}

	signature, err := normalizeSignature(decoded.Result)
	if err != nil {
		return "", fmt.Errorf("eth_sign: %w", err)
	}

	recovered, err := Recover(signature, digest)
	if err != nil {
		return "", fmt.Errorf("eth_sign: %w", err)
	}
	if !SameAddress(recovered, s.address) {
		return "", fmt.Errorf("eth_sign: node signed as %s, want %s", recovered, s.address)
	}
	return signature, nil
}

// normalizeSignature lowercases the hex and moves a 0/1 recovery byte
// to 27/28. Some nodes return the raw recovery id.
func normalizeSignature(signature string) (string, error) {
	raw, err := decodeHex(strings.ToLower(signature))
	if err != nil {
		return "", fmt.Errorf("decoding signature: %w", err)
	}
	if len(raw) != SignatureSize {
		return "", fmt.Errorf("signature is %d bytes, want %d", len(raw), SignatureSize)
	}
	if raw[64] < 27 {
		raw[64] += 27
	}
	return "0x" + hex.EncodeToString(raw), nil
}
