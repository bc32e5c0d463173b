// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides the JSON-over-HTTP plumbing shared by the
// publish API client and the node signer.
//
// Response reads are bounded at MaxResponseSize so a misbehaving server
// cannot exhaust memory. Error bodies are truncated to a readable
// length before they are embedded in error messages.
package netutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxResponseSize bounds JSON response body reads: 64 MB. The largest
// legitimate response is a published-versions listing, which is a few
// hundred bytes per file.
const MaxResponseSize int64 = 64 << 20

// maxErrorBody is how much of an error body is kept for messages.
const maxErrorBody = 512

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ErrorBody condenses an error response body for a diagnostic message:
// whitespace trimmed, truncated to a few hundred bytes.
func ErrorBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "…"
	}
	return text
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// PostJSON encodes request as JSON, POSTs it to url and reads the
// response. Non-2xx statuses are returned as a Response, not an error;
// the caller decides how to interpret them.
func PostJSON(ctx context.Context, client *http.Client, url string, request any) (*Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	httpResponse, err := client.Do(httpRequest)
	if err != nil {
		return nil, err
	}
	defer httpResponse.Body.Close()

	body, err := ReadResponse(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &Response{StatusCode: httpResponse.StatusCode, Body: body}, nil
}
