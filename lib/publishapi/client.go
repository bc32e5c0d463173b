// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package publishapi is a client for the slug publishing service.
//
// The service speaks JSON over a single endpoint: every request is a
// POST of {"action": ..., ...} and every successful response carries
// "status": 200 alongside the action's result. [Client] wraps the three
// actions this tool needs. Failures surface as *APIError; nothing is
// retried.
//
// [Cache] keeps the last published versions fetched for each address
// so status and diff can run offline.
package publishapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/slug/lib/netutil"
	"github.com/bureau-foundation/slug/lib/signer"
	"github.com/bureau-foundation/slug/lib/slug"
)

// DefaultURL is the public publishing endpoint.
const DefaultURL = "https://api.ethers.io/api/v1/"

// HostSuffix is appended to the lowercase account address to form the
// host an account's published slug is served from.
const HostSuffix = ".ethers.space"

// Config holds configuration for creating a Client.
type Config struct {
	// URL is the API endpoint. Defaults to DefaultURL. Must use HTTPS
	// unless the host is a loopback address.
	URL string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client calls the publishing service.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates config and returns a Client.
func NewClient(config Config) (*Client, error) {
	endpoint := config.URL
	if endpoint == "" {
		endpoint = DefaultURL
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("publishapi: invalid URL %q: %w", endpoint, err)
	}
	if parsed.Scheme != "https" && !(parsed.Scheme == "http" && isLoopback(parsed.Hostname())) {
		return nil, fmt.Errorf("publishapi: API URL must use HTTPS (got %q)", endpoint)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{url: endpoint, httpClient: httpClient, logger: logger}, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// SlugVersions returns the filename to git blob hash mapping an address
// last published. Untracked entries map to "".
func (c *Client) SlugVersions(ctx context.Context, address string) (map[string]string, error) {
	if !signer.ValidAddress(address) {
		return nil, fmt.Errorf("publishapi: invalid address %q", address)
	}
	var response struct {
		Versions map[string]*string `json:"versions"`
	}
	err := c.call(ctx, "getSlugVersions", map[string]string{
		"action":  "getSlugVersions",
		"address": signer.ChecksumAddress(address),
	}, &response)
	if err != nil {
		return nil, err
	}

	versions := make(map[string]string, len(response.Versions))
	for name, hash := range response.Versions {
		if hash == nil {
			versions[name] = ""
			continue
		}
		versions[name] = *hash
	}
	return versions, nil
}

// AddSlug publishes a signed envelope and returns the host it will be
// served from.
func (c *Client) AddSlug(ctx context.Context, envelope string) (string, error) {
	parsed, err := slug.ParseEnvelope([]byte(envelope))
	if err != nil {
		return "", err
	}
	if !parsed.Signed() || parsed.Address == "" {
		return "", fmt.Errorf("publishapi: %w", slug.ErrUnsignedSlug)
	}

	err = c.call(ctx, "addSlug", map[string]string{
		"action": "addSlug",
		"slug":   envelope,
	}, nil)
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Address) + HostSuffix, nil
}

// Published is the service's record of an address's current
// publication.
type Published struct {
	Nonce int64  `json:"nonce"`
	Tag   string `json:"tag,omitempty"`
}

// Published returns the publication record for address, or nil if the
// address has never published.
func (c *Client) Published(ctx context.Context, address string) (*Published, error) {
	if !signer.ValidAddress(address) {
		return nil, fmt.Errorf("publishapi: invalid address %q", address)
	}
	var response struct {
		Published *Published `json:"published"`
	}
	err := c.call(ctx, "getPublished", map[string]string{
		"action":  "getPublished",
		"address": signer.ChecksumAddress(address),
	}, &response)
	if err != nil {
		return nil, err
	}
	return response.Published, nil
}

// call posts request and decodes the response into result (which may
// be nil). Both a non-2xx HTTP status and a body status other than 200
// are *APIError.
func (c *Client) call(ctx context.Context, action string, request any, result any) error {
	c.logger.Debug("publish API request", "action", action, "url", c.url)

	response, err := netutil.PostJSON(ctx, c.httpClient, c.url, request)
	if err != nil {
		return fmt.Errorf("publishapi: %s: %w", action, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &APIError{
			Action:     action,
			HTTPStatus: response.StatusCode,
			Message:    netutil.ErrorBody(response.Body),
		}
	}

	var envelope struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(response.Body, &envelope); err != nil {
		return &APIError{
			Action:     action,
			HTTPStatus: response.StatusCode,
			Message:    "invalid response: " + netutil.ErrorBody(response.Body),
		}
	}
	if envelope.Status != 200 {
		return &APIError{
			Action:     action,
			HTTPStatus: response.StatusCode,
			Status:     envelope.Status,
			Message:    envelope.Message,
		}
	}

	if result != nil {
		if err := json.Unmarshal(response.Body, result); err != nil {
			return fmt.Errorf("publishapi: %s: decoding result: %w", action, err)
		}
	}
	c.logger.Debug("publish API response", "action", action, "bytes", len(response.Body))
	return nil
}
