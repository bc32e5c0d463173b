// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publishapi

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a failed publishing service call: either a non-2xx HTTP
// response or a response body whose status is not 200.
type APIError struct {
	// Action is the request action, e.g. "addSlug".
	Action string

	// HTTPStatus is the HTTP response status code.
	HTTPStatus int

	// Status is the status field of the response body, when the body
	// was decodable.
	Status int

	// Message is the service's message or a condensed response body.
	Message string
}

func (err *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "publishapi: %s failed: HTTP %d", err.Action, err.HTTPStatus)
	if err.Status != 0 {
		fmt.Fprintf(&builder, ", status %d", err.Status)
	}
	if err.Message != "" {
		fmt.Fprintf(&builder, ": %s", err.Message)
	}
	return builder.String()
}

// IsTransient reports whether err is a server-side failure worth
// retrying by hand: an HTTP 5xx or 429.
func IsTransient(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.HTTPStatus >= 500 || apiError.HTTPStatus == 429
}

// IsForbidden reports whether the service rejected the request as
// unauthorized, by HTTP status or body status.
func IsForbidden(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.HTTPStatus == 401 || apiError.HTTPStatus == 403 ||
		apiError.Status == 401 || apiError.Status == 403
}
