// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"io/fs"
	"net"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/account"
	"github.com/bureau-foundation/slug/lib/generator"
	"github.com/bureau-foundation/slug/lib/publishapi"
	"github.com/bureau-foundation/slug/lib/sealed"
	"github.com/bureau-foundation/slug/lib/slug"
	"github.com/bureau-foundation/slug/lib/versions"
)

// classify attaches a [cli.ErrorCategory] to errors returned by the
// libraries. Errors that already carry a category, and exit codes, are
// returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var toolError *cli.ToolError
	var exitError *cli.ExitError
	if errors.As(err, &toolError) || errors.As(err, &exitError) {
		return err
	}

	var netError net.Error
	switch {
	case errors.Is(err, account.ErrExists):
		return cli.Conflict("%w", err)
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, generator.ErrNoFilesFound):
		return cli.NotFound("%w", err)
	case errors.Is(err, sealed.ErrIncorrectPassphrase),
		publishapi.IsForbidden(err):
		return cli.Forbidden("%w", err)
	case publishapi.IsTransient(err), errors.As(err, &netError):
		return cli.Transient("%w", err)
	case errors.Is(err, slug.ErrInvalidInput),
		errors.Is(err, slug.ErrInvalidSlug),
		errors.Is(err, slug.ErrUnsupportedVersion),
		errors.Is(err, slug.ErrMissingContent),
		errors.Is(err, slug.ErrInvalidSignature),
		errors.Is(err, slug.ErrUnsignedSlug),
		errors.Is(err, versions.ErrNoSources),
		errors.Is(err, versions.ErrTooManySources):
		return cli.Validation("%w", err)
	default:
		return cli.Internal("%w", err)
	}
}
