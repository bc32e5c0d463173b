// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands implements the ethers-build command tree.
package commands

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
)

// Options carries the process streams and transports commands use.
// Zero fields fall back to the process defaults.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// HTTPClient is used for the publishing service and node signers.
	HTTPClient *http.Client
}

func (o Options) withDefaults() Options {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	return o
}

// Root returns the ethers-build command tree.
func Root(options Options) *cli.Command {
	options = options.withDefaults()

	root := &cli.Command{
		Name:    "ethers-build",
		Stderr:  options.Stderr,
		Summary: "Build, sign and publish content-addressed site bundles",
		Description: `ethers-build packages the files committed at HEAD of a git
repository into a slug: a compressed, content-addressed bundle that
can be signed with an Ethereum account and published.

Project settings come from --config, $ETHERS_BUILD_CONFIG, or
ethers-build.yaml in the project directory, in that order.`,
		Subcommands: []*cli.Command{
			initCommand(options),
			prepareCommand(options),
			publishCommand(options),
			statusCommand(options),
			diffCommand(options),
			verifyCommand(options),
			inspectCommand(options),
			catCommand(options),
			mountCommand(options),
			versionCommand(options),
		},
	}

	for _, command := range root.Subcommands {
		run := command.Run
		command.Run = func(ctx context.Context, args []string, logger *slog.Logger) error {
			return classify(run(ctx, args, logger))
		}
	}
	return root
}
