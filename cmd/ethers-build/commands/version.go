// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/version"
)

type versionParams struct {
	Full bool `json:"-" flag:"full" desc:"include commit, build time and slug format"`
}

func versionCommand(options Options) *cli.Command {
	var params versionParams

	return &cli.Command{
		Name:    "version",
		Summary: "Print the ethers-build version",
		Usage:   "ethers-build version [--full]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := unexpectedArgs(args, 0); err != nil {
				return err
			}
			if params.Full {
				fmt.Fprintln(options.Stdout, version.Full())
				return nil
			}
			fmt.Fprintln(options.Stdout, "ethers-build "+version.Info())
			return nil
		},
	}
}
