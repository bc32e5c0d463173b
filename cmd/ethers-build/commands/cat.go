// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/slug"
)

type catParams struct {
	cli.Verbosity
	AllowUnsigned bool `json:"-" flag:"allow-unsigned" desc:"read a slug without a signature"`
}

func catCommand(options Options) *cli.Command {
	var params catParams

	return &cli.Command{
		Name:    "cat",
		Summary: "Print one file from a slug",
		Description: `Write the content of FILE, as stored in a verified slug, to
stdout.`,
		Usage:  "ethers-build cat SLUG FILE [flags]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Show the published index page",
				Command:     "ethers-build cat site.slug index.html",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, "SLUG", "FILE"); err != nil {
				return err
			}
			data, err := readSlugFile(args[0])
			if err != nil {
				return err
			}
			verified, err := slug.Verify(data, params.AllowUnsigned)
			if err != nil {
				return err
			}

			filename := args[1]
			if verified.Slug.Size(filename) < 0 {
				return cli.NotFound("%s is not in %s", filename, args[0])
			}
			_, err = options.Stdout.Write(verified.Slug.Data(filename))
			return err
		},
	}
}
