// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/render"
	"github.com/bureau-foundation/slug/lib/slug"
)

type verifyParams struct {
	cli.Verbosity
	cli.JSONOutput
	AllowUnsigned bool `json:"-" flag:"allow-unsigned" desc:"accept a slug without a signature"`
}

type verifyResult struct {
	Valid     bool     `json:"valid"`
	Address   string   `json:"address,omitempty"`
	Error     string   `json:"error,omitempty"`
	Filenames []string `json:"filenames,omitempty"`
}

func verifyCommand(options Options) *cli.Command {
	var params verifyParams

	return &cli.Command{
		Name:    "verify",
		Summary: "Check a slug's signature",
		Description: `Verify that a slug is signed by the address it names and that
every file's content matches its hash. Prints the signer and the
files on success.

Exits with status 1 when the slug is not authentic, including when
it is unsigned unless --allow-unsigned is given.`,
		Usage:  "ethers-build verify SLUG [flags]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Verify a signed slug",
				Command:     "ethers-build verify 0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf.slug",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, "SLUG"); err != nil {
				return err
			}
			data, err := readSlugFile(args[0])
			if err != nil {
				return err
			}

			verified, err := slug.Verify(data, params.AllowUnsigned)
			if errors.Is(err, slug.ErrInvalidSignature) || errors.Is(err, slug.ErrUnsignedSlug) {
				logger.Debug("verification failed", "path", args[0], "error", err)
				if done, jsonErr := params.EmitJSON(options.Stdout, verifyResult{Error: err.Error()}); done {
					if jsonErr != nil {
						return jsonErr
					}
					return &cli.ExitError{Code: 1}
				}
				fmt.Fprintf(options.Stderr, "FAILED: %s: %v\n", args[0], err)
				return &cli.ExitError{Code: 1}
			}
			if err != nil {
				return err
			}

			result := verifyResult{
				Valid:     true,
				Address:   verified.Address,
				Filenames: verified.Slug.Filenames(),
			}
			if done, err := params.EmitJSON(options.Stdout, result); done {
				return err
			}

			renderer := render.New(options.Stdout, "auto")
			if verified.Address == "" {
				renderer.Field("Signer", "(unsigned)")
			} else {
				renderer.Field("Signer", verified.Address)
			}
			renderer.List(fmt.Sprintf("Files (%d):", len(result.Filenames)), result.Filenames)
			renderer.Success("OK")
			return nil
		},
	}
}
