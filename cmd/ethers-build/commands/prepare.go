// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/contenthash"
	"github.com/bureau-foundation/slug/lib/generator"
	"github.com/bureau-foundation/slug/lib/slug"
)

type prepareParams struct {
	GlobalParams
	Signed bool   `json:"-" flag:"signed" desc:"sign the slug with the configured signer"`
	Out    string `json:"-" flag:"out,o"  desc:"output file (default: <address>.slug, or unsigned.slug)"`
}

func prepareCommand(options Options) *cli.Command {
	var params prepareParams

	return &cli.Command{
		Name:    "prepare",
		Summary: "Build a slug from the files committed at HEAD",
		Description: `Collect every file tracked at HEAD into a slug and write it to
the project directory. Working tree changes are not included; each
one is reported as a warning so nothing is published by surprise.

The account file, the local TLS certificate and existing slugs are
never included. Additional exclusions come from the "exclude" list
in the configuration.

With --signed the slug is signed and written as <address>.slug;
otherwise it is written unsigned as unsigned.slug and can be signed
at publish time.`,
		Usage:  "ethers-build prepare [flags]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Prepare an unsigned slug",
				Command:     "ethers-build prepare",
			},
			{
				Description: "Prepare and sign with the account",
				Command:     "ethers-build prepare --signed",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := unexpectedArgs(args, 0); err != nil {
				return err
			}
			env, err := options.environment(&params.GlobalParams, logger)
			if err != nil {
				return err
			}

			result, err := generator.Generate(ctx, env.repository, generator.Options{
				Exclude: env.config.Exclude,
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			head, err := env.repository.Head(ctx)
			if err != nil {
				return err
			}
			env.renderer.Warnings(result.Warnings)
			env.renderer.List("Adding Files:", result.Added)

			var envelope, filename string
			if params.Signed {
				with, release, err := env.signer("prepare --signed")
				if err != nil {
					return err
				}
				defer release()
				envelope, err = result.Slug.Sign(ctx, with)
				if err != nil {
					return err
				}
				filename = with.Address() + generator.SlugExtension
			} else {
				envelope, err = result.Slug.Unsigned()
				if err != nil {
					return err
				}
				filename = "unsigned" + generator.SlugExtension
			}

			path := params.Out
			if path == "" {
				path = filepath.Join(env.dir, filename)
			}
			if err := os.WriteFile(path, []byte(envelope), 0o644); err != nil {
				return cli.Internal("writing slug: %w", err)
			}

			ref, err := envelopeRef(envelope)
			if err != nil {
				return err
			}
			logger.Info("slug prepared", "path", path, "files", len(result.Added), "ref", ref, "commit", head, "signed", params.Signed)
			env.renderer.Success(fmt.Sprintf("Wrote %s (%d files from %.12s, %s)", path, len(result.Added), head, ref))
			return nil
		},
	}
}

// envelopeRef returns the short display reference of an envelope's
// payload.
func envelopeRef(envelope string) (string, error) {
	parsed, err := slug.ParseEnvelope([]byte(envelope))
	if err != nil {
		return "", err
	}
	return contenthash.ShortRef([]byte(parsed.Payload)), nil
}
