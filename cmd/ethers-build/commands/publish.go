// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/slug"
)

// appNetworks are the ethers.io front ends that can open a published
// application, in display order.
var appNetworks = []struct {
	name string
	url  string
}{
	{"Mainnet", "https://ethers.io/#!/app-link/"},
	{"Ropsten", "https://ropsten.ethers.io/#!/app-link/"},
	{"Rinkeby", "https://rinkeby.ethers.io/#!/app-link/"},
	{"Kovan", "https://kovan.ethers.io/#!/app-link/"},
}

type publishParams struct {
	GlobalParams
}

func publishCommand(options Options) *cli.Command {
	var params publishParams

	return &cli.Command{
		Name:    "publish",
		Summary: "Publish a prepared slug",
		Description: `Upload a slug to the publishing service. An unsigned slug is
signed with the configured signer first; a signed slug is sent as is
and must carry a valid signature.

After a successful upload the published versions cache is updated so
that "status --published --offline" reflects the new release.`,
		Usage:  "ethers-build publish SLUG [flags]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Sign and publish an unsigned slug",
				Command:     "ethers-build publish unsigned.slug",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, "SLUG"); err != nil {
				return err
			}
			env, err := options.environment(&params.GlobalParams, logger)
			if err != nil {
				return err
			}

			data, err := readSlugFile(args[0])
			if err != nil {
				return err
			}
			verified, err := slug.Verify(data, true)
			if errors.Is(err, slug.ErrInvalidSignature) {
				return cli.Validation("refusing to publish %s: %w", args[0], err)
			}
			if err != nil {
				return err
			}

			envelope := string(data)
			address := verified.Address
			if address == "" {
				with, release, err := env.signer("publishing an unsigned slug")
				if err != nil {
					return err
				}
				defer release()
				envelope, err = slug.SignPayload(ctx, verified.Envelope, with)
				if err != nil {
					return err
				}
				address = with.Address()
			}

			client, err := env.publisher()
			if err != nil {
				return err
			}
			host, err := client.AddSlug(ctx, envelope)
			if err != nil {
				return err
			}
			logger.Info("slug published", "address", address, "host", host)

			if cache := env.cache(); cache != nil {
				published := make(map[string]string, verified.Slug.Len())
				for _, filename := range verified.Slug.Filenames() {
					published[filename] = verified.Slug.GitHash(filename)
				}
				if err := cache.Store(address, published); err != nil {
					logger.Warn("updating published versions cache", "error", err)
				}
			}

			published, err := client.Published(ctx, address)
			if err != nil {
				logger.Warn("reading publication record", "error", err)
			} else if published != nil {
				env.renderer.Field("Publication nonce", fmt.Sprint(published.Nonce))
			}

			var urls []string
			for _, network := range appNetworks {
				urls = append(urls, fmt.Sprintf("%-10s%s%s", network.name+":", network.url, host))
			}
			env.renderer.List("Application URLs:", urls)
			env.renderer.Success("Successfully deployed!")
			return nil
		},
	}
}

