// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/slug"
	"github.com/bureau-foundation/slug/lib/slugfs"
)

type mountParams struct {
	cli.Verbosity
	AllowUnsigned bool `json:"-" flag:"allow-unsigned" desc:"mount a slug without a signature"`
	AllowOther    bool `json:"-" flag:"allow-other"    desc:"let other users read the mount (needs user_allow_other in /etc/fuse.conf)"`
}

func mountCommand(options Options) *cli.Command {
	var params mountParams

	return &cli.Command{
		Name:    "mount",
		Summary: "Mount a slug as a read-only filesystem",
		Description: `Verify a slug and expose its files under MOUNTPOINT through FUSE.
Directories are synthesized from the slash-separated filenames. The
mount is read-only and stays up until interrupted or unmounted.`,
		Usage:  "ethers-build mount SLUG MOUNTPOINT [flags]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Browse a prepared slug",
				Command:     "ethers-build mount --allow-unsigned unsigned.slug /tmp/site",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, "SLUG", "MOUNTPOINT"); err != nil {
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

			server, err := slugfs.Mount(slugfs.Options{
				Mountpoint: args[1],
				Slug:       verified.Slug,
				AllowOther: params.AllowOther,
				Logger:     logger,
			})
			if err != nil {
				return cli.Internal("mounting %s: %w", args[1], err)
			}
			fmt.Fprintf(options.Stderr, "Mounted %s at %s (%d files). Interrupt to unmount.\n",
				args[0], args[1], verified.Slug.Len())

			unmounted := make(chan struct{})
			go func() {
				server.Wait()
				close(unmounted)
			}()

			select {
			case <-ctx.Done():
				logger.Info("unmounting", "mountpoint", args[1])
				if err := server.Unmount(); err != nil {
					return cli.Internal("unmounting %s: %w", args[1], err)
				}
				<-unmounted
			case <-unmounted:
				logger.Info("filesystem unmounted externally", "mountpoint", args[1])
			}
			return nil
		},
	}
}
