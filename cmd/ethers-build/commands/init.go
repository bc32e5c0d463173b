// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/account"
)

type initParams struct {
	GlobalParams
	Account    string `json:"-" flag:"account"     desc:"account file to create (default: account_file from config)"`
	WorkFactor int    `json:"-" flag:"work-factor" desc:"scrypt work factor as log2(N); 0 uses the default"`
}

func initCommand(options Options) *cli.Command {
	var params initParams

	return &cli.Command{
		Name:    "init",
		Summary: "Create an encrypted signing account",
		Description: `Generate a new secp256k1 key and store it in an account file,
encrypted with a passphrase. The passphrase is asked for twice on a
terminal, or read from the first line of stdin otherwise.

The account file must never be committed; prepare refuses to include
it in a slug.`,
		Usage:  "ethers-build init [flags]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Create account.json in the current project",
				Command:     "ethers-build init",
			},
			{
				Description: "Create an account elsewhere",
				Command:     "ethers-build init --account ~/keys/site.json",
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

			path := params.Account
			if path == "" {
				path = env.accountPath()
			}
			if _, err := os.Stat(path); err == nil {
				return cli.Conflict("account file %s already exists", path)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return cli.Internal("checking %s: %w", path, err)
			}

			fmt.Fprintln(options.Stderr, "Do NOT lose or forget this password. It cannot be reset.")
			passphrase, err := env.readPassphrase("Password: ", true)
			if err != nil {
				return err
			}
			defer passphrase.Close()

			fmt.Fprintln(options.Stderr, "Encrypting Account... (this may take a few seconds)")
			address, err := account.Create(path, passphrase, params.WorkFactor)
			if err != nil {
				return err
			}
			logger.Info("account created", "path", path, "address", address)

			env.renderer.Success("Account successfully created. Keep this file SAFE. Do NOT check it into source control.")
			env.renderer.Field("Address", address)
			env.renderer.Field("File", path)
			return nil
		},
	}
}
