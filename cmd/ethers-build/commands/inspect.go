// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/contenthash"
	"github.com/bureau-foundation/slug/lib/render"
	"github.com/bureau-foundation/slug/lib/slug"
)

type inspectParams struct {
	cli.Verbosity
	cli.JSONOutput
}

type inspectFile struct {
	Filename string `json:"filename"`
	Size     int    `json:"size"`
	Hash     string `json:"hash"`
	GitHash  string `json:"git_hash"`
}

type inspectResult struct {
	Version int    `json:"version"`
	Ref     string `json:"ref"`

	// Address is the address the envelope claims.
	Address string `json:"address,omitempty"`

	// Verified is the recovered signer; empty when unsigned or when
	// verification failed.
	Verified    string        `json:"verified,omitempty"`
	VerifyError string        `json:"verify_error,omitempty"`
	Files       []inspectFile `json:"files"`
}

func inspectCommand(options Options) *cli.Command {
	var params inspectParams

	return &cli.Command{
		Name:    "inspect",
		Summary: "Show what a slug contains",
		Description: `List a slug's files with their sizes, content hashes and git blob
hashes, along with the format version and signer.

inspect reads slugs that fail verification too, reporting why. Use
verify before trusting a slug.`,
		Usage:  "ethers-build inspect SLUG [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, "SLUG"); err != nil {
				return err
			}
			data, err := readSlugFile(args[0])
			if err != nil {
				return err
			}
			loaded, err := slug.Load(data)
			if err != nil {
				return err
			}

			result := inspectResult{
				Version:  loaded.Envelope.Version,
				Ref:      contenthash.ShortRef([]byte(loaded.Envelope.Payload)),
				Address:  loaded.Envelope.Address,
				Verified: loaded.Signed,
				Files:    []inspectFile{},
			}
			if loaded.VerifyError != nil {
				result.VerifyError = loaded.VerifyError.Error()
			}
			for _, filename := range loaded.Slug.Filenames() {
				result.Files = append(result.Files, inspectFile{
					Filename: filename,
					Size:     loaded.Slug.Size(filename),
					Hash:     loaded.Slug.Hash(filename),
					GitHash:  loaded.Slug.GitHash(filename),
				})
			}

			if done, err := params.EmitJSON(options.Stdout, result); done {
				return err
			}

			renderer := render.New(options.Stdout, "auto")
			renderer.Field("Ref", result.Ref)
			renderer.Field("Version", fmt.Sprint(result.Version))
			switch {
			case result.Verified != "":
				renderer.Field("Signer", result.Verified)
			case result.VerifyError != "":
				renderer.Field("Signer", "NOT VERIFIED: "+result.VerifyError)
			default:
				renderer.Field("Signer", "(unsigned)")
			}
			renderer.Line("")

			writer := tabwriter.NewWriter(options.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(writer, "SIZE\tGIT HASH\tFILENAME\n")
			for _, file := range result.Files {
				fmt.Fprintf(writer, "%d\t%s\t%s\n", file.Size, file.GitHash, file.Filename)
			}
			return writer.Flush()
		},
	}
}
