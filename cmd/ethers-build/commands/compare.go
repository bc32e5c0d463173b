// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/slug/cmd/ethers-build/cli"
	"github.com/bureau-foundation/slug/lib/git"
	"github.com/bureau-foundation/slug/lib/versions"
)

// compareParams selects the two sources status and diff compare.
type compareParams struct {
	GlobalParams
	Head      bool     `json:"-" flag:"head"      desc:"compare the HEAD commit"`
	Slugs     []string `json:"-" flag:"slug"      desc:"compare a slug file (repeatable)"`
	Published bool     `json:"-" flag:"published" desc:"compare the account's published versions first"`
	Offline   bool     `json:"-" flag:"offline"   desc:"read published versions from the cache instead of the network"`
}

const compareDescription = `Sources are chosen from the flags in this order: each --slug, then
--head. With --published (or with no flags at all, when an account is
configured) the versions last published by the account come first.
A single source is compared against the staging area (the files on
disk that git knows about). At most two sources can be compared.`

// comparison is a classified difference between two sources.
type comparison struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Result versions.Result `json:"result"`
}

func (e *environment) compare(ctx context.Context, params *compareParams) (*comparison, error) {
	selection := versions.SelectOptions{
		Repository: e.repository,
		SlugPaths:  params.Slugs,
		Head:       params.Head,
		Published:  params.Published,
		Offline:    params.Offline,
		Logger:     e.logger,
	}

	address, err := e.address()
	if err != nil {
		return nil, err
	}
	if address != "" {
		client, err := e.publisher()
		if err != nil {
			return nil, err
		}
		selection.Address = address
		selection.Publisher = client
		selection.Cache = e.cache()
	}

	from, to, err := versions.Select(selection)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	e.logger.Debug("comparing sources", "from", from.Name(), "to", to.Name())

	collected, err := versions.Collect(ctx, []versions.Source{from, to})
	if err != nil {
		return nil, err
	}
	return &comparison{
		From:   from.Name(),
		To:     to.Name(),
		Result: versions.Diff(collected[0], collected[1]),
	}, nil
}

type statusParams struct {
	compareParams
	cli.JSONOutput
}

func statusCommand(options Options) *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:        "status",
		Summary:     "List files that differ between two versions",
		Description: "List added, removed and modified files between two versions.\n\n" + compareDescription,
		Usage:       "ethers-build status [flags]",
		Params:      func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "What would change if HEAD were published",
				Command:     "ethers-build status --published --head",
			},
			{
				Description: "Compare two prepared slugs",
				Command:     "ethers-build status --slug old.slug --slug new.slug",
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
			compared, err := env.compare(ctx, &params.compareParams)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(options.Stdout, compared); done {
				return err
			}
			env.renderer.Status(compared.From, compared.To, compared.Result)
			return nil
		},
	}
}

type diffParams struct {
	compareParams
}

func diffCommand(options Options) *cli.Command {
	var params diffParams

	return &cli.Command{
		Name:        "diff",
		Summary:     "Show line changes between two versions",
		Description: "Show added and removed files, and a line diff of every modified\nfile, between two versions.\n\n" + compareDescription,
		Usage:       "ethers-build diff [flags]",
		Params:      func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Working tree changes since HEAD",
				Command:     "ethers-build diff --head",
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
			compared, err := env.compare(ctx, &params.compareParams)
			if err != nil {
				return err
			}

			for _, change := range compared.Result.Changes {
				env.renderer.Change(change)
				if change.Kind != versions.Modified {
					continue
				}
				// The byte diff is display only. A hash missing from the
				// local object store leaves the classification intact.
				text, err := versions.TextDiff(ctx, env.repository, change, compared.To)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					logger.Warn("line diff unavailable", "filename", change.Filename, "error", err)
					env.renderer.Note("diff unavailable: " + diffFailure(err))
					continue
				}
				if err := env.renderer.Diff(text); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// diffFailure summarizes a failed line diff in one line: git's own
// message when git ran, the error otherwise.
func diffFailure(err error) string {
	text := err.Error()
	var commandError *git.CommandError
	if errors.As(err, &commandError) && strings.TrimSpace(commandError.Stderr) != "" {
		text = commandError.Stderr
	}
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return line
}
