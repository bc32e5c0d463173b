// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoSources is returned by [Select] when nothing was requested and
// there is no account to compare against.
var ErrNoSources = errors.New("no sources to compare")

// ErrTooManySources is returned by [Select] when more than two sources
// were requested.
var ErrTooManySources = errors.New("at most two sources can be compared")

// SelectOptions describes the sources a command asked for.
type SelectOptions struct {
	Repository Repository

	// SlugPaths are slug files to compare, in order.
	SlugPaths []string

	// Head adds the HEAD revision as a source.
	Head bool

	// Published puts the account's published versions first.
	Published bool

	// Address is the account address, or "" when there is no account.
	Address   string
	Publisher Publisher
	Cache     Cache
	Offline   bool
	Logger    *slog.Logger
}

// Select returns the (from, to) pair of sources to compare:
//
//   - each slug path, then HEAD if requested, in that order;
//   - with an account and nothing else requested: published vs staging;
//   - with an account and Published set: published is prepended;
//   - a single source is compared against staging.
func Select(options SelectOptions) (from, to Source, err error) {
	var sources []Source
	for _, path := range options.SlugPaths {
		sources = append(sources, &SlugSource{Path: path})
	}
	if options.Head {
		sources = append(sources, &HistoricalSource{Repository: options.Repository})
	}

	if options.Address != "" {
		published := &PublishedSource{
			Address:   options.Address,
			Publisher: options.Publisher,
			Cache:     options.Cache,
			Offline:   options.Offline,
			Logger:    options.Logger,
		}
		if len(sources) == 0 {
			sources = append(sources, published, &StagingSource{Repository: options.Repository})
		} else if options.Published {
			sources = append([]Source{published}, sources...)
		}
	} else if options.Published {
		return nil, nil, fmt.Errorf("comparing against published versions needs an account")
	}

	switch len(sources) {
	case 0:
		return nil, nil, ErrNoSources
	case 1:
		sources = append(sources, &StagingSource{Repository: options.Repository})
	case 2:
	default:
		return nil, nil, fmt.Errorf("%w: got %d", ErrTooManySources, len(sources))
	}
	return sources[0], sources[1], nil
}
