// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"context"
	"fmt"
	"log/slog"
)

// Publisher fetches the versions an account last published.
type Publisher interface {
	SlugVersions(ctx context.Context, address string) (map[string]string, error)
}

// Cache persists the last published versions seen for an address.
type Cache interface {
	Load(address string) (map[string]string, error)
	Store(address string, versions map[string]string) error
}

// PublishedSource is the record of what an address last published.
// Online, a successful fetch refreshes Cache. Offline, Cache is read
// instead of the network.
type PublishedSource struct {
	Address   string
	Publisher Publisher

	// Cache may be nil.
	Cache   Cache
	Offline bool
	Logger  *slog.Logger
}

func (s *PublishedSource) Name() string { return PublishedName }

func (s *PublishedSource) Versions(ctx context.Context) (Versions, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if s.Offline {
		if s.Cache == nil {
			return nil, fmt.Errorf("offline mode needs a published-versions cache")
		}
		cached, err := s.Cache.Load(s.Address)
		if err != nil {
			return nil, fmt.Errorf("reading cached published versions: %w", err)
		}
		logger.Debug("using cached published versions", "address", s.Address, "files", len(cached))
		return Versions(cached), nil
	}

	fetched, err := s.Publisher.SlugVersions(ctx, s.Address)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.Store(s.Address, fetched); err != nil {
			logger.Warn("caching published versions failed", "address", s.Address, "error", err)
		}
	}
	return Versions(fetched), nil
}
