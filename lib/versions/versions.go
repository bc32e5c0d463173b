// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package versions indexes the file sets that slugs are compared
// against and classifies the differences between two of them.
//
// A [Source] produces a [Versions] mapping from filename to git blob
// hash. Four sources exist: the working tree as it would be committed
// ([StagingSource]), a git revision ([HistoricalSource]), a slug file
// ([SlugSource]), and the record of what an account last published
// ([PublishedSource]). All hashes are git blob hashes, so any two
// sources can be compared directly. [Select] chooses the pair of
// sources a status or diff command compares, and [Diff] classifies
// each filename.
package versions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/slug/lib/contenthash"
	"github.com/bureau-foundation/slug/lib/git"
	"github.com/bureau-foundation/slug/lib/slug"
)

// Source names.
const (
	StagingName   = "staging"
	HeadName      = "head"
	SlugName      = "slug"
	PublishedName = "published"
)

// Versions maps filename to git blob hash. The empty string marks a
// file that is present but untracked.
type Versions map[string]string

// Filenames returns every filename, sorted.
func (v Versions) Filenames() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Source is a named, immutable set of file versions. Sources are built
// fresh per command and read once.
type Source interface {
	Name() string
	Versions(ctx context.Context) (Versions, error)
}

// Repository is the subset of *git.Repository the git-backed sources
// need.
type Repository interface {
	Dir() string
	ListTree(ctx context.Context, revision string) (map[string]string, error)
	Status(ctx context.Context) (git.Status, error)
}

// StagingSource is the working tree: every committed file plus every
// created, modified, deleted, renamed or copied file, hashed from disk. Untracked files
// map to "". A deleted file that is gone from disk is omitted.
type StagingSource struct {
	Repository Repository
}

func (s *StagingSource) Name() string { return StagingName }

func (s *StagingSource) Versions(ctx context.Context) (Versions, error) {
	status, err := s.Repository.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}
	tree, err := s.Repository.ListTree(ctx, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("listing HEAD: %w", err)
	}

	result := make(Versions)
	for _, name := range status.Filenames(git.NotAdded) {
		result[name] = ""
	}

	candidates := make(map[string]bool, len(tree))
	for name := range tree {
		candidates[name] = true
	}
	changed := status.Filenames(git.Created, git.Deleted, git.Modified, git.CreatedAndModified,
		git.StagedAndModified, git.Renamed, git.Copied)
	for _, name := range changed {
		candidates[name] = true
	}

	for name := range candidates {
		data, err := os.ReadFile(filepath.Join(s.Repository.Dir(), filepath.FromSlash(name)))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("hashing %s: %w", name, err)
		}
		result[name] = contenthash.GitBlobHash(data)
	}
	return result, nil
}

// HistoricalSource is the file set of a git revision. A revision that
// does not exist yet yields an empty set.
type HistoricalSource struct {
	Repository Repository

	// Revision defaults to HEAD.
	Revision string
}

func (s *HistoricalSource) Name() string {
	if s.Revision == "" || s.Revision == "HEAD" {
		return HeadName
	}
	return s.Revision
}

func (s *HistoricalSource) Versions(ctx context.Context) (Versions, error) {
	revision := s.Revision
	if revision == "" {
		revision = "HEAD"
	}
	tree, err := s.Repository.ListTree(ctx, revision)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", revision, err)
	}
	return Versions(tree), nil
}

// SlugSource is the file set of a slug file, keyed by git blob hash so
// it compares directly with git-backed sources. The slug is read with
// slug.Load: signatures are not required for comparison.
type SlugSource struct {
	Path string
}

func (s *SlugSource) Name() string { return SlugName }

func (s *SlugSource) Versions(ctx context.Context) (Versions, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading slug: %w", err)
	}
	loaded, err := slug.Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.Path, err)
	}
	result := make(Versions, loaded.Slug.Len())
	for _, name := range loaded.Slug.Filenames() {
		result[name] = loaded.Slug.GitHash(name)
	}
	return result, nil
}

// Collect reads every source concurrently and returns their versions
// in the same order.
func Collect(ctx context.Context, sources []Source) ([]Versions, error) {
	results := make([]Versions, len(sources))
	group, groupCtx := errgroup.WithContext(ctx)
	for index, source := range sources {
		group.Go(func() error {
			versions, err := source.Versions(groupCtx)
			if err != nil {
				return fmt.Errorf("%s: %w", source.Name(), err)
			}
			results[index] = versions
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
