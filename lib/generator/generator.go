// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package generator builds a slug from the committed tree of a git
// repository.
//
// Every file at HEAD is included except the account file, the local
// TLS certificate, existing slug archives and configured exclusions.
// Content is read from HEAD, not from disk, so the slug is exactly what
// was committed. Working tree state that will not be published is
// reported as warnings rather than errors.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/bureau-foundation/slug/lib/account"
	"github.com/bureau-foundation/slug/lib/git"
	"github.com/bureau-foundation/slug/lib/slug"
)

// ErrNoFilesFound is returned when the tree has nothing to publish.
var ErrNoFilesFound = errors.New("no files found")

// CertificateFilename is the self-signed certificate written by the
// local development server. It is never published.
const CertificateFilename = ".ethers-self-signed.pem"

// SlugExtension marks slug archives, which are never published inside
// another slug.
const SlugExtension = ".slug"

// Tree is the repository access the generator needs. Implemented by
// *git.Repository.
type Tree interface {
	ListTree(ctx context.Context, revision string) (map[string]string, error)
	Status(ctx context.Context) (git.Status, error)
	Show(ctx context.Context, revision, filename string) ([]byte, error)
}

// Options configures generation.
type Options struct {
	// Exclude holds additional path.Match patterns. A pattern without
	// a slash also matches the base name of files in subdirectories.
	Exclude []string

	Logger *slog.Logger
}

// Warning is an advisory about working tree state that the slug does
// not reflect.
type Warning struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%-30s %s", w.Filename, w.Message)
}

// Warning messages.
const (
	WarnUntracked  = "(untracked file; will not be published)"
	WarnDeleted    = "(file deleted in stage only; will still be published)"
	WarnModified   = "(file modified in stage; changes will NOT be published)"
	WarnSecureFile = "(skipping secure file; will not be published)"
)

// Result is a generated slug with the files added and any warnings.
type Result struct {
	Slug     *slug.Slug
	Added    []string
	Warnings []Warning
}

// Generate builds a slug from HEAD. An unrecognized status category
// on an included file is an error; an empty result is ErrNoFilesFound.
func Generate(ctx context.Context, tree Tree, options Options) (*Result, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for _, pattern := range options.Exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	status, err := tree.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}
	listing, err := tree.ListTree(ctx, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("listing HEAD: %w", err)
	}

	result := &Result{Slug: slug.New()}

	for _, filename := range sortedKeys(status) {
		category := status[filename]
		if category != git.NotAdded {
			if filename == account.DefaultFilename {
				result.Warnings = append(result.Warnings, Warning{filename, WarnSecureFile})
			}
			continue
		}
		if alwaysExcluded(filename) || matchesAny(filename, options.Exclude) {
			continue
		}
		result.Warnings = append(result.Warnings, Warning{filename, WarnUntracked})
	}

	for _, filename := range sortedKeys(listing) {
		if alwaysExcluded(filename) {
			logger.Debug("skipping protected file", "filename", filename)
			continue
		}
		if matchesAny(filename, options.Exclude) {
			logger.Debug("skipping excluded file", "filename", filename)
			continue
		}

		switch category, changed := status[filename]; {
		case !changed:
		case category == git.Deleted:
			result.Warnings = append(result.Warnings, Warning{filename, WarnDeleted})
		case category == git.Modified, category == git.StagedAndModified,
			category == git.Renamed, category == git.Copied:
			result.Warnings = append(result.Warnings, Warning{filename, WarnModified})
		default:
			return nil, fmt.Errorf("unhandled status %q for %s", category, filename)
		}

		content, err := tree.Show(ctx, "HEAD", filename)
		if err != nil {
			return nil, fmt.Errorf("reading %s at HEAD: %w", filename, err)
		}
		if err := result.Slug.AddData(filename, content); err != nil {
			return nil, err
		}
		result.Added = append(result.Added, filename)
		logger.Debug("added file", "filename", filename, "bytes", len(content))
	}

	if len(result.Added) == 0 {
		return nil, ErrNoFilesFound
	}
	return result, nil
}

// alwaysExcluded reports files that must never be published.
func alwaysExcluded(filename string) bool {
	return filename == account.DefaultFilename ||
		filename == CertificateFilename ||
		strings.HasSuffix(filename, SlugExtension)
}

func matchesAny(filename string, patterns []string) bool {
	base := path.Base(filename)
	for _, pattern := range patterns {
		if matched, _ := path.Match(pattern, filename); matched {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if matched, _ := path.Match(pattern, base); matched {
				return true
			}
		}
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(filename, pattern) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
