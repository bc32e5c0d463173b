// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"context"
	"slices"
)

// ChangeKind classifies a filename that differs between two sources.
type ChangeKind string

const (
	Added    ChangeKind = "added"
	Removed  ChangeKind = "removed"
	Modified ChangeKind = "modified"
)

// Change is one differing filename. From and To are the hashes on each
// side; "" where the file is absent or untracked.
type Change struct {
	Filename string     `json:"filename"`
	Kind     ChangeKind `json:"change"`
	From     string     `json:"from,omitempty"`
	To       string     `json:"to,omitempty"`
}

// Result is the classification of every filename in either source.
// Each list is sorted by filename.
type Result struct {
	Changes   []Change `json:"changes"`
	Untracked []string `json:"untracked"`
	Unchanged []string `json:"unchanged"`
}

// Diff classifies every filename in the union of from and to:
//
//   - no hash on either side: untracked, never a change;
//   - hash only in to: added;
//   - hash only in from: removed;
//   - different hashes: modified;
//   - equal hashes: unchanged.
//
// A file absent from one side and untracked on the other has no hash on
// either side.
func Diff(from, to Versions) Result {
	union := make(map[string]struct{}, len(from)+len(to))
	for name := range from {
		union[name] = struct{}{}
	}
	for name := range to {
		union[name] = struct{}{}
	}
	names := make([]string, 0, len(union))
	for name := range union {
		names = append(names, name)
	}
	slices.Sort(names)

	result := Result{
		Changes:   []Change{},
		Untracked: []string{},
		Unchanged: []string{},
	}
	for _, name := range names {
		fromHash, toHash := from[name], to[name]
		switch {
		case fromHash == "" && toHash == "":
			result.Untracked = append(result.Untracked, name)
		case fromHash == "":
			result.Changes = append(result.Changes, Change{Filename: name, Kind: Added, To: toHash})
		case toHash == "":
			result.Changes = append(result.Changes, Change{Filename: name, Kind: Removed, From: fromHash})
		case fromHash != toHash:
			result.Changes = append(result.Changes, Change{Filename: name, Kind: Modified, From: fromHash, To: toHash})
		default:
			result.Unchanged = append(result.Unchanged, name)
		}
	}
	return result
}

// TextDiffer renders byte-level diffs between git objects. Implemented
// by *git.Repository.
type TextDiffer interface {
	Diff(ctx context.Context, from, to string) (string, error)
	DiffFile(ctx context.Context, from, filename string) (string, error)
}

// TextDiff renders a modified change for display. When the destination
// source is the working tree the new side is read from the file itself,
// since its hash is not in the object database. The classification in
// change does not depend on this succeeding.
func TextDiff(ctx context.Context, differ TextDiffer, change Change, toSource string) (string, error) {
	if toSource == StagingName {
		return differ.DiffFile(ctx, change.From, change.Filename)
	}
	return differ.Diff(ctx, change.From, change.To)
}
