// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
)

// StatusCategory classifies a file in "git status" output.
type StatusCategory string

// Categories reported by [Repository.Status].
const (
	NotAdded           StatusCategory = "notAdded"
	Modified           StatusCategory = "modified"
	Deleted            StatusCategory = "deleted"
	Created            StatusCategory = "created"
	Conflicted         StatusCategory = "conflicted"
	CreatedAndModified StatusCategory = "createdAndModified"
	StagedAndModified  StatusCategory = "stagedAndModified"
	Renamed            StatusCategory = "renamed"
	Copied             StatusCategory = "copied"
)

// statusCodes maps the two-letter porcelain code, with spaces removed,
// to a category. Codes not listed here are reported verbatim so callers
// can reject states they do not understand.
var statusCodes = map[string]StatusCategory{
	"??": NotAdded,
	"M":  Modified,
	"D":  Deleted,
	"A":  Created,
	"UU": Conflicted,
	"AM": CreatedAndModified,
	"MM": StagedAndModified,
	"R":  Renamed,
	"RM": Renamed,
	"C":  Copied,
	"CM": Copied,
}

// Known reports whether the category is one of the named constants.
func (c StatusCategory) Known() bool {
	for _, known := range statusCodes {
		if c == known {
			return true
		}
	}
	return false
}

// Status maps each changed or untracked filename to its category.
// Clean tracked files are absent.
type Status map[string]StatusCategory

// Filenames returns the sorted filenames in any of the given
// categories.
func (s Status) Filenames(categories ...StatusCategory) []string {
	var names []string
	for name, category := range s {
		if slices.Contains(categories, category) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Status returns the working tree status. Untracked directories are
// expanded to individual files.
func (r *Repository) Status(ctx context.Context) (Status, error) {
	output, err := r.Output(ctx, "status", "--porcelain", "-z", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	return parseStatus(output)
}

// parseStatus parses "git status --porcelain -z" output: records of
// "XY SP <path>" terminated by NUL. Renames and copies are followed by
// an extra record holding the original path. The origin of a rename is
// reported as Deleted unless it has a record of its own; the origin of
// a copy is unchanged and not reported.
func parseStatus(output []byte) (Status, error) {
	result := make(Status)
	records := bytes.Split(output, []byte{0})
	for index := 0; index < len(records); index++ {
		record := records[index]
		if len(record) == 0 {
			continue
		}
		if len(record) < 4 || record[2] != ' ' {
			return nil, fmt.Errorf("malformed status record %q", record)
		}
		code := string(record[:2])
		path := string(record[3:])

		if code[0] == 'R' || code[0] == 'C' {
			index++
			if index >= len(records) || len(records[index]) == 0 {
				return nil, fmt.Errorf("status record %q lacks its original path", record)
			}
			if origin := string(records[index]); code[0] == 'R' {
				if _, seen := result[origin]; !seen {
					result[origin] = Deleted
				}
			}
		}

		compact := strings.ReplaceAll(code, " ", "")
		category, ok := statusCodes[compact]
		if !ok {
			category = StatusCategory(compact)
		}
		result[path] = category
	}
	return result, nil
}
