// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI. Slugs are generated
// from a project's committed tree, and status and diff compare slugs
// against the working tree and against history, so everything here is
// read-only with respect to the repository.
//
// All commands target a specific repository directory via the -C flag,
// which every Repository method injects. File contents are returned as
// raw bytes so binary assets survive intact.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Repository represents a git working tree at a specific directory.
// All operations target this directory via "git -C <dir>".
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// CommandError is returned when git exits unsuccessfully.
type CommandError struct {
	Args     []string
	Dir      string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s in %s: %v (stderr: %s)",
		strings.Join(e.Args, " "), e.Dir, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Output executes a git command targeting this repository and returns
// stdout as raw bytes. Stderr is captured separately and carried in the
// *CommandError on failure.
func (r *Repository) Output(ctx context.Context, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		commandErr := &CommandError{
			Args:     args,
			Dir:      r.dir,
			ExitCode: -1,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			commandErr.ExitCode = exitErr.ExitCode()
		}
		return nil, commandErr
	}
	return stdout.Bytes(), nil
}

// Run executes a git command and returns stdout as a string.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	output, err := r.Output(ctx, args...)
	if err != nil {
		return "", err
	}
	return string(output), nil
}

// Show returns the content of filename at revision ("HEAD" when
// empty).
func (r *Repository) Show(ctx context.Context, revision, filename string) ([]byte, error) {
	if revision == "" {
		revision = "HEAD"
	}
	return r.Output(ctx, "show", revision+":"+filename)
}

// Head returns the commit hash of HEAD.
func (r *Repository) Head(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// ListTree returns every file in revision ("HEAD" when empty) mapped to
// its blob hash. A revision that does not exist yet, such as HEAD in a
// repository without commits, yields an empty map rather than an
// error. Submodule entries are skipped.
func (r *Repository) ListTree(ctx context.Context, revision string) (map[string]string, error) {
	if revision == "" {
		revision = "HEAD"
	}
	output, err := r.Output(ctx, "ls-tree", "-r", "-z", revision)
	if err != nil {
		if isMissingRevision(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return parseListTree(output)
}

func isMissingRevision(err error) bool {
	var commandErr *CommandError
	if !errors.As(err, &commandErr) {
		return false
	}
	return commandErr.ExitCode == 128 && strings.Contains(commandErr.Stderr, "Not a valid object name")
}

// parseListTree parses "git ls-tree -r -z" output: records of
// "<mode> SP <type> SP <hash> TAB <path>" terminated by NUL.
func parseListTree(output []byte) (map[string]string, error) {
	result := make(map[string]string)
	for _, record := range bytes.Split(output, []byte{0}) {
		if len(record) == 0 {
			continue
		}
		header, path, found := bytes.Cut(record, []byte{'\t'})
		if !found {
			return nil, fmt.Errorf("malformed ls-tree record %q", record)
		}
		fields := strings.Fields(string(header))
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed ls-tree header %q", header)
		}
		if fields[1] != "blob" {
			continue
		}
		result[string(path)] = fields[2]
	}
	return result, nil
}

// Diff returns the textual diff between two objects, typically blob
// hashes.
func (r *Repository) Diff(ctx context.Context, from, to string) (string, error) {
	return r.Run(ctx, "diff", from, to)
}

// DiffFile returns the textual diff between a blob and the working
// tree copy of filename.
func (r *Repository) DiffFile(ctx context.Context, from, filename string) (string, error) {
	return r.Run(ctx, "diff", from, "--", filename)
}
