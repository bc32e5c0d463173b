// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package slugfs

import (
	"strings"
)

// directory is one level of the synthesized directory tree. files maps
// a path component to the full slug filename it names.
type directory struct {
	files map[string]string
	dirs  map[string]*directory
}

func newDirectory() *directory {
	return &directory{files: map[string]string{}, dirs: map[string]*directory{}}
}

// buildTree turns slash-separated slug filenames into a directory tree.
// Filenames that cannot be represented as a path (empty components,
// "." or "..", NUL bytes) or that collide with an existing file or
// directory are returned in skipped. filenames must be sorted so the
// outcome of a collision is deterministic.
func buildTree(filenames []string) (root *directory, skipped []string) {
	root = newDirectory()
	for _, filename := range filenames {
		components, ok := splitPath(filename)
		if !ok {
			skipped = append(skipped, filename)
			continue
		}
		if !root.insert(components, filename) {
			skipped = append(skipped, filename)
		}
	}
	return root, skipped
}

func (d *directory) insert(components []string, filename string) bool {
	name := components[0]
	if len(components) == 1 {
		if _, isDir := d.dirs[name]; isDir {
			return false
		}
		if _, isFile := d.files[name]; isFile {
			return false
		}
		d.files[name] = filename
		return true
	}

	if _, isFile := d.files[name]; isFile {
		return false
	}
	child, exists := d.dirs[name]
	if !exists {
		child = newDirectory()
	}
	if !child.insert(components[1:], filename) {
		return false
	}
	d.dirs[name] = child
	return true
}

func splitPath(filename string) ([]string, bool) {
	if filename == "" || strings.ContainsRune(filename, 0) {
		return nil, false
	}
	components := strings.Split(filename, "/")
	for _, component := range components {
		if component == "" || component == "." || component == ".." {
			return nil, false
		}
	}
	return components, true
}
