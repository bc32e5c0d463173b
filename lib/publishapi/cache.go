// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publishapi

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/slug/lib/codec"
	"github.com/bureau-foundation/slug/lib/signer"
)

// cacheRecord is the on-disk form of one address's published versions.
type cacheRecord struct {
	Address  string            `cbor:"address"`
	Versions map[string]string `cbor:"versions"`
}

// Cache stores the last published versions fetched per address, one
// CBOR file per address. Writes are atomic: a reader sees either the
// previous file or the new one.
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir, creating it if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Load returns the cached versions for address. A missing entry is an
// error satisfying errors.Is(err, fs.ErrNotExist).
func (c *Cache) Load(address string) (map[string]string, error) {
	path, err := c.path(address)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cached versions for %s: %w", address, err)
	}

	var record cacheRecord
	if err := codec.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decoding cached versions for %s: %w", address, err)
	}
	if !signer.SameAddress(record.Address, address) {
		return nil, fmt.Errorf("cache file %s holds versions for %s", path, record.Address)
	}
	if record.Versions == nil {
		record.Versions = map[string]string{}
	}
	return record.Versions, nil
}

// Store atomically replaces the cached versions for address.
func (c *Cache) Store(address string, versions map[string]string) error {
	finalPath, err := c.path(address)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(cacheRecord{
		Address:  signer.ChecksumAddress(address),
		Versions: versions,
	})
	if err != nil {
		return fmt.Errorf("encoding cached versions: %w", err)
	}

	tmpFile, err := os.CreateTemp(c.dir, "versions-*.cbor")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing cache data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming cache file to %s: %w", finalPath, err)
	}

	success = true
	return nil
}

// path maps an address to its cache file. Addresses are validated so
// they cannot name a path outside the cache directory.
func (c *Cache) path(address string) (string, error) {
	if !signer.ValidAddress(address) {
		return "", fmt.Errorf("invalid address %q", address)
	}
	return filepath.Join(c.dir, strings.ToLower(address)+".cbor"), nil
}
