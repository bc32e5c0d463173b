// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package account manages the encrypted account file that holds the
// key used to sign slugs.
//
// The file is JSON:
//
//	{"address": "0x…", "version": 1, "crypto": "<base64 age ciphertext>"}
//
// The address is stored in the clear so read-only commands (status,
// diff) can identify the account without a passphrase. The private key
// is sealed with an age scrypt recipient (lib/sealed) and only ever
// decrypted into locked memory.
package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bureau-foundation/slug/lib/sealed"
	"github.com/bureau-foundation/slug/lib/secret"
	"github.com/bureau-foundation/slug/lib/signer"
)

// DefaultFilename is the account file name looked up in the project
// directory and excluded from generated slugs.
const DefaultFilename = "account.json"

// FileVersion is the account file format version this package writes.
const FileVersion = 1

// ErrExists is returned by [Create] when the account file already
// exists. Existing keys are never overwritten.
var ErrExists = errors.New("account file already exists")

// ErrNotFound is returned when the account file does not exist.
var ErrNotFound = errors.New("account file not found")

// File is the on-disk account record.
type File struct {
	Address string `json:"address"`
	Version int    `json:"version"`
	Crypto  string `json:"crypto"`
}

// Create generates a new private key, seals it under passphrase and
// writes the account file to path with mode 0600. workFactor is the
// scrypt log2(N); zero selects the sealed package default. Returns the
// new account address.
func Create(path string, passphrase *secret.Buffer, workFactor int) (string, error) {
	key, err := signer.GeneratePrivateKey()
	if err != nil {
		return "", err
	}
	keySigner, err := signer.NewKeySigner(key)
	if err != nil {
		return "", err
	}
	defer keySigner.Close()

	hexKey, err := keySigner.HexKey()
	if err != nil {
		return "", err
	}
	defer hexKey.Close()

	ciphertext, err := sealed.Encrypt(hexKey.Bytes(), passphrase, workFactor)
	if err != nil {
		return "", fmt.Errorf("sealing account key: %w", err)
	}

	data, err := json.MarshalIndent(File{
		Address: keySigner.Address(),
		Version: FileVersion,
		Crypto:  ciphertext,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding account file: %w", err)
	}
	data = append(data, '\n')

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%s: %w", path, ErrExists)
		}
		return "", fmt.Errorf("creating account file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing account file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing account file: %w", err)
	}
	return keySigner.Address(), nil
}

// Read parses the account file at path.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading account file: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing account file %s: %w", path, err)
	}
	if file.Version != FileVersion {
		return nil, fmt.Errorf("account file %s has version %d, want %d", path, file.Version, FileVersion)
	}
	if !signer.ValidAddress(file.Address) {
		return nil, fmt.Errorf("account file %s has invalid address %q", path, file.Address)
	}
	if file.Crypto == "" {
		return nil, fmt.Errorf("account file %s has no key material", path)
	}
	file.Address = signer.ChecksumAddress(file.Address)
	return &file, nil
}

// ReadAddress returns the account address without decrypting the key.
func ReadAddress(path string) (string, error) {
	file, err := Read(path)
	if err != nil {
		return "", err
	}
	return file.Address, nil
}

// Unlock decrypts the account key with passphrase and returns a signer
// for it. The decrypted key must derive the recorded address; a wrong
// passphrase returns an error wrapping sealed.ErrIncorrectPassphrase.
// The caller must Close the signer.
func Unlock(path string, passphrase *secret.Buffer) (*signer.KeySigner, error) {
	file, err := Read(path)
	if err != nil {
		return nil, err
	}

	hexKey, err := sealed.Decrypt(file.Crypto, passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking %s: %w", path, err)
	}
	defer hexKey.Close()

	key, err := signer.ParsePrivateKeyHex(hexKey.String())
	if err != nil {
		return nil, fmt.Errorf("unlocking %s: %w", path, err)
	}
	keySigner, err := signer.NewKeySigner(key)
	if err != nil {
		return nil, fmt.Errorf("unlocking %s: %w", path, err)
	}
	if !signer.SameAddress(keySigner.Address(), file.Address) {
		keySigner.Close()
		return nil, fmt.Errorf("unlocking %s: key derives %s, file records %s", path, keySigner.Address(), file.Address)
	}
	return keySigner, nil
}
