// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts account private keys under an operator
// passphrase. It wraps filippo.io/age scrypt recipients: the
// ciphertext is a standard age file, base64-encoded so it can sit in a
// JSON field of the account file.
//
// Passphrases and decrypted plaintext cross this package only as
// *secret.Buffer values.
package sealed

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/bureau-foundation/slug/lib/secret"
)

// DefaultWorkFactor is the scrypt work factor (log2 of N) used when
// the caller passes zero. It matches age's own default.
const DefaultWorkFactor = 18

// ErrIncorrectPassphrase is returned by [Decrypt] when the passphrase
// does not open the ciphertext.
var ErrIncorrectPassphrase = errors.New("incorrect passphrase")

// Encrypt encrypts plaintext under passphrase and returns the age
// ciphertext as standard base64. workFactor is the scrypt log2(N);
// zero selects [DefaultWorkFactor]. The passphrase is borrowed, not
// closed.
func Encrypt(plaintext []byte, passphrase *secret.Buffer, workFactor int) (string, error) {
	if passphrase == nil || passphrase.Len() == 0 {
		return "", fmt.Errorf("passphrase is required")
	}
	if workFactor == 0 {
		workFactor = DefaultWorkFactor
	}

	recipient, err := age.NewScryptRecipient(passphrase.String())
	if err != nil {
		return "", fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(workFactor)

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// Decrypt opens a ciphertext produced by [Encrypt]. A passphrase that
// does not match returns an error wrapping [ErrIncorrectPassphrase].
// The caller must Close the returned buffer.
func Decrypt(ciphertext string, passphrase *secret.Buffer) (*secret.Buffer, error) {
	if passphrase == nil || passphrase.Len() == 0 {
		return nil, fmt.Errorf("passphrase is required")
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 ciphertext: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, fmt.Errorf("decrypting account key: %w", ErrIncorrectPassphrase)
		}
		return nil, fmt.Errorf("decrypting account key: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("decrypted plaintext is empty")
	}

	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		return nil, fmt.Errorf("protecting decrypted plaintext: %w", err)
	}
	return buffer, nil
}
