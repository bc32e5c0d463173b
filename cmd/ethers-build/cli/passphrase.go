// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/slug/lib/secret"
)

// ReadPassphrase reads a passphrase from in. When in is a terminal the
// prompt is written to prompts and echo is disabled; with confirm set the
// passphrase is asked for twice and must match. Otherwise the first line
// of in is read without prompting, so passphrases can be piped.
func ReadPassphrase(in io.Reader, prompts io.Writer, prompt string, confirm bool) (*secret.Buffer, error) {
	file, isFile := in.(*os.File)
	if !isFile || !term.IsTerminal(int(file.Fd())) {
		buffer, err := secret.ReadFirstLine(in)
		if err != nil {
			return nil, Validation("reading passphrase: %w", err)
		}
		return buffer, nil
	}

	fd := int(file.Fd())
	fmt.Fprint(prompts, prompt)
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(prompts)
	if err != nil {
		return nil, Internal("reading passphrase: %w", err)
	}
	if len(first) == 0 {
		return nil, Validation("passphrase is empty")
	}

	if confirm {
		fmt.Fprint(prompts, "Confirm passphrase: ")
		second, err := term.ReadPassword(fd)
		fmt.Fprintln(prompts)
		if err != nil {
			secret.Zero(first)
			return nil, Internal("reading passphrase confirmation: %w", err)
		}
		match := bytes.Equal(first, second)
		secret.Zero(second)
		if !match {
			secret.Zero(first)
			return nil, Validation("passphrases did not match")
		}
	}

	return secret.NewFromBytes(first)
}
