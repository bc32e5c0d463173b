// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for ethers-build.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a flag set built from a tagged
// params struct (see [BindFlags]), and a Run function. Commands are
// assembled into a tree by the commands package and dispatched via
// [Command.Execute], which handles flag parsing, subcommand routing,
// logger construction, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// Errors returned by commands are categorized with [ToolError]
// (validation, not_found, forbidden, conflict, transient, internal).
// [ExitError] carries a non-zero exit code for commands that have
// already printed their own diagnostics, such as a failed verify.
//
// [ReadPassphrase] reads account passphrases from a terminal with echo
// disabled, or from the first line of piped input.
package cli
