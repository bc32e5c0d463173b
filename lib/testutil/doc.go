// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [InitRepo] creates a scratch git working tree in a temp directory,
// with a fixed identity so commits work in clean CI environments.
// Tests that need git skip when the git binary is not installed rather
// than failing.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no module-internal dependencies.
package testutil
