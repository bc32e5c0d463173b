// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for ethers-build.
//
// Configuration comes from at most one file, chosen in order:
//
//   - the --config flag (via [Resolve] or [LoadFile])
//   - the ETHERS_BUILD_CONFIG environment variable
//   - ethers-build.yaml in the project directory, if present
//
// With none of these, [Default] applies. Files ending in .json or .jsonc
// are parsed as JSON with comments and trailing commas allowed; anything
// else is YAML. Unknown keys are errors in both formats.
//
// Variable expansion is performed on path and URL fields after loading:
// ${HOME}, ${XDG_CACHE_HOME} and ${VAR:-default} patterns are expanded.
// Environment variables never override config values directly.
//
// Key exports:
//
//   - [Config] -- API endpoint, signer selection, cache and excludes
//   - [Default] -- returns a Config with the built-in defaults
//   - [Resolve] and [LoadFile] -- the entry points for loading
//
// This package depends on no other packages in this module.
package config
