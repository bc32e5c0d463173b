// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// ethers-build prepares, signs, publishes and inspects slugs: signed,
// content-addressed bundles of the files committed in a git repository.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/slug/cmd/ethers-build/commands"
)

func main() {
	if err := run(); err != nil {
		// verify reports its own failure and returns an exit code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root(commands.Options{}).Execute(ctx, os.Args[1:])
}
