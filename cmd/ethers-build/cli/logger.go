// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger returns the logger handed to a command's Run. Output
// to a terminal is slog text; anything else (pipes, files, buffers) gets
// JSON lines for scripts and CI.
func NewCommandLogger(w io.Writer, level slog.Level) *slog.Logger {
	file, ok := w.(*os.File)
	return newLogger(w, ok && term.IsTerminal(int(file.Fd())), level)
}

func newLogger(w io.Writer, terminal bool, level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}
