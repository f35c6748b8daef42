// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates a structured logger for setup operations. When
// stderr is a terminal, uses slog.TextHandler for human-readable
// output. When stderr is piped or redirected (CI, automated callers),
// uses slog.JSONHandler for machine-parseable output.
//
// Callers scope the logger with phase-specific context via With():
//
//	logger := cli.NewLogger().With("phase", "apply", "mode", mode)
func NewLogger() *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// Interactive reports whether the process can prompt the operator:
// stdin and stderr are both terminals and non-interactive mode was not
// forced via FIOCHAT_SETUP_ASSUME_YES.
func Interactive() bool {
	if os.Getenv("FIOCHAT_SETUP_ASSUME_YES") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}
