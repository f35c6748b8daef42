// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli"
	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output (verify, validate)
		// return an ExitError with the desired code. Don't print a
		// redundant "error:" line for those.
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

// run picks the phase: an explicit subcommand wins, then the
// FIOCHAT_SETUP_PHASE environment variable (for automated callers),
// then the wizard when on a terminal.
func run() error {
	args := os.Args[1:]
	if len(args) == 0 {
		if phase := os.Getenv("FIOCHAT_SETUP_PHASE"); phase != "" {
			args = []string{phase}
		} else if cli.Interactive() {
			args = []string{"wizard"}
		}
	}
	return commands.Root().Execute(args)
}
