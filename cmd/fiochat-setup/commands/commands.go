// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the fiochat-setup command tree.
package commands

import (
	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli"
	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/phases"
)

// Root builds and returns the complete command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "fiochat-setup",
		Description: `fiochat-setup: install and reconfigure fiochat.

Installs the fiochat API backend and its telegram relay bridge, writes
their shared configuration, and wires them into the host's service
manager. Safe to re-run: every journey converges instead of duplicating
work.`,
		Subcommands: []*cli.Command{
			phases.WizardCommand(),
			phases.ValidateCommand(),
			phases.ApplyCommand(),
			phases.VerifyCommand(),
		},
		Examples: []cli.Example{
			{Description: "Interactive setup (start here)", Command: "fiochat-setup"},
			{Description: "Check an answers document before CI uses it", Command: "fiochat-setup validate --answers deploy.env"},
			{Description: "Unattended production install", Command: "fiochat-setup apply --yes --answers deploy.env"},
			{Description: "Health-check an installed host", Command: "fiochat-setup verify --mode production"},
		},
	}
}
