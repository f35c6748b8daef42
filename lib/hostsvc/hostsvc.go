// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostsvc integrates fiochat with the host: service identity,
// state directories, systemd units on Linux, launchd agents on macOS,
// and foreground process launch for development mode.
//
// Every host mutation is expressed as "ensure" — observe first, change
// only what differs, so repeat runs converge instead of erroring.
package hostsvc

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// CommandRunner executes a host command and returns its combined
// output. Swappable in tests so no test needs root or systemd.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// System performs host mutations.
type System struct {
	run    CommandRunner
	logger *slog.Logger

	// UnitDir holds systemd unit files, normally /etc/systemd/system.
	UnitDir string
	// AgentDir holds launchd agent plists, normally the invoking
	// user's ~/Library/LaunchAgents.
	AgentDir string
}

// NewSystem creates a System that shells out to the real host tools.
func NewSystem(logger *slog.Logger) *System {
	return NewSystemWith(logger, execRunner)
}

// NewSystemWith creates a System over a custom command runner. Tests
// use it with a canned runner so nothing reaches the real host.
func NewSystemWith(logger *slog.Logger, run CommandRunner) *System {
	return &System{
		run:     run,
		logger:  logger,
		UnitDir: "/etc/systemd/system",
	}
}

// CommandError reports a failed host tool invocation (useradd,
// systemctl, launchctl), carrying the command line and its combined
// output. Callers that classify errors detect it with errors.As.
type CommandError struct {
	Name   string
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	command := e.Name + " " + strings.Join(e.Args, " ")
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", command, e.Err, e.Output)
}

func (e *CommandError) Unwrap() error { return e.Err }

func commandError(name string, args []string, output []byte, err error) error {
	return &CommandError{
		Name:   name,
		Args:   args,
		Output: strings.TrimSpace(string(output)),
		Err:    err,
	}
}
