// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

// Package setup is the phase controller: it turns a resolved answer
// set into validated, mode-specific apply journeys. All per-run state
// lives in one immutable RunContext threaded explicitly through every
// journey step.
package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/multierr"

	"github.com/fiochat/fiochat-setup/lib/answers"
)

// Mode selects the install journey.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
	ModeMacOS       Mode = "macos"
	ModeInspect     Mode = "inspect"
)

// Method selects how the executable arrives on the host.
type Method string

const (
	MethodRelease Method = "release"
	MethodManual  Method = "manual"
)

// ConfigSource selects how the configuration document is produced.
type ConfigSource string

const (
	ConfigExisting ConfigSource = "existing"
	ConfigRebuild  ConfigSource = "rebuild"
	ConfigTemplate ConfigSource = "template"
)

// DedicatedUser is the low-privilege identity created on demand. Any
// other service-user answer is treated as a pre-existing account and
// gets a unit drop-in instead of the baked-in identity.
const DedicatedUser = "fiochat"

func parseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeProduction, ModeDevelopment, ModeMacOS, ModeInspect:
		return Mode(raw), nil
	}
	return "", fmt.Errorf("MODE: unknown mode %q (production, development, macos, inspect)", raw)
}

func parseMethod(raw string) (Method, error) {
	switch Method(raw) {
	case MethodRelease, MethodManual:
		return Method(raw), nil
	}
	return "", fmt.Errorf("METHOD: unknown install method %q (release, manual)", raw)
}

func parseConfigSource(raw string) (ConfigSource, error) {
	switch ConfigSource(raw) {
	case ConfigExisting, ConfigRebuild, ConfigTemplate:
		return ConfigSource(raw), nil
	}
	return "", fmt.Errorf("CONFIG_SOURCE: unknown config source %q (existing, rebuild, template)", raw)
}

// Paths is the persisted state layout for one host.
type Paths struct {
	// InstallRoot holds the fiochat executable, replaced wholesale on
	// install.
	InstallRoot string
	// AliasPath is the global fio command alias.
	AliasPath string
	// SystemConfig is the system-scope configuration document.
	SystemConfig string
	// UserConfig is the user-scope configuration document.
	UserConfig string
	// StateDir is the runtime state directory for production services.
	StateDir string
	// UserStateDir holds development-mode logs and runtime files.
	UserStateDir string
	// UnitDir holds systemd unit files.
	UnitDir string
	// AgentDir holds launchd agent plists.
	AgentDir string
}

// DefaultPaths returns the standard layout, anchoring user-scope paths
// in the invoking user's home directory.
func DefaultPaths() Paths {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Paths{
		InstallRoot:  "/opt/fiochat",
		AliasPath:    "/usr/local/bin/fio",
		SystemConfig: "/etc/fiochat/config.yaml",
		UserConfig:   filepath.Join(home, ".config", "fiochat", "config.yaml"),
		StateDir:     "/var/lib/fiochat",
		UserStateDir: filepath.Join(home, ".local", "state", "fiochat"),
		UnitDir:      "/etc/systemd/system",
		AgentDir:     filepath.Join(home, "Library", "LaunchAgents"),
	}
}

// ConfigPath returns the configuration document path for a mode:
// system scope for production, user scope everywhere else. The two
// scopes are mutually exclusive per mode.
func (p Paths) ConfigPath(mode Mode) string {
	if mode == ModeProduction {
		return p.SystemConfig
	}
	return p.UserConfig
}

// RunContext is the immutable per-invocation state. Journeys receive
// it by value and never mutate it; the workspace is the only field
// added after construction, via WithWorkspace.
type RunContext struct {
	Mode         Mode
	Method       Method
	ConfigSource ConfigSource
	Answers      *answers.Set
	Paths        Paths
	Interactive  bool
	// Workspace is the per-invocation ephemeral directory, removed
	// unconditionally when the run ends.
	Workspace string
}

// NewRunContext builds a RunContext from a resolved answer set. Enum
// answers that fail to parse are reported together, as validation
// problems.
func NewRunContext(set *answers.Set, paths Paths, interactive bool) (RunContext, error) {
	var problems error

	mode, err := parseMode(set.Get("MODE"))
	problems = multierr.Append(problems, err)
	method, err := parseMethod(set.Get("METHOD"))
	problems = multierr.Append(problems, err)
	source, err := parseConfigSource(set.Get("CONFIG_SOURCE"))
	problems = multierr.Append(problems, err)

	if problems != nil {
		return RunContext{}, problems
	}
	return RunContext{
		Mode:         mode,
		Method:       method,
		ConfigSource: source,
		Answers:      set,
		Paths:        paths,
		Interactive:  interactive,
	}, nil
}

// WithWorkspace returns a copy of the context carrying the workspace
// path.
func (rc RunContext) WithWorkspace(workspace string) RunContext {
	rc.Workspace = workspace
	return rc
}

// ServerPort returns the configured backend port.
func (rc RunContext) ServerPort() (int, error) {
	raw := rc.Answers.Get("SERVER_PORT")
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("SERVER_PORT: %q is not a valid TCP port", raw)
	}
	return port, nil
}

// NewWorkspace creates the per-invocation ephemeral directory and
// returns it with its cleanup function. Cleanup runs unconditionally:
// callers defer it before doing anything else.
func NewWorkspace() (string, func(), error) {
	workspace, err := os.MkdirTemp("", "fiochat-setup-*")
	if err != nil {
		return "", nil, fmt.Errorf("create workspace: %w", err)
	}
	return workspace, func() { os.RemoveAll(workspace) }, nil
}
