// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package phases

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli/doctor"
	"github.com/fiochat/fiochat-setup/lib/configdoc"
	"github.com/fiochat/fiochat-setup/lib/hostsvc"
	"github.com/fiochat/fiochat-setup/lib/setup"
)

// verifyResults produces the fixed-order verification report for a
// mode. Every check only observes; results for identical host state
// are byte-identical across runs.
func verifyResults(ctx context.Context, rc setup.RunContext, system *hostsvc.System) []doctor.Result {
	results := []doctor.Result{
		checkBinary(rc),
		checkAlias(rc),
		checkConfig(rc),
	}

	switch rc.Mode {
	case setup.ModeProduction, setup.ModeInspect:
		results = append(results, checkUnits(ctx, rc, system)...)
		results = append(results, checkStateDir(rc))
	case setup.ModeMacOS:
		results = append(results, checkAgents(ctx, rc, system)...)
	case setup.ModeDevelopment:
		results = append(results, checkBackendPort(rc))
	}
	return results
}

func checkBinary(rc setup.RunContext) doctor.Result {
	executable := filepath.Join(rc.Paths.InstallRoot, "fiochat")
	info, err := os.Stat(executable)
	switch {
	case err != nil:
		return doctor.Fail("binary", executable+" not found")
	case !info.Mode().IsRegular():
		return doctor.Fail("binary", executable+" is not a regular file")
	case info.Mode().Perm()&0111 == 0:
		return doctor.Fail("binary", executable+" is not executable")
	}
	return doctor.Pass("binary", executable)
}

// checkAlias reproduces the original alias diagnosis: ours, missing,
// or shadowed by an unrelated fio command (commonly the flexible I/O
// tester). A foreign command is a warning, never a failure, and is
// never overwritten.
func checkAlias(rc setup.RunContext) doctor.Result {
	alias := rc.Paths.AliasPath
	target, err := os.Readlink(alias)
	if err == nil {
		if strings.HasPrefix(target, rc.Paths.InstallRoot+string(os.PathSeparator)) {
			return doctor.Pass("alias", alias+" -> "+target)
		}
		return doctor.Warn("alias", fmt.Sprintf("%s points at %s, not a fiochat install", alias, target))
	}
	if _, statErr := os.Stat(alias); statErr == nil {
		return doctor.Warn("alias", alias+" is an unrelated command (the flexible I/O tester?); fiochat alias unavailable")
	}
	return doctor.Warn("alias", alias+" not installed")
}

func checkConfig(rc setup.RunContext) doctor.Result {
	path := rc.Paths.ConfigPath(rc.Mode)
	if !configdoc.NewStore(path).Exists() {
		return doctor.Fail("config", path+" not found")
	}
	return doctor.Pass("config", path)
}

func checkUnits(ctx context.Context, rc setup.RunContext, system *hostsvc.System) []doctor.Result {
	var results []doctor.Result
	for _, unit := range []string{"fiochat.service", "fiochat-bridge.service"} {
		if !system.UnitInstalled(unit) {
			results = append(results,
				doctor.Fail(unit, "unit file not installed"),
				doctor.Skip(unit+" enabled", "unit file missing"),
				doctor.Skip(unit+" active", "unit file missing"),
			)
			continue
		}
		results = append(results, doctor.Pass(unit, "unit file installed"))

		if system.UnitEnabled(ctx, unit) {
			results = append(results, doctor.Pass(unit+" enabled", "starts at boot"))
		} else {
			results = append(results, doctor.Fail(unit+" enabled", "not enabled"))
		}
		if system.UnitActive(ctx, unit) {
			results = append(results, doctor.Pass(unit+" active", "running"))
		} else {
			results = append(results, doctor.Fail(unit+" active", "not running"))
		}
	}
	return results
}

func checkAgents(ctx context.Context, rc setup.RunContext, system *hostsvc.System) []doctor.Result {
	var results []doctor.Result
	agents := []struct{ filename, label string }{
		{"com.fiochat.server.plist", "com.fiochat.server"},
		{"com.fiochat.bridge.plist", "com.fiochat.bridge"},
	}
	for _, agent := range agents {
		if !system.AgentInstalled(agent.filename) {
			results = append(results,
				doctor.Fail(agent.label, "agent plist not installed"),
				doctor.Skip(agent.label+" loaded", "plist missing"),
			)
			continue
		}
		results = append(results, doctor.Pass(agent.label, "agent plist installed"))
		if system.AgentLoaded(ctx, agent.label) {
			results = append(results, doctor.Pass(agent.label+" loaded", "known to launchd"))
		} else {
			results = append(results, doctor.Fail(agent.label+" loaded", "not loaded"))
		}
	}
	return results
}

func checkStateDir(rc setup.RunContext) doctor.Result {
	serviceUser := rc.Answers.Get("SERVICE_USER")
	ok, detail := hostsvc.StateDirStatus(rc.Paths.StateDir, serviceUser)
	if !ok {
		return doctor.Fail("state dir", detail)
	}
	return doctor.Pass("state dir", fmt.Sprintf("%s owned by %s, mode 0750", detail, serviceUser))
}

func checkBackendPort(rc setup.RunContext) doctor.Result {
	port, err := rc.ServerPort()
	if err != nil {
		return doctor.Fail("backend port", err.Error())
	}
	if hostsvc.PortListening(port) {
		return doctor.Pass("backend port", fmt.Sprintf("listener on %d", port))
	}
	return doctor.Warn("backend port", fmt.Sprintf("no listener on %d (backend not running)", port))
}
