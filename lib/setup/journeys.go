// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package setup

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/fiochat/fiochat-setup/lib/content"
)

const (
	serverUnit  = "fiochat.service"
	bridgeUnit  = "fiochat-bridge.service"
	serverPlist = "com.fiochat.server.plist"
	bridgePlist = "com.fiochat.bridge.plist"
)

// applyProduction is the system-wide journey: service identity,
// artifact, configuration, systemd units, state directory, then
// enable (and start, when the artifact is fresh).
func (r *Runner) applyProduction(ctx context.Context, rc RunContext) error {
	port, err := rc.ServerPort()
	if err != nil {
		return err
	}

	serviceUser := rc.Answers.Get("SERVICE_USER")
	if serviceUser == DedicatedUser {
		created, err := r.System.EnsureIdentity(ctx, DedicatedUser)
		if err != nil {
			return err
		}
		if created {
			r.step("created service user %s", DedicatedUser)
		}
	} else if _, err := user.Lookup(serviceUser); err != nil {
		return fmt.Errorf("service user %s does not exist on this host", serviceUser)
	}

	extracted := ""
	fresh := false
	if rc.Method == MethodRelease {
		extracted, err = r.acquire(ctx, rc)
		if err != nil {
			return err
		}
		fresh = true
	} else {
		r.step("manual install method: expecting an executable at %s", filepath.Join(rc.Paths.InstallRoot, "fiochat"))
	}

	if err := r.installConfig(rc, rc.Paths.ConfigPath(rc.Mode), port); err != nil {
		return err
	}

	params := content.Params{
		InstallRoot: rc.Paths.InstallRoot,
		ConfigDir:   filepath.Dir(rc.Paths.SystemConfig),
		StateDir:    rc.Paths.StateDir,
		Port:        port,
	}
	unitsChanged := false
	for _, unit := range []struct{ name, embedded string }{
		{serverUnit, content.ServerUnit(params)},
		{bridgeUnit, content.BridgeUnit(params)},
	} {
		changed, err := r.System.InstallUnit(unit.name, unitContent(extracted, unit.name, unit.embedded))
		if err != nil {
			return err
		}
		unitsChanged = unitsChanged || changed

		// The baked-in identity serves the dedicated user; any other
		// account is layered on as a drop-in, leaving the unit intact.
		if serviceUser != DedicatedUser {
			changed, err = r.System.InstallServiceUserOverride(unit.name, serviceUser)
			if err != nil {
				return err
			}
			unitsChanged = unitsChanged || changed
		}
	}

	if err := r.System.EnsureStateDir(rc.Paths.StateDir, serviceUser); err != nil {
		return err
	}
	if unitsChanged {
		if err := r.System.DaemonReload(ctx); err != nil {
			return err
		}
	}

	for _, unit := range []string{serverUnit, bridgeUnit} {
		if err := r.System.EnableUnit(ctx, unit); err != nil {
			return err
		}
	}

	if fresh && rc.Answers.Bool("START_NOW") {
		if err := r.portCheckpoint(port); err != nil {
			return err
		}
		for _, unit := range []string{serverUnit, bridgeUnit} {
			if err := r.System.StartUnit(ctx, unit); err != nil {
				return err
			}
		}
		r.step("services enabled and started")
	} else {
		r.step("services enabled; start later with: systemctl start %s %s", serverUnit, bridgeUnit)
	}

	fmt.Fprintf(r.Out, "\nDone. Configuration: %s\nCheck health with: fiochat-setup verify --mode production\n", rc.Paths.SystemConfig)
	return nil
}

// applyMacOS mirrors the production journey with user-level launchd
// agents and no dedicated identity.
func (r *Runner) applyMacOS(ctx context.Context, rc RunContext) error {
	if r.goos() != "darwin" {
		return fmt.Errorf("%w, this is %s", ErrDarwinOnly, r.goos())
	}
	port, err := rc.ServerPort()
	if err != nil {
		return err
	}

	fresh := false
	if rc.Method == MethodRelease {
		if _, err = r.acquire(ctx, rc); err != nil {
			return err
		}
		fresh = true
	}

	if err := r.installConfig(rc, rc.Paths.ConfigPath(rc.Mode), port); err != nil {
		return err
	}
	if err := os.MkdirAll(rc.Paths.UserStateDir, 0750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	params := content.Params{
		InstallRoot: rc.Paths.InstallRoot,
		ConfigDir:   filepath.Dir(rc.Paths.UserConfig),
		StateDir:    rc.Paths.UserStateDir,
		Port:        port,
	}
	for _, agent := range []struct{ filename, rendered string }{
		{serverPlist, content.ServerAgent(params)},
		{bridgePlist, content.BridgeAgent(params)},
	} {
		if _, err := r.System.InstallAgent(agent.filename, agent.rendered); err != nil {
			return err
		}
	}

	if fresh && rc.Answers.Bool("START_NOW") {
		if err := r.portCheckpoint(port); err != nil {
			return err
		}
		for _, filename := range []string{serverPlist, bridgePlist} {
			if err := r.System.LoadAgent(ctx, filename); err != nil {
				return err
			}
		}
		r.step("launch agents loaded")
	} else {
		r.step("launch agents installed; load later with: launchctl load -w %s", filepath.Join(rc.Paths.AgentDir, serverPlist))
	}

	fmt.Fprintf(r.Out, "\nDone. Configuration: %s\n", rc.Paths.UserConfig)
	return nil
}

// applyDevelopment skips service-manager integration: it ensures a
// usable configuration document and optionally starts both processes
// as detached background jobs.
func (r *Runner) applyDevelopment(_ context.Context, rc RunContext) error {
	port, err := rc.ServerPort()
	if err != nil {
		return err
	}

	if err := r.installConfig(rc, rc.Paths.ConfigPath(rc.Mode), port); err != nil {
		return err
	}

	if !rc.Answers.Bool("START_NOW") {
		r.step("configuration ready; start the backend with: %s --serve 127.0.0.1:%d", filepath.Join(rc.Paths.InstallRoot, "fiochat"), port)
		return nil
	}

	executable := filepath.Join(rc.Paths.InstallRoot, "fiochat")
	if _, err := os.Stat(executable); err != nil {
		r.step("no built executable at %s; processes not started", executable)
		return nil
	}
	if err := r.portCheckpoint(port); err != nil {
		return err
	}

	address := fmt.Sprintf("127.0.0.1:%d", port)
	serverPID, err := r.System.StartDetached(executable, []string{"--serve", address},
		rc.Paths.UserStateDir, filepath.Join(rc.Paths.UserStateDir, "server.log"))
	if err != nil {
		return err
	}
	bridgePID, err := r.System.StartDetached(executable, []string{"--telegram", "--api-base", "http://" + address + "/v1"},
		rc.Paths.UserStateDir, filepath.Join(rc.Paths.UserStateDir, "bridge.log"))
	if err != nil {
		return err
	}

	r.step("backend pid %d, bridge pid %d", serverPID, bridgePID)
	fmt.Fprintf(r.Out, "Stop them with: kill %d %d\n", serverPID, bridgePID)
	return nil
}
