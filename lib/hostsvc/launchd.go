// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package hostsvc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InstallAgent writes a launchd agent plist under the agent directory.
// Returns true when the file content changed.
func (s *System) InstallAgent(filename, content string) (changed bool, err error) {
	path := filepath.Join(s.AgentDir, filename)
	previous, readErr := os.ReadFile(path)
	if readErr == nil && string(previous) == content {
		s.logger.Debug("agent unchanged", "plist", filename)
		return false, nil
	}
	if err := writeFileAtomic(path, content, 0644); err != nil {
		return false, fmt.Errorf("install agent %s: %w", filename, err)
	}
	s.logger.Info("installed launch agent", "plist", filename)
	return true, nil
}

// LoadAgent (re)loads an agent so launchd picks up the current plist.
// The unload of a not-yet-loaded agent fails harmlessly and is ignored.
func (s *System) LoadAgent(ctx context.Context, filename string) error {
	path := filepath.Join(s.AgentDir, filename)
	s.run(ctx, "launchctl", "unload", path)
	args := []string{"load", "-w", path}
	if output, err := s.run(ctx, "launchctl", args...); err != nil {
		return commandError("launchctl", args, output, err)
	}
	s.logger.Info("loaded launch agent", "plist", filename)
	return nil
}

// AgentLoaded reports whether launchd knows the label.
func (s *System) AgentLoaded(ctx context.Context, label string) bool {
	output, err := s.run(ctx, "launchctl", "list")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 3 && fields[2] == label {
			return true
		}
	}
	return false
}

// AgentInstalled reports whether the agent plist is present on disk.
func (s *System) AgentInstalled(filename string) bool {
	info, err := os.Stat(filepath.Join(s.AgentDir, filename))
	return err == nil && info.Mode().IsRegular()
}
