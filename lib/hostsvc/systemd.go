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

// InstallUnit writes a systemd unit file under the unit directory,
// replacing any previous version. Returns true when the file content
// changed, so callers know a daemon-reload is warranted.
func (s *System) InstallUnit(name, content string) (changed bool, err error) {
	path := filepath.Join(s.UnitDir, name)
	previous, readErr := os.ReadFile(path)
	if readErr == nil && string(previous) == content {
		s.logger.Debug("unit unchanged", "unit", name)
		return false, nil
	}

	if err := writeFileAtomic(path, content, 0644); err != nil {
		return false, fmt.Errorf("install unit %s: %w", name, err)
	}
	s.logger.Info("installed unit", "unit", name)
	return true, nil
}

// InstallServiceUserOverride writes a drop-in fragment that pins the
// unit to the chosen service account. Kept separate from the unit file
// so changing the account does not rewrite the unit itself.
func (s *System) InstallServiceUserOverride(unit, username string) (changed bool, err error) {
	fragment := fmt.Sprintf("[Service]\nUser=%s\nGroup=%s\n", username, username)
	dropInDir := filepath.Join(s.UnitDir, unit+".d")
	path := filepath.Join(dropInDir, "10-service-user.conf")

	previous, readErr := os.ReadFile(path)
	if readErr == nil && string(previous) == fragment {
		return false, nil
	}
	if err := os.MkdirAll(dropInDir, 0755); err != nil {
		return false, fmt.Errorf("create drop-in directory: %w", err)
	}
	if err := writeFileAtomic(path, fragment, 0644); err != nil {
		return false, fmt.Errorf("install drop-in for %s: %w", unit, err)
	}
	s.logger.Info("installed service-user drop-in", "unit", unit, "user", username)
	return true, nil
}

// DaemonReload asks systemd to re-read unit files.
func (s *System) DaemonReload(ctx context.Context) error {
	args := []string{"daemon-reload"}
	if output, err := s.run(ctx, "systemctl", args...); err != nil {
		return commandError("systemctl", args, output, err)
	}
	return nil
}

// EnableUnit marks the unit to start at boot.
func (s *System) EnableUnit(ctx context.Context, unit string) error {
	args := []string{"enable", unit}
	if output, err := s.run(ctx, "systemctl", args...); err != nil {
		return commandError("systemctl", args, output, err)
	}
	s.logger.Info("enabled unit", "unit", unit)
	return nil
}

// StartUnit starts (or restarts) the unit now. Restart rather than
// start so a reconfigure run picks up new config immediately.
func (s *System) StartUnit(ctx context.Context, unit string) error {
	args := []string{"restart", unit}
	if output, err := s.run(ctx, "systemctl", args...); err != nil {
		return commandError("systemctl", args, output, err)
	}
	s.logger.Info("started unit", "unit", unit)
	return nil
}

// UnitEnabled reports whether systemd considers the unit enabled.
func (s *System) UnitEnabled(ctx context.Context, unit string) bool {
	output, err := s.run(ctx, "systemctl", "is-enabled", unit)
	return err == nil && strings.TrimSpace(string(output)) == "enabled"
}

// UnitActive reports whether systemd considers the unit active.
func (s *System) UnitActive(ctx context.Context, unit string) bool {
	output, err := s.run(ctx, "systemctl", "is-active", unit)
	return err == nil && strings.TrimSpace(string(output)) == "active"
}

// UnitInstalled reports whether the unit file is present on disk.
func (s *System) UnitInstalled(name string) bool {
	info, err := os.Stat(filepath.Join(s.UnitDir, name))
	return err == nil && info.Mode().IsRegular()
}

// writeFileAtomic writes content via a temp file and rename, so a
// crash never leaves a half-written unit behind.
func writeFileAtomic(path, content string, mode os.FileMode) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return err
	}
	temp, err := os.CreateTemp(directory, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tempPath := temp.Name()
	if _, err := temp.WriteString(content); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := temp.Chmod(mode); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}
