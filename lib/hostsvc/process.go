// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package hostsvc

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// StartDetached launches an executable as a daemonless background
// process for development mode: its own session, stdout and stderr
// appended to logPath, not reaped by us. Returns the PID so the
// operator can stop it later.
func (s *System) StartDetached(executable string, args []string, workdir, logPath string) (pid int, err error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return 0, fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("open log %s: %w", logPath, err)
	}
	defer logFile.Close()

	command := exec.Command(executable, args...)
	command.Dir = workdir
	command.Stdout = logFile
	command.Stderr = logFile
	command.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := command.Start(); err != nil {
		return 0, fmt.Errorf("start %s: %w", executable, err)
	}
	pid = command.Process.Pid
	// Detach: the process outlives us and init reaps it.
	if err := command.Process.Release(); err != nil {
		return pid, fmt.Errorf("release %s: %w", executable, err)
	}
	s.logger.Info("started background process", "executable", executable, "pid", pid, "log", logPath)
	return pid, nil
}

// ProcessAlive reports whether a PID still refers to a live process.
func ProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
