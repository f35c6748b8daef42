// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package hostsvc

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// EnsureIdentity makes sure the service account exists, creating it as
// a locked system user when absent. Returns true when the user was
// created on this call.
func (s *System) EnsureIdentity(ctx context.Context, username string) (created bool, err error) {
	if _, lookupErr := user.Lookup(username); lookupErr == nil {
		s.logger.Debug("service user exists", "user", username)
		return false, nil
	} else if _, unknown := lookupErr.(user.UnknownUserError); !unknown {
		return false, fmt.Errorf("look up user %s: %w", username, lookupErr)
	}

	args := []string{"--system", "--no-create-home", "--shell", "/usr/sbin/nologin", username}
	output, runErr := s.run(ctx, "useradd", args...)
	if runErr != nil {
		return false, commandError("useradd", args, output, runErr)
	}
	s.logger.Info("created service user", "user", username)
	return true, nil
}

// EnsureStateDir makes sure the service state directory exists with the
// service account as owner and mode 0750. Ownership and mode are
// corrected on every run, not only on creation.
func (s *System) EnsureStateDir(path, username string) error {
	account, err := user.Lookup(username)
	if err != nil {
		return fmt.Errorf("look up user %s: %w", username, err)
	}
	uid, err := strconv.Atoi(account.Uid)
	if err != nil {
		return fmt.Errorf("parse uid for %s: %w", username, err)
	}
	gid, err := strconv.Atoi(account.Gid)
	if err != nil {
		return fmt.Errorf("parse gid for %s: %w", username, err)
	}

	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("create state directory %s: %w", path, err)
	}

	var stat unix.Stat_t
	if err := unix.Stat(path, &stat); err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if int(stat.Uid) != uid || int(stat.Gid) != gid {
		if err := os.Chown(path, uid, gid); err != nil {
			return fmt.Errorf("chown %s to %s: %w", path, username, err)
		}
	}
	if stat.Mode&0777 != 0750 {
		if err := os.Chmod(path, 0750); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
	}
	s.logger.Debug("state directory ready", "path", path, "owner", username)
	return nil
}

// StateDirStatus reports whether the state directory exists with the
// expected owner and mode. Used by the verification phase, which never
// mutates.
func StateDirStatus(path, username string) (ok bool, detail string) {
	var stat unix.Stat_t
	if err := unix.Stat(path, &stat); err != nil {
		return false, fmt.Sprintf("missing: %v", err)
	}
	account, err := user.Lookup(username)
	if err != nil {
		return false, fmt.Sprintf("service user %s missing", username)
	}
	if strconv.Itoa(int(stat.Uid)) != account.Uid {
		return false, fmt.Sprintf("owned by uid %d, want %s (%s)", stat.Uid, account.Uid, username)
	}
	if mode := stat.Mode & 0777; mode != 0750 {
		return false, fmt.Sprintf("mode %04o, want 0750", mode)
	}
	return true, filepath.Clean(path)
}
