// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package phases

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli/doctor"
	"github.com/fiochat/fiochat-setup/lib/answers"
	"github.com/fiochat/fiochat-setup/lib/hostsvc"
	"github.com/fiochat/fiochat-setup/lib/setup"
)

func testContext(t *testing.T, mode string) setup.RunContext {
	t.Helper()
	root := t.TempDir()
	paths := setup.Paths{
		InstallRoot:  filepath.Join(root, "opt", "fiochat"),
		AliasPath:    filepath.Join(root, "bin", "fio"),
		SystemConfig: filepath.Join(root, "etc", "config.yaml"),
		UserConfig:   filepath.Join(root, "user", "config.yaml"),
		StateDir:     filepath.Join(root, "state"),
		UserStateDir: filepath.Join(root, "ustate"),
		UnitDir:      filepath.Join(root, "units"),
		AgentDir:     filepath.Join(root, "agents"),
	}
	set := answers.Resolve(map[string]string{"MODE": mode}, func(string) string { return "" }, nil)
	rc, err := setup.NewRunContext(set, paths, false)
	if err != nil {
		t.Fatalf("NewRunContext: %v", err)
	}
	return rc
}

func quietSystem() *hostsvc.System {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return hostsvc.NewSystemWith(logger, func(context.Context, string, ...string) ([]byte, error) {
		return nil, nil
	})
}

func TestVerifyResultsFixedOrderAndRepeatable(t *testing.T) {
	rc := testContext(t, "production")
	system := quietSystem()
	system.UnitDir = rc.Paths.UnitDir

	first := verifyResults(context.Background(), rc, system)
	second := verifyResults(context.Background(), rc, system)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("consecutive verifies differ:\n%v\n%v", first, second)
	}

	var firstOut, secondOut bytes.Buffer
	doctor.PrintJSON(&firstOut, first)
	doctor.PrintJSON(&secondOut, second)
	if !bytes.Equal(firstOut.Bytes(), secondOut.Bytes()) {
		t.Error("consecutive verify reports are not byte-identical")
	}
}

func TestVerifyResultsCleanHostFails(t *testing.T) {
	rc := testContext(t, "production")
	system := quietSystem()
	system.UnitDir = rc.Paths.UnitDir

	results := verifyResults(context.Background(), rc, system)
	if !doctor.AnyFailed(results) {
		t.Error("empty host verified clean")
	}

	// Missing unit files mark the state checks skipped, not failed.
	skips := 0
	for _, result := range results {
		if result.Status == doctor.StatusSkip {
			skips++
		}
	}
	if skips != 4 {
		t.Errorf("skips = %d, want 4 (enabled+active per unit)", skips)
	}
}

func TestCheckBinary(t *testing.T) {
	rc := testContext(t, "development")
	executable := filepath.Join(rc.Paths.InstallRoot, "fiochat")

	if got := checkBinary(rc); got.Status != doctor.StatusFail {
		t.Errorf("missing binary status = %s, want fail", got.Status)
	}

	if err := os.MkdirAll(rc.Paths.InstallRoot, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(executable, []byte("#!x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := checkBinary(rc); got.Status != doctor.StatusFail {
		t.Errorf("non-executable binary status = %s, want fail", got.Status)
	}

	if err := os.Chmod(executable, 0755); err != nil {
		t.Fatal(err)
	}
	if got := checkBinary(rc); got.Status != doctor.StatusPass {
		t.Errorf("executable binary status = %s, want pass", got.Status)
	}
}

func TestCheckAliasStates(t *testing.T) {
	rc := testContext(t, "production")
	if err := os.MkdirAll(filepath.Dir(rc.Paths.AliasPath), 0755); err != nil {
		t.Fatal(err)
	}

	// Missing alias: warn.
	if got := checkAlias(rc); got.Status != doctor.StatusWarn {
		t.Errorf("missing alias status = %s, want warn", got.Status)
	}

	// Unrelated command at the alias path: warn naming the collision.
	if err := os.WriteFile(rc.Paths.AliasPath, []byte("ELF"), 0755); err != nil {
		t.Fatal(err)
	}
	got := checkAlias(rc)
	if got.Status != doctor.StatusWarn || !strings.Contains(got.Message, "unrelated command") {
		t.Errorf("foreign command result = %+v", got)
	}
	os.Remove(rc.Paths.AliasPath)

	// Foreign symlink: warn.
	if err := os.Symlink("/usr/bin/true", rc.Paths.AliasPath); err != nil {
		t.Fatal(err)
	}
	if got := checkAlias(rc); got.Status != doctor.StatusWarn {
		t.Errorf("foreign symlink status = %s, want warn", got.Status)
	}
	os.Remove(rc.Paths.AliasPath)

	// Our symlink: pass.
	if err := os.Symlink(filepath.Join(rc.Paths.InstallRoot, "fiochat"), rc.Paths.AliasPath); err != nil {
		t.Fatal(err)
	}
	if got := checkAlias(rc); got.Status != doctor.StatusPass {
		t.Errorf("our symlink status = %s, want pass", got.Status)
	}
}

func TestContextViolationsEnumProblems(t *testing.T) {
	set := answers.Resolve(map[string]string{"MODE": "staging"}, func(string) string { return "" }, nil)
	violations := contextViolations(set)
	if len(violations) == 0 || !strings.Contains(violations[0], "staging") {
		t.Errorf("violations = %v", violations)
	}
}
