// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package setup

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/fiochat/fiochat-setup/lib/answers"
	"github.com/fiochat/fiochat-setup/lib/hostsvc"
	"github.com/fiochat/fiochat-setup/lib/release"
)

func noEnv(string) string { return "" }

func resolvedSet(overrides map[string]string) *answers.Set {
	return answers.Resolve(overrides, noEnv, nil)
}

func testPaths(t *testing.T) Paths {
	t.Helper()
	root := t.TempDir()
	return Paths{
		InstallRoot:  filepath.Join(root, "opt", "fiochat"),
		AliasPath:    filepath.Join(root, "bin", "fio"),
		SystemConfig: filepath.Join(root, "etc", "fiochat", "config.yaml"),
		UserConfig:   filepath.Join(root, "home", ".config", "fiochat", "config.yaml"),
		StateDir:     filepath.Join(root, "var", "fiochat"),
		UserStateDir: filepath.Join(root, "home", ".state", "fiochat"),
		UnitDir:      filepath.Join(root, "units"),
		AgentDir:     filepath.Join(root, "agents"),
	}
}

type cannedRunner struct {
	calls []string
}

func (c *cannedRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	c.calls = append(c.calls, strings.Join(append([]string{name}, args...), " "))
	return nil, nil
}

func newTestRunner(t *testing.T) (*Runner, *cannedRunner, *bytes.Buffer) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := &cannedRunner{}
	var out bytes.Buffer
	return &Runner{
		Logger:   logger,
		Out:      &out,
		System:   hostsvc.NewSystemWith(logger, runner.run),
		Resolver: release.NewResolver(),
	}, runner, &out
}

func newContext(t *testing.T, overrides map[string]string) RunContext {
	t.Helper()
	rc, err := NewRunContext(resolvedSet(overrides), testPaths(t), false)
	if err != nil {
		t.Fatalf("NewRunContext: %v", err)
	}
	return rc
}

func TestNewRunContextRejectsUnknownEnums(t *testing.T) {
	_, err := NewRunContext(resolvedSet(map[string]string{
		"MODE":   "staging",
		"METHOD": "carrier-pigeon",
	}), Paths{}, false)
	if err == nil {
		t.Fatal("expected enum errors")
	}
	message := err.Error()
	if !strings.Contains(message, "staging") || !strings.Contains(message, "carrier-pigeon") {
		t.Errorf("error does not name both bad enums: %s", message)
	}
}

func TestValidateMissingOpenAIKeyIsTheOnlyViolation(t *testing.T) {
	rc := newContext(t, map[string]string{
		"MODE":                 "production",
		"CONFIG_SOURCE":        "rebuild",
		"PROVIDER":             "openai",
		"TELEGRAM_BOT_TOKEN":   "12345:token",
		"TELEGRAM_ALLOWED_IDS": "42",
	})

	violations := Violations(Validate(rc))
	if len(violations) != 1 {
		t.Fatalf("violations = %v, want exactly one", violations)
	}
	if !strings.Contains(violations[0], "OPENAI_API_KEY") {
		t.Errorf("violation does not name the missing key: %s", violations[0])
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	rc := newContext(t, map[string]string{
		"MODE":          "production",
		"CONFIG_SOURCE": "rebuild",
		"PROVIDER":      "azure-openai",
		"SERVER_PORT":   "eighty",
	})

	violations := Violations(Validate(rc))
	for _, want := range []string{"SERVER_PORT", "AZURE_API_BASE", "AZURE_API_KEY", "TELEGRAM_BOT_TOKEN", "TELEGRAM_ALLOWED_IDS"} {
		found := false
		for _, violation := range violations {
			if strings.Contains(violation, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no violation names %s: %v", want, violations)
		}
	}
}

func TestValidateDevelopmentHasNoHardRequirements(t *testing.T) {
	rc := newContext(t, map[string]string{"MODE": "development", "CONFIG_SOURCE": "rebuild"})
	if err := Validate(rc); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}
}

func TestApplyInspectOnlyVerifies(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	rc := newContext(t, map[string]string{"MODE": "inspect"})
	if err := runner.Apply(context.Background(), rc); !errors.Is(err, ErrInspectOnly) {
		t.Fatalf("err = %v, want ErrInspectOnly", err)
	}
}

func TestApplyNonInteractiveRevalidates(t *testing.T) {
	runner, canned, _ := newTestRunner(t)
	rc := newContext(t, map[string]string{
		"MODE":          "production",
		"CONFIG_SOURCE": "rebuild",
		"PROVIDER":      "openai",
	})

	err := runner.Apply(context.Background(), rc)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if len(canned.calls) != 0 {
		t.Errorf("host commands ran despite failed validation: %v", canned.calls)
	}
}

func TestApplyDevelopmentCreatesConfigAndIsIdempotent(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	rc := newContext(t, map[string]string{
		"MODE":                 "development",
		"CONFIG_SOURCE":        "rebuild",
		"PROVIDER":             "openai",
		"OPENAI_API_KEY":       "sk-dev",
		"TELEGRAM_BOT_TOKEN":   "12345:token",
		"TELEGRAM_ALLOWED_IDS": "1,2",
		"START_NOW":            "false",
	})

	if err := runner.Apply(context.Background(), rc); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	configPath := rc.Paths.UserConfig
	first, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config not created: %v", err)
	}
	content := string(first)
	for _, want := range []string{"clients:", "api_key: sk-dev", "telegram:", "bot_token: 12345:token", "- 1", "- 2"} {
		if !strings.Contains(content, want) {
			t.Errorf("config missing %q:\n%s", want, content)
		}
	}

	// Second run with identical answers converges on identical bytes,
	// with no duplicated sections.
	if err := runner.Apply(context.Background(), rc); err != nil {
		t.Fatalf("Apply repeat: %v", err)
	}
	second, _ := os.ReadFile(configPath)
	if string(first) != string(second) {
		t.Errorf("repeat apply changed config:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	if strings.Count(string(second), "telegram:") != 1 {
		t.Errorf("duplicated telegram section:\n%s", second)
	}

	// Every mutation of a pre-existing document leaves a backup.
	backups, _ := filepath.Glob(configPath + ".bak-*")
	if len(backups) == 0 {
		t.Error("no backups after reconfiguring an existing document")
	}
}

func TestApplyDevelopmentExistingConfigMissing(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	rc := newContext(t, map[string]string{
		"MODE":          "development",
		"CONFIG_SOURCE": "existing",
		"START_NOW":     "false",
	})

	err := runner.Apply(context.Background(), rc)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want missing-config failure", err)
	}
}

func TestApplyMacOSRefusedOffDarwin(t *testing.T) {
	runner, _, _ := newTestRunner(t)
	runner.GOOS = "linux"
	rc := newContext(t, map[string]string{
		"MODE":          "macos",
		"METHOD":        "manual",
		"CONFIG_SOURCE": "template",
	})

	err := runner.Apply(context.Background(), rc)
	if !errors.Is(err, ErrDarwinOnly) {
		t.Fatalf("err = %v, want ErrDarwinOnly", err)
	}
	if !strings.Contains(err.Error(), "linux") {
		t.Errorf("refusal does not name the host OS: %v", err)
	}
}

func buildTestArtifact(t *testing.T) (archive []byte, sidecar string) {
	t.Helper()
	var buffer bytes.Buffer
	compressor := gzip.NewWriter(&buffer)
	writer := tar.NewWriter(compressor)
	files := map[string]string{
		"fiochat":                "#!fake-binary\n",
		"deploy/fiochat.service": "[Unit]\nDescription=from artifact\n[Service]\nUser=fiochat\n[Install]\nWantedBy=multi-user.target\n",
	}
	for name, body := range files {
		if err := writer.WriteHeader(&tar.Header{Name: name, Mode: 0755, Size: int64(len(body))}); err != nil {
			t.Fatal(err)
		}
		if _, err := writer.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	writer.Close()
	compressor.Close()

	digest := sha256.Sum256(buffer.Bytes())
	return buffer.Bytes(), hex.EncodeToString(digest[:]) + "  archive\n"
}

func TestApplyProductionJourney(t *testing.T) {
	current, err := user.Current()
	if err != nil {
		t.Skipf("no current user: %v", err)
	}

	archive, sidecar := buildTestArtifact(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".sha256") {
			fmt.Fprint(w, sidecar)
			return
		}
		w.Write(archive)
	}))
	defer server.Close()

	runner, canned, out := newTestRunner(t)
	runner.GOOS, runner.GOARCH = "linux", "amd64"
	runner.installerFor = func(repo string, platform release.Platform, installRoot string) *release.Installer {
		installer := release.NewInstaller(repo, platform, installRoot)
		installer.AssetBaseURL = server.URL
		installer.Client = server.Client()
		return installer
	}

	rc := newContext(t, map[string]string{
		"MODE":                 "production",
		"CONFIG_SOURCE":        "rebuild",
		"SERVICE_USER":         current.Username,
		"TAG":                  "v1.0.0",
		"PROVIDER":             "openai",
		"OPENAI_API_KEY":       "sk-prod",
		"TELEGRAM_BOT_TOKEN":   "12345:token",
		"TELEGRAM_ALLOWED_IDS": "42",
		"START_NOW":            "false",
	})

	workspace, cleanup, err := NewWorkspace()
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	rc = rc.WithWorkspace(workspace)

	if err := runner.Apply(context.Background(), rc); err != nil {
		t.Fatalf("Apply: %v\noutput:\n%s", err, out.String())
	}

	// Executable promoted and aliased.
	installed := filepath.Join(rc.Paths.InstallRoot, "fiochat")
	if _, err := os.Stat(installed); err != nil {
		t.Errorf("executable not installed: %v", err)
	}
	if target, _ := os.Readlink(rc.Paths.AliasPath); target != installed {
		t.Errorf("alias -> %q, want %q", target, installed)
	}

	// Artifact deploy asset wins over the embedded unit.
	unit, err := os.ReadFile(filepath.Join(rc.Paths.UnitDir, "fiochat.service"))
	if err != nil {
		t.Fatalf("unit not installed: %v", err)
	}
	if !strings.Contains(string(unit), "Description=from artifact") {
		t.Errorf("embedded unit used despite artifact deploy asset:\n%s", unit)
	}
	// Bridge unit has no deploy asset, so the embedded one lands.
	bridge, err := os.ReadFile(filepath.Join(rc.Paths.UnitDir, "fiochat-bridge.service"))
	if err != nil {
		t.Fatalf("bridge unit not installed: %v", err)
	}
	if !strings.Contains(string(bridge), "fiochat --telegram") {
		t.Errorf("bridge unit content:\n%s", bridge)
	}

	// Non-dedicated identity gets the drop-in.
	dropIn, err := os.ReadFile(filepath.Join(rc.Paths.UnitDir, "fiochat.service.d", "10-service-user.conf"))
	if err != nil {
		t.Fatalf("drop-in not installed: %v", err)
	}
	if !strings.Contains(string(dropIn), "User="+current.Username) {
		t.Errorf("drop-in = %s", dropIn)
	}

	// Config rebuilt at the system path.
	config, err := os.ReadFile(rc.Paths.SystemConfig)
	if err != nil {
		t.Fatalf("config not installed: %v", err)
	}
	if !strings.Contains(string(config), "api_key: sk-prod") {
		t.Errorf("config missing provider key:\n%s", config)
	}

	// START_NOW=false: daemon-reload + enable, never start.
	joined := strings.Join(canned.calls, "\n")
	if !strings.Contains(joined, "systemctl daemon-reload") {
		t.Errorf("no daemon-reload in %v", canned.calls)
	}
	if !strings.Contains(joined, "systemctl enable fiochat.service") {
		t.Errorf("no enable in %v", canned.calls)
	}
	if strings.Contains(joined, "restart") {
		t.Errorf("services started despite START_NOW=false: %v", canned.calls)
	}
}
