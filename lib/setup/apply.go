// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fiochat/fiochat-setup/lib/configdoc"
	"github.com/fiochat/fiochat-setup/lib/content"
	"github.com/fiochat/fiochat-setup/lib/hostsvc"
	"github.com/fiochat/fiochat-setup/lib/release"
)

// ErrInspectOnly is returned when apply is invoked in inspect mode,
// which never mutates: the caller runs verification instead.
var ErrInspectOnly = errors.New("inspect mode only verifies")

// ErrDarwinOnly is returned when the macos journey runs on a
// non-darwin host. It is an input problem, not an install failure:
// the caller picked a mode the host cannot run.
var ErrDarwinOnly = errors.New("macos mode requires a darwin host")

// ConfirmFunc asks the operator a yes/no question at a pre-destructive
// checkpoint. A nil ConfirmFunc (non-interactive run) resolves every
// checkpoint to proceed-with-warning.
type ConfirmFunc func(label string, defaultYes bool) (bool, error)

// Runner executes apply journeys. Collaborators are injected so tests
// run against temp directories and fake hosts.
type Runner struct {
	Logger   *slog.Logger
	Out      io.Writer
	System   *hostsvc.System
	Resolver *release.Resolver
	Confirm  ConfirmFunc

	// GOOS and GOARCH override the build platform in tests.
	GOOS   string
	GOARCH string

	// installerFor is swappable in tests to point downloads at a
	// local server.
	installerFor func(repo string, platform release.Platform, installRoot string) *release.Installer
}

func (r *Runner) goos() string {
	if r.GOOS != "" {
		return r.GOOS
	}
	return runtime.GOOS
}

func (r *Runner) goarch() string {
	if r.GOARCH != "" {
		return r.GOARCH
	}
	return runtime.GOARCH
}

func (r *Runner) newInstaller(repo string, platform release.Platform, installRoot string) *release.Installer {
	if r.installerFor != nil {
		return r.installerFor(repo, platform, installRoot)
	}
	return release.NewInstaller(repo, platform, installRoot)
}

func (r *Runner) step(format string, args ...any) {
	fmt.Fprintf(r.Out, "==> "+format+"\n", args...)
}

// Apply runs the journey for the context's mode. Non-interactive runs
// re-validate first, so automation can never reach a half-configured
// journey with missing answers.
func (r *Runner) Apply(ctx context.Context, rc RunContext) error {
	if rc.Mode == ModeInspect {
		return ErrInspectOnly
	}
	if !rc.Interactive {
		if err := Validate(rc); err != nil {
			return err
		}
	}

	r.System.UnitDir = rc.Paths.UnitDir
	r.System.AgentDir = rc.Paths.AgentDir

	switch rc.Mode {
	case ModeProduction:
		return r.applyProduction(ctx, rc)
	case ModeMacOS:
		return r.applyMacOS(ctx, rc)
	case ModeDevelopment:
		return r.applyDevelopment(ctx, rc)
	}
	return fmt.Errorf("no journey for mode %q", rc.Mode)
}

// acquire downloads, verifies, and promotes the release artifact, and
// maintains the fio alias. Returns the extracted tree so unit install
// can prefer the artifact's own deploy assets.
func (r *Runner) acquire(ctx context.Context, rc RunContext) (extracted string, err error) {
	platform, err := release.DetectPlatform(r.goos(), r.goarch())
	if err != nil {
		return "", err
	}

	repo := rc.Answers.Get("REPO")
	tag, err := r.Resolver.ResolveTag(ctx, repo, rc.Answers.Get("TAG"))
	if err != nil {
		return "", err
	}
	r.step("installing %s %s for %s", repo, tag, platform)

	installer := r.newInstaller(repo, platform, rc.Paths.InstallRoot)
	archive, err := installer.Fetch(ctx, tag, rc.Workspace)
	if err != nil {
		return "", err
	}

	extracted = filepath.Join(rc.Workspace, "extracted")
	if err := release.Extract(archive, extracted); err != nil {
		return "", err
	}
	executable, err := installer.LocateExecutable(extracted)
	if err != nil {
		return "", err
	}
	installed, err := installer.InstallExecutable(executable)
	if err != nil {
		return "", err
	}
	r.step("installed %s", installed)

	warning, err := installer.EnsureAlias(rc.Paths.AliasPath, installed)
	if err != nil {
		return "", err
	}
	if warning != "" {
		r.Logger.Warn("alias skipped", "reason", warning)
		fmt.Fprintf(r.Out, "warning: %s\n", warning)
	} else {
		r.step("alias %s -> %s", rc.Paths.AliasPath, installed)
	}
	return extracted, nil
}

// installConfig produces the configuration document at path according
// to the chosen config source. Rebuild regenerates both managed
// sections wholesale; everything outside them is preserved.
func (r *Runner) installConfig(rc RunContext, path string, port int) error {
	store := configdoc.NewStore(path)
	params := content.Params{
		InstallRoot: rc.Paths.InstallRoot,
		ConfigDir:   filepath.Dir(path),
		StateDir:    r.stateDirFor(rc),
		Port:        port,
	}

	switch rc.ConfigSource {
	case ConfigExisting:
		if !store.Exists() {
			return fmt.Errorf("config source \"existing\" but %s not found; choose rebuild or template", path)
		}
		r.step("reusing configuration at %s", path)
		return nil

	case ConfigTemplate:
		if store.Exists() {
			r.step("configuration already present at %s, template untouched", path)
			return nil
		}
		if err := store.WriteFull(content.BaseConfig(params)); err != nil {
			return err
		}
		r.step("installed configuration template at %s", path)
		return nil

	case ConfigRebuild:
		if !store.Exists() {
			if err := store.WriteFull(content.BaseConfig(params)); err != nil {
				return err
			}
		}

		clients, err := configdoc.BuildClientsSection(r.providerFields(rc))
		if err != nil {
			return err
		}
		if err := store.WriteSection(configdoc.SectionClients, clients); err != nil {
			return err
		}

		ids, err := configdoc.ParseAllowedIDs(rc.Answers.Get("TELEGRAM_ALLOWED_IDS"))
		if err != nil {
			return err
		}
		telegram, err := configdoc.BuildTelegramSection(configdoc.TelegramFields{
			BotToken:       rc.Answers.Get("TELEGRAM_BOT_TOKEN"),
			AllowedUserIDs: ids,
		})
		if err != nil {
			return err
		}
		if err := store.WriteSection(configdoc.SectionTelegram, telegram); err != nil {
			return err
		}
		r.step("rebuilt provider and relay sections in %s", path)
		return nil
	}
	return fmt.Errorf("no config handling for source %q", rc.ConfigSource)
}

func (r *Runner) providerFields(rc RunContext) configdoc.ProviderFields {
	fields := configdoc.ProviderFields{Provider: rc.Answers.Get("PROVIDER")}
	switch fields.Provider {
	case "openai":
		fields.APIKey = rc.Answers.Get("OPENAI_API_KEY")
	case "azure-openai":
		fields.APIBase = rc.Answers.Get("AZURE_API_BASE")
		fields.APIKey = rc.Answers.Get("AZURE_API_KEY")
	}
	return fields
}

func (r *Runner) stateDirFor(rc RunContext) string {
	if rc.Mode == ModeProduction {
		return rc.Paths.StateDir
	}
	return rc.Paths.UserStateDir
}

// portCheckpoint warns when the backend port already has a listener.
// Interactive runs may abort here; non-interactive runs proceed with
// the warning, never silently.
func (r *Runner) portCheckpoint(port int) error {
	if !hostsvc.PortListening(port) {
		return nil
	}
	message := fmt.Sprintf("port %d already has a listener", port)
	if r.Confirm != nil {
		proceed, err := r.Confirm(message+"; start services anyway?", false)
		if err != nil {
			return err
		}
		if !proceed {
			return fmt.Errorf("aborted: %s", message)
		}
		return nil
	}
	r.Logger.Warn("port conflict", "port", port)
	fmt.Fprintf(r.Out, "warning: %s, starting anyway\n", message)
	return nil
}

// unitContent prefers the artifact's own deploy asset when the
// extracted tree carries one, falling back to the embedded canonical
// definition. Manual installs have no extracted tree and always use
// the embedded form.
func unitContent(extracted, name, embedded string) string {
	if extracted == "" {
		return embedded
	}
	data, err := os.ReadFile(filepath.Join(extracted, "deploy", name))
	if err != nil {
		return embedded
	}
	return string(data)
}
