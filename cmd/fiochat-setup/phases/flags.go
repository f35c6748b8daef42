// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

// Package phases implements the four fiochat-setup phase commands:
// wizard, validate, apply, and verify.
package phases

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli"
	"github.com/fiochat/fiochat-setup/lib/answers"
	"github.com/fiochat/fiochat-setup/lib/hostsvc"
	"github.com/fiochat/fiochat-setup/lib/release"
	"github.com/fiochat/fiochat-setup/lib/setup"
)

var flagUsage = map[string]string{
	"MODE":                 "install mode: production, development, macos, inspect",
	"METHOD":               "install method: release, manual",
	"CONFIG_SOURCE":        "config strategy: existing, rebuild, template",
	"SERVICE_USER":         "service account for the systemd units",
	"REPO":                 "GitHub repository publishing release artifacts",
	"TAG":                  "release tag to install, or \"latest\"",
	"PROVIDER":             "LLM provider: openai, azure-openai",
	"OPENAI_API_KEY":       "OpenAI API key (prefer the answers document or env)",
	"AZURE_API_BASE":       "Azure OpenAI endpoint base URL",
	"AZURE_API_KEY":        "Azure OpenAI API key (prefer the answers document or env)",
	"TELEGRAM_BOT_TOKEN":   "telegram bot token for the relay bridge",
	"TELEGRAM_ALLOWED_IDS": "comma-separated telegram account IDs allowed to use the bridge",
	"SERVER_PORT":          "local API backend port",
}

// registerAnswerFlags adds one long flag per answer field, plus the
// start toggles. Flag values override the environment and the answers
// document.
func registerAnswerFlags(flagSet *pflag.FlagSet) {
	for _, field := range answers.Schema {
		if field.Key == "START_NOW" {
			continue
		}
		flagSet.String(field.Flag, "", flagUsage[field.Key])
	}
	flagSet.Bool("start", true, "start services after a fresh install")
	flagSet.Bool("enable-only", false, "enable services at boot without starting them now")
}

// flagOverrides collects explicitly set answer flags, keyed by field.
func flagOverrides(flagSet *pflag.FlagSet) map[string]string {
	overrides := make(map[string]string)
	for _, field := range answers.Schema {
		if field.Key == "START_NOW" {
			continue
		}
		if flagSet.Changed(field.Flag) {
			value, _ := flagSet.GetString(field.Flag)
			overrides[field.Key] = value
		}
	}
	if flagSet.Changed("start") {
		start, _ := flagSet.GetBool("start")
		overrides["START_NOW"] = strconv.FormatBool(start)
	}
	if flagSet.Changed("enable-only") {
		if enableOnly, _ := flagSet.GetBool("enable-only"); enableOnly {
			overrides["START_NOW"] = "false"
		}
	}
	return overrides
}

// resolveAnswers loads the answers document (when given), then applies
// environment and flag overrides. Document parse problems are warned,
// never fatal.
func resolveAnswers(flagSet *pflag.FlagSet, answersPath string, logger *slog.Logger) (*answers.Set, error) {
	document := map[string]string{}
	if answersPath != "" {
		values, warnings, err := answers.LoadDocument(answersPath)
		if err != nil {
			return nil, cli.Filesystemf("read answers document: %v", err)
		}
		for _, warning := range warnings {
			logger.Warn("answers document", "line", warning.Line, "problem", warning.Text)
		}
		document = values
	}
	return answers.Resolve(document, os.Getenv, flagOverrides(flagSet)), nil
}

// buildContext turns a resolved answer set into a run context,
// reporting enum problems as validation failures.
func buildContext(set *answers.Set, interactive bool) (setup.RunContext, error) {
	rc, err := setup.NewRunContext(set, setup.DefaultPaths(), interactive)
	if err != nil {
		return setup.RunContext{}, &cli.Error{Category: cli.CategoryValidation, Err: err}
	}
	return rc, nil
}

// reportViolations prints the complete violation list and returns the
// validation exit code.
func reportViolations(violations []string) error {
	fmt.Fprintln(os.Stderr, "validation failed:")
	for _, violation := range violations {
		fmt.Fprintf(os.Stderr, "  - %s\n", violation)
	}
	return &cli.ExitError{Code: 2}
}

// categorize maps journey errors onto the exit-code taxonomy. The lib
// packages return sentinel-tagged errors; this is the single place
// they meet the cli error categories. Wrapping uses %w, so the
// original chain stays reachable for errors.Is.
func categorize(err error) error {
	var commandErr *hostsvc.CommandError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, release.ErrUnsupportedPlatform):
		return cli.UnsupportedPlatformf("%w", err)
	case errors.Is(err, release.ErrChecksumMismatch):
		return cli.ChecksumMismatchf("%w", err)
	case errors.Is(err, release.ErrResolution):
		return cli.Resolutionf("%w", err)
	case errors.Is(err, release.ErrDownload):
		return cli.Downloadf("%w", err)
	case errors.Is(err, setup.ErrDarwinOnly):
		return cli.Validationf("%w", err)
	case errors.As(err, &commandErr):
		return cli.Servicef("%w", err)
	default:
		return err
	}
}
