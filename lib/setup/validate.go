// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package setup

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/fiochat/fiochat-setup/lib/configdoc"
)

// Validate enumerates every requirement violation for the context's
// mode/method/config-source combination. It never stops at the first
// problem: a non-interactive caller fixes everything in one edit
// cycle. A nil return means apply may proceed.
//
// Development and inspect carry no hard requirements. Production and
// macos share the journey shape, so they share the rules, except that
// macos never needs a service identity.
func Validate(rc RunContext) error {
	var violations error

	if _, err := rc.ServerPort(); err != nil {
		violations = multierr.Append(violations, err)
	}

	if rc.Mode != ModeProduction && rc.Mode != ModeMacOS {
		return violations
	}

	if rc.Method == MethodRelease {
		if !rc.Answers.Has("REPO") {
			violations = multierr.Append(violations, fmt.Errorf("REPO: release install needs a source repository"))
		}
		if !rc.Answers.Has("TAG") {
			violations = multierr.Append(violations, fmt.Errorf("TAG: release install needs a version tag (or \"latest\")"))
		}
	}
	if rc.Mode == ModeProduction && !rc.Answers.Has("SERVICE_USER") {
		violations = multierr.Append(violations, fmt.Errorf("SERVICE_USER: production install needs a service identity"))
	}

	if rc.ConfigSource == ConfigRebuild {
		violations = multierr.Append(violations, validateRebuildFields(rc))
	}
	return violations
}

// validateRebuildFields checks the provider and relay credentials a
// config rebuild writes into the document.
func validateRebuildFields(rc RunContext) error {
	var violations error

	switch provider := rc.Answers.Get("PROVIDER"); provider {
	case "openai":
		if !rc.Answers.Has("OPENAI_API_KEY") {
			violations = multierr.Append(violations, fmt.Errorf("OPENAI_API_KEY: provider openai needs an API key"))
		}
	case "azure-openai":
		if !rc.Answers.Has("AZURE_API_BASE") {
			violations = multierr.Append(violations, fmt.Errorf("AZURE_API_BASE: provider azure-openai needs an endpoint base URL"))
		}
		if !rc.Answers.Has("AZURE_API_KEY") {
			violations = multierr.Append(violations, fmt.Errorf("AZURE_API_KEY: provider azure-openai needs an API key"))
		}
	default:
		violations = multierr.Append(violations, fmt.Errorf("PROVIDER: unknown provider %q (openai, azure-openai)", provider))
	}

	if !rc.Answers.Has("TELEGRAM_BOT_TOKEN") {
		violations = multierr.Append(violations, fmt.Errorf("TELEGRAM_BOT_TOKEN: config rebuild needs the relay bot token"))
	}
	if !rc.Answers.Has("TELEGRAM_ALLOWED_IDS") {
		violations = multierr.Append(violations, fmt.Errorf("TELEGRAM_ALLOWED_IDS: config rebuild needs the allowed account list"))
	} else if _, err := configdoc.ParseAllowedIDs(rc.Answers.Get("TELEGRAM_ALLOWED_IDS")); err != nil {
		violations = multierr.Append(violations, fmt.Errorf("TELEGRAM_ALLOWED_IDS: %w", err))
	}
	return violations
}

// Violations flattens a Validate error into its individual messages.
func Violations(err error) []string {
	var messages []string
	for _, violation := range multierr.Errors(err) {
		messages = append(messages, violation.Error())
	}
	return messages
}
