// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package phases

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli"
	"github.com/fiochat/fiochat-setup/lib/answers"
	"github.com/fiochat/fiochat-setup/lib/hostsvc"
	"github.com/fiochat/fiochat-setup/lib/release"
	"github.com/fiochat/fiochat-setup/lib/setup"
)

// WizardCommand walks the operator through the answers interactively
// and dispatches into the chosen mode's apply journey.
func WizardCommand() *cli.Command {
	flagSet := pflag.NewFlagSet("wizard", pflag.ContinueOnError)
	registerAnswerFlags(flagSet)
	answersPath := flagSet.String("answers", "", "path to a KEY=VALUE answers document (prefills prompts)")

	return &cli.Command{
		Name:    "wizard",
		Summary: "Interactive setup (default when run on a terminal)",
		Description: `The wizard asks for each answer in turn, prefilled from flags, the
environment, and the answers document, then runs the apply journey for
the chosen mode. Enter "q" at any menu to quit; nothing is changed
before the final confirmation.`,
		Usage: "fiochat-setup wizard [flags]",
		Examples: []cli.Example{
			{Description: "Interactive setup", Command: "fiochat-setup"},
			{Description: "Prefill from a document, confirm interactively", Command: "fiochat-setup wizard --answers deploy.env"},
		},
		Flags: func() *pflag.FlagSet { return flagSet },
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("wizard takes no positional arguments")
			}
			if !cli.Interactive() {
				return cli.Validationf("wizard needs a terminal; use \"fiochat-setup apply --yes --answers <file>\" for unattended runs")
			}
			logger := cli.NewLogger().With("phase", "wizard")

			set, err := resolveAnswers(flagSet, *answersPath, logger)
			if err != nil {
				return err
			}

			prompter := cli.NewPrompter()
			set, err = collectAnswers(prompter, set)
			if errors.Is(err, cli.ErrQuit) {
				fmt.Fprintln(os.Stderr, "aborted; nothing was changed")
				return nil
			}
			if err != nil {
				return err
			}

			rc, err := buildContext(set, true)
			if err != nil {
				return err
			}
			if violations := setup.Violations(setup.Validate(rc)); len(violations) > 0 {
				return reportViolations(violations)
			}

			proceed, err := prompter.Confirm(fmt.Sprintf("Apply %s setup now?", rc.Mode), true)
			if err != nil && !errors.Is(err, cli.ErrQuit) {
				return err
			}
			if err != nil || !proceed {
				fmt.Fprintln(os.Stderr, "aborted; nothing was changed")
				return nil
			}

			runner := &setup.Runner{
				Logger:   logger,
				Out:      os.Stderr,
				System:   hostsvc.NewSystem(logger),
				Resolver: release.NewResolver(),
				Confirm:  prompter.Confirm,
			}
			return runApply(context.Background(), runner, rc)
		},
	}
}

// collectAnswers prompts for each answer the chosen journey needs,
// prefilled from the already-resolved set. Secrets are asked only when
// still unresolved, with echo disabled.
func collectAnswers(prompter *cli.Prompter, set *answers.Set) (*answers.Set, error) {
	mode, err := prompter.Select("Install mode", []cli.Choice{
		{Key: "production", Label: "production — system install with systemd services"},
		{Key: "development", Label: "development — configuration only, processes run by hand"},
		{Key: "macos", Label: "macos — user-level install with launchd agents"},
		{Key: "inspect", Label: "inspect — report installed state, change nothing"},
	})
	if err != nil {
		return nil, err
	}
	set = set.WithValue("MODE", mode, answers.SourceFlag)
	if mode == "inspect" {
		return set, nil
	}

	if mode == "production" || mode == "macos" {
		method, err := prompter.Select("Install method", []cli.Choice{
			{Key: "release", Label: "release — download a published build"},
			{Key: "manual", Label: "manual — I already built the executable"},
		})
		if err != nil {
			return nil, err
		}
		set = set.WithValue("METHOD", method, answers.SourceFlag)

		if method == "release" {
			repo, err := prompter.Input("Release repository:", set.Get("REPO"))
			if err != nil {
				return nil, err
			}
			set = set.WithValue("REPO", repo, answers.SourceFlag)

			tag, err := prompter.Input("Release tag:", set.Get("TAG"))
			if err != nil {
				return nil, err
			}
			set = set.WithValue("TAG", tag, answers.SourceFlag)
		}
	}

	if mode == "production" {
		serviceUser, err := prompter.Input("Service user:", set.Get("SERVICE_USER"))
		if err != nil {
			return nil, err
		}
		set = set.WithValue("SERVICE_USER", serviceUser, answers.SourceFlag)
	}

	source, err := prompter.Select("Configuration", []cli.Choice{
		{Key: "rebuild", Label: "rebuild — write provider and telegram sections from answers"},
		{Key: "existing", Label: "existing — reuse the configuration already on disk"},
		{Key: "template", Label: "template — install an inert starter configuration"},
	})
	if err != nil {
		return nil, err
	}
	set = set.WithValue("CONFIG_SOURCE", source, answers.SourceFlag)

	if source == "rebuild" {
		set, err = collectRebuildAnswers(prompter, set)
		if err != nil {
			return nil, err
		}
	}

	port, err := prompter.Input("Backend port:", set.Get("SERVER_PORT"))
	if err != nil {
		return nil, err
	}
	set = set.WithValue("SERVER_PORT", port, answers.SourceFlag)

	if mode == "production" || mode == "macos" {
		startNow, err := prompter.Confirm("Start services after install?", set.Bool("START_NOW"))
		if err != nil {
			return nil, err
		}
		set = set.WithValue("START_NOW", fmt.Sprintf("%t", startNow), answers.SourceFlag)
	}
	return set, nil
}

var providerChoices = []cli.Choice{
	{Key: "openai", Label: "openai"},
	{Key: "azure-openai", Label: "azure-openai"},
}

func collectRebuildAnswers(prompter *cli.Prompter, set *answers.Set) (*answers.Set, error) {
	provider, err := prompter.Select("LLM provider", providerChoices)
	if err != nil {
		return nil, err
	}
	set = set.WithValue("PROVIDER", provider, answers.SourceFlag)

	switch provider {
	case "openai":
		if !set.Has("OPENAI_API_KEY") {
			key, err := prompter.Secret("OpenAI API key:")
			if err != nil {
				return nil, err
			}
			set = set.WithValue("OPENAI_API_KEY", key, answers.SourceFlag)
		}
	case "azure-openai":
		base, err := prompter.Input("Azure endpoint base URL:", set.Get("AZURE_API_BASE"))
		if err != nil {
			return nil, err
		}
		set = set.WithValue("AZURE_API_BASE", base, answers.SourceFlag)

		if !set.Has("AZURE_API_KEY") {
			key, err := prompter.Secret("Azure API key:")
			if err != nil {
				return nil, err
			}
			set = set.WithValue("AZURE_API_KEY", key, answers.SourceFlag)
		}
	}

	if !set.Has("TELEGRAM_BOT_TOKEN") {
		token, err := prompter.Secret("Telegram bot token:")
		if err != nil {
			return nil, err
		}
		set = set.WithValue("TELEGRAM_BOT_TOKEN", token, answers.SourceFlag)
	}

	ids, err := prompter.Input("Allowed telegram account IDs (comma-separated):", set.Get("TELEGRAM_ALLOWED_IDS"))
	if err != nil {
		return nil, err
	}
	return set.WithValue("TELEGRAM_ALLOWED_IDS", ids, answers.SourceFlag), nil
}

// fillGaps prompts for the answers the chosen journey still lacks,
// leaving everything already supplied by flags, the environment, or
// the answers document untouched. Unlike the wizard's full walk, only
// unresolved fields are asked; anything still wrong afterwards falls
// through to a validation failure.
func fillGaps(prompter *cli.Prompter, set *answers.Set) (*answers.Set, error) {
	mode := set.Get("MODE")

	if (mode == "production" || mode == "macos") && set.Get("METHOD") == "release" {
		if !set.Has("REPO") {
			repo, err := prompter.Input("Release repository:", "fiochat/fiochat")
			if err != nil {
				return nil, err
			}
			set = set.WithValue("REPO", repo, answers.SourceFlag)
		}
		if !set.Has("TAG") {
			tag, err := prompter.Input("Release tag:", "latest")
			if err != nil {
				return nil, err
			}
			set = set.WithValue("TAG", tag, answers.SourceFlag)
		}
	}

	if mode == "production" && !set.Has("SERVICE_USER") {
		serviceUser, err := prompter.Input("Service user:", setup.DedicatedUser)
		if err != nil {
			return nil, err
		}
		set = set.WithValue("SERVICE_USER", serviceUser, answers.SourceFlag)
	}

	if set.Get("CONFIG_SOURCE") != "rebuild" {
		return set, nil
	}

	if !set.Has("PROVIDER") {
		provider, err := prompter.Select("LLM provider", providerChoices)
		if err != nil {
			return nil, err
		}
		set = set.WithValue("PROVIDER", provider, answers.SourceFlag)
	}
	switch set.Get("PROVIDER") {
	case "openai":
		if !set.Has("OPENAI_API_KEY") {
			key, err := prompter.Secret("OpenAI API key:")
			if err != nil {
				return nil, err
			}
			set = set.WithValue("OPENAI_API_KEY", key, answers.SourceFlag)
		}
	case "azure-openai":
		if !set.Has("AZURE_API_BASE") {
			base, err := prompter.Input("Azure endpoint base URL:", "")
			if err != nil {
				return nil, err
			}
			set = set.WithValue("AZURE_API_BASE", base, answers.SourceFlag)
		}
		if !set.Has("AZURE_API_KEY") {
			key, err := prompter.Secret("Azure API key:")
			if err != nil {
				return nil, err
			}
			set = set.WithValue("AZURE_API_KEY", key, answers.SourceFlag)
		}
	}

	if !set.Has("TELEGRAM_BOT_TOKEN") {
		token, err := prompter.Secret("Telegram bot token:")
		if err != nil {
			return nil, err
		}
		set = set.WithValue("TELEGRAM_BOT_TOKEN", token, answers.SourceFlag)
	}
	if !set.Has("TELEGRAM_ALLOWED_IDS") {
		ids, err := prompter.Input("Allowed telegram account IDs (comma-separated):", "")
		if err != nil {
			return nil, err
		}
		set = set.WithValue("TELEGRAM_ALLOWED_IDS", ids, answers.SourceFlag)
	}
	return set, nil
}
