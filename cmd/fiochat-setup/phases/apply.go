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
	"github.com/fiochat/fiochat-setup/lib/hostsvc"
	"github.com/fiochat/fiochat-setup/lib/release"
	"github.com/fiochat/fiochat-setup/lib/setup"
)

// ApplyCommand runs the mode's install journey.
func ApplyCommand() *cli.Command {
	flagSet := pflag.NewFlagSet("apply", pflag.ContinueOnError)
	registerAnswerFlags(flagSet)
	answersPath := flagSet.String("answers", "", "path to a KEY=VALUE answers document")
	assumeYes := flagSet.Bool("yes", false, "never prompt; fail on anything unresolved")

	return &cli.Command{
		Name:    "apply",
		Summary: "Run the install journey for the chosen mode",
		Description: `Apply validates the resolved answers and runs the matching journey:
production (system install + systemd units), macos (user-level launchd
agents), or development (configuration only, optional direct process
launch). Every journey is idempotent: re-running with the same answers
converges without duplicating anything.`,
		Usage: "fiochat-setup apply [flags]",
		Examples: []cli.Example{
			{Description: "Unattended production install", Command: "fiochat-setup apply --yes --answers deploy.env"},
			{Description: "Development config refresh", Command: "fiochat-setup apply --mode development --config-source rebuild"},
			{Description: "Enable services without starting them", Command: "fiochat-setup apply --yes --answers deploy.env --enable-only"},
		},
		Flags: func() *pflag.FlagSet { return flagSet },
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("apply takes no positional arguments")
			}
			logger := cli.NewLogger().With("phase", "apply")
			interactive := cli.Interactive() && !*assumeYes

			set, err := resolveAnswers(flagSet, *answersPath, logger)
			if err != nil {
				return err
			}
			rc, err := buildContext(set, interactive)
			if err != nil {
				return err
			}

			var prompter *cli.Prompter
			if interactive {
				prompter = cli.NewPrompter()
			}

			if violations := setup.Violations(setup.Validate(rc)); len(violations) > 0 {
				if !interactive {
					return reportViolations(violations)
				}
				// Interactive runs ask for the missing answers at the
				// point they are needed instead of failing outright.
				set, err = fillGaps(prompter, set)
				if errors.Is(err, cli.ErrQuit) {
					fmt.Fprintln(os.Stderr, "aborted; nothing was changed")
					return nil
				}
				if err != nil {
					return err
				}
				if rc, err = buildContext(set, true); err != nil {
					return err
				}
				if violations := setup.Violations(setup.Validate(rc)); len(violations) > 0 {
					return reportViolations(violations)
				}
			}

			runner := &setup.Runner{
				Logger:   logger,
				Out:      os.Stderr,
				System:   hostsvc.NewSystem(logger),
				Resolver: release.NewResolver(),
			}
			if prompter != nil {
				runner.Confirm = prompter.Confirm
			}

			return runApply(context.Background(), runner, rc)
		},
	}
}

// runApply manages the ephemeral workspace around the journey and maps
// journey errors onto the exit-code taxonomy.
func runApply(ctx context.Context, runner *setup.Runner, rc setup.RunContext) error {
	workspace, cleanup, err := setup.NewWorkspace()
	if err != nil {
		return cli.Filesystemf("%v", err)
	}
	defer cleanup()

	err = runner.Apply(ctx, rc.WithWorkspace(workspace))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, setup.ErrInspectOnly):
		// Inspect never mutates: run the read-only verification
		// instead, as its own journey.
		return runVerify(ctx, rc, runner.System, false)
	case errors.Is(err, cli.ErrQuit):
		fmt.Fprintln(os.Stderr, "aborted at checkpoint; nothing further was changed")
		return nil
	default:
		return categorize(err)
	}
}
