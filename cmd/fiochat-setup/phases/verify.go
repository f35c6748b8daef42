// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package phases

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli"
	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli/doctor"
	"github.com/fiochat/fiochat-setup/lib/hostsvc"
	"github.com/fiochat/fiochat-setup/lib/setup"
)

// VerifyCommand reports the installed state without mutating anything.
func VerifyCommand() *cli.Command {
	flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
	registerAnswerFlags(flagSet)
	answersPath := flagSet.String("answers", "", "path to a KEY=VALUE answers document")
	jsonOutput := flagSet.Bool("json", false, "machine-readable output")

	return &cli.Command{
		Name:    "verify",
		Summary: "Check the installed state, read-only",
		Description: `Verify checks the executable, the fio alias, the configuration
document, and the service state for the chosen mode. It never writes:
two consecutive runs against an unchanged host produce byte-identical
reports. Exit status is non-zero when any check fails.`,
		Usage: "fiochat-setup verify [flags]",
		Examples: []cli.Example{
			{Description: "Verify a production host", Command: "fiochat-setup verify --mode production"},
			{Description: "Scripted health check", Command: "fiochat-setup verify --mode production --json"},
		},
		Flags: func() *pflag.FlagSet { return flagSet },
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("verify takes no positional arguments")
			}
			logger := cli.NewLogger().With("phase", "verify")

			set, err := resolveAnswers(flagSet, *answersPath, logger)
			if err != nil {
				return err
			}
			rc, err := buildContext(set, false)
			if err != nil {
				return err
			}
			return runVerify(context.Background(), rc, hostsvc.NewSystem(logger), *jsonOutput)
		},
	}
}

func runVerify(ctx context.Context, rc setup.RunContext, system *hostsvc.System, jsonOutput bool) error {
	system.UnitDir = rc.Paths.UnitDir
	system.AgentDir = rc.Paths.AgentDir

	results := verifyResults(ctx, rc, system)
	if jsonOutput {
		return doctor.PrintJSON(os.Stdout, results)
	}
	return doctor.PrintChecklist(os.Stdout, results)
}
