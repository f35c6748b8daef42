// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package phases

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli"
	"github.com/fiochat/fiochat-setup/lib/answers"
	"github.com/fiochat/fiochat-setup/lib/setup"
)

// ValidateCommand checks the resolved answers against the chosen
// mode's requirements and reports the complete violation list.
func ValidateCommand() *cli.Command {
	flagSet := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	registerAnswerFlags(flagSet)
	answersPath := flagSet.String("answers", "", "path to a KEY=VALUE answers document")
	jsonOutput := flagSet.Bool("json", false, "machine-readable output")

	return &cli.Command{
		Name:    "validate",
		Summary: "Check answers for the chosen mode without touching the host",
		Description: `Validate resolves the full answer set (flags > environment >
answers document > defaults) and reports every requirement violation
for the chosen mode, method, and config source. Nothing on the host is
read or written.`,
		Usage: "fiochat-setup validate [flags]",
		Examples: []cli.Example{
			{Description: "Validate a CI answers document", Command: "fiochat-setup validate --answers deploy.env"},
			{Description: "Validate explicit flags", Command: "fiochat-setup validate --mode production --provider openai"},
		},
		Flags: func() *pflag.FlagSet { return flagSet },
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("validate takes no positional arguments")
			}
			logger := cli.NewLogger().With("phase", "validate")

			set, err := resolveAnswers(flagSet, *answersPath, logger)
			if err != nil {
				return err
			}

			violations := contextViolations(set)
			if *jsonOutput {
				return printValidationJSON(violations)
			}
			if len(violations) > 0 {
				return reportViolations(violations)
			}
			fmt.Fprintf(os.Stdout, "answers valid for mode %s\n", set.Get("MODE"))
			return nil
		},
	}
}

// contextViolations collects enum problems and field requirement
// violations into one list.
func contextViolations(set *answers.Set) []string {
	rc, err := setup.NewRunContext(set, setup.DefaultPaths(), false)
	if err != nil {
		return setup.Violations(err)
	}
	return setup.Violations(setup.Validate(rc))
}

func printValidationJSON(violations []string) error {
	report := struct {
		OK         bool     `json:"ok"`
		Violations []string `json:"violations,omitempty"`
	}{OK: len(violations) == 0, Violations: violations}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return cli.Internalf("encode report: %v", err)
	}
	if !report.OK {
		return &cli.ExitError{Code: 2}
	}
	return nil
}
