// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package doctor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	skipStyle = lipgloss.NewStyle().Faint(true)
)

func statusTag(status Status, styled bool) string {
	tag := fmt.Sprintf("[%-4s]", status)
	if !styled {
		return tag
	}
	switch status {
	case StatusPass:
		return passStyle.Render(tag)
	case StatusFail:
		return failStyle.Render(tag)
	case StatusWarn:
		return warnStyle.Render(tag)
	default:
		return skipStyle.Render(tag)
	}
}

// PrintChecklist prints check results as a human-readable checklist to
// out and returns ExitError{1} when any check failed.
func PrintChecklist(out io.Writer, results []Result) error {
	styled := out == os.Stdout && termenv.NewOutput(os.Stdout).Profile != termenv.Ascii

	for _, result := range results {
		fmt.Fprintf(out, "%s  %-34s  %s\n", statusTag(result.Status, styled), result.Name, result.Message)
	}
	fmt.Fprintln(out)

	if AnyFailed(results) {
		fmt.Fprintln(out, "Some checks failed.")
		return &cli.ExitError{Code: 1}
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}

// PrintJSON prints the machine-readable report to out and returns
// ExitError{1} when any check failed, so scripted callers get the same
// exit contract as humans.
func PrintJSON(out io.Writer, results []Result) error {
	report := JSONOutput{Checks: results, OK: !AnyFailed(results)}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if !report.OK {
		return &cli.ExitError{Code: 1}
	}
	return nil
}
