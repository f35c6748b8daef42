// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ErrQuit is returned by prompt methods when the operator enters the
// reserved "q" response. Journeys honor it only at pre-destructive
// checkpoints: once a destructive step begins it runs to completion.
var ErrQuit = errors.New("quit requested")

// Choice is one selectable option in a menu prompt.
type Choice struct {
	// Key is the stable value returned when this choice is selected.
	Key string
	// Label is the human-readable description shown in the menu.
	Label string
}

// Prompter asks the operator for answers on a terminal. All prompts
// write to stderr so stdout stays clean for machine output. When color
// is unavailable (dumb terminal, NO_COLOR) the styles degrade to plain
// text via termenv's profile detection.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	labelStyle  lipgloss.Style
	optionStyle lipgloss.Style
	hintStyle   lipgloss.Style
	errorStyle  lipgloss.Style

	// secretReader captures hidden input. Overridable in tests.
	secretReader func() (string, error)
}

// NewPrompter creates a Prompter reading from stdin and writing to
// stderr.
func NewPrompter() *Prompter {
	prompter := NewPrompterIO(os.Stdin, os.Stderr)
	prompter.secretReader = func() (string, error) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return prompter
}

// NewPrompterIO creates a Prompter over explicit streams. Used by tests
// to script an interactive session. Secret input falls back to a plain
// line read when no hidden reader is installed.
func NewPrompterIO(in io.Reader, out io.Writer) *Prompter {
	styled := termenv.NewOutput(os.Stderr).Profile != termenv.Ascii

	prompter := &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
	if styled {
		prompter.labelStyle = lipgloss.NewStyle().Bold(true)
		prompter.optionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
		prompter.hintStyle = lipgloss.NewStyle().Faint(true)
		prompter.errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	}
	return prompter
}

// Input asks for a free-form value. An empty response returns the
// default. "q" returns ErrQuit.
func (p *Prompter) Input(label, defaultValue string) (string, error) {
	for {
		if defaultValue != "" {
			fmt.Fprintf(p.out, "%s %s ", p.labelStyle.Render(label), p.hintStyle.Render("["+defaultValue+"]"))
		} else {
			fmt.Fprintf(p.out, "%s ", p.labelStyle.Render(label))
		}

		line, err := p.readLine()
		if err != nil {
			return "", err
		}
		if line == "q" {
			return "", ErrQuit
		}
		if line == "" {
			return defaultValue, nil
		}
		return line, nil
	}
}

// Secret asks for a value with echo disabled. There is no default: a
// secret the operator declines to enter stays unresolved.
func (p *Prompter) Secret(label string) (string, error) {
	fmt.Fprintf(p.out, "%s %s ", p.labelStyle.Render(label), p.hintStyle.Render("(hidden)"))

	if p.secretReader != nil {
		value, err := p.secretReader()
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(value), nil
	}
	return p.readLine()
}

// Confirm asks a yes/no question. "q" returns ErrQuit.
func (p *Prompter) Confirm(label string, defaultYes bool) (bool, error) {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	for {
		fmt.Fprintf(p.out, "%s %s ", p.labelStyle.Render(label), p.hintStyle.Render(hint))

		line, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "q":
			return false, ErrQuit
		}
		fmt.Fprintln(p.out, p.errorStyle.Render("  answer y, n, or q to quit"))
	}
}

// Select shows a numbered menu and returns the key of the chosen
// option. An empty response selects the first option. "q" returns
// ErrQuit — this is the cancellation checkpoint for every journey.
func (p *Prompter) Select(label string, choices []Choice) (string, error) {
	for {
		fmt.Fprintln(p.out, p.labelStyle.Render(label))
		for i, choice := range choices {
			fmt.Fprintf(p.out, "  %s %s\n", p.optionStyle.Render(fmt.Sprintf("%d)", i+1)), choice.Label)
		}
		fmt.Fprintf(p.out, "%s ", p.hintStyle.Render(fmt.Sprintf("choice [1-%d, q to quit]:", len(choices))))

		line, err := p.readLine()
		if err != nil {
			return "", err
		}
		if line == "q" {
			return "", ErrQuit
		}
		if line == "" {
			return choices[0].Key, nil
		}

		var index int
		if _, scanErr := fmt.Sscanf(line, "%d", &index); scanErr == nil && index >= 1 && index <= len(choices) {
			return choices[index-1].Key, nil
		}
		// Also accept the key itself, so scripted sessions read well.
		for _, choice := range choices {
			if line == choice.Key {
				return choice.Key, nil
			}
		}
		fmt.Fprintln(p.out, p.errorStyle.Render("  invalid choice"))
	}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return "", fmt.Errorf("input closed mid-prompt")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
