// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func scriptedPrompter(input string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return NewPrompterIO(strings.NewReader(input), &out), &out
}

func TestInputDefaultAndOverride(t *testing.T) {
	prompter, _ := scriptedPrompter("\ncustom\n")

	got, err := prompter.Input("Repository:", "fiochat/fiochat")
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	if got != "fiochat/fiochat" {
		t.Errorf("empty response = %q, want default", got)
	}

	got, err = prompter.Input("Repository:", "fiochat/fiochat")
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	if got != "custom" {
		t.Errorf("response = %q, want custom", got)
	}
}

func TestInputQuit(t *testing.T) {
	prompter, _ := scriptedPrompter("q\n")
	if _, err := prompter.Input("Tag:", "latest"); !errors.Is(err, ErrQuit) {
		t.Fatalf("err = %v, want ErrQuit", err)
	}
}

func TestConfirm(t *testing.T) {
	prompter, out := scriptedPrompter("\nn\nmaybe\ny\nq\n")

	if got, _ := prompter.Confirm("Start now?", true); !got {
		t.Error("empty response with defaultYes = false")
	}
	if got, _ := prompter.Confirm("Start now?", true); got {
		t.Error("n = true")
	}
	// "maybe" is rejected and re-prompted; "y" then lands.
	got, err := prompter.Confirm("Start now?", false)
	if err != nil || !got {
		t.Errorf("got %v, %v after invalid answer", got, err)
	}
	if !strings.Contains(out.String(), "answer y, n, or q") {
		t.Error("no reprompt hint for invalid answer")
	}
	if _, err := prompter.Confirm("Start now?", false); !errors.Is(err, ErrQuit) {
		t.Errorf("q: err = %v, want ErrQuit", err)
	}
}

func TestSelect(t *testing.T) {
	choices := []Choice{
		{Key: "production", Label: "system install"},
		{Key: "development", Label: "config only"},
	}

	prompter, _ := scriptedPrompter("2\n")
	got, err := prompter.Select("Mode", choices)
	if err != nil || got != "development" {
		t.Errorf("Select = %q, %v", got, err)
	}

	// Empty picks the first; the key literal is also accepted.
	prompter, _ = scriptedPrompter("\n")
	if got, _ := prompter.Select("Mode", choices); got != "production" {
		t.Errorf("empty Select = %q, want production", got)
	}
	prompter, _ = scriptedPrompter("development\n")
	if got, _ := prompter.Select("Mode", choices); got != "development" {
		t.Errorf("literal Select = %q, want development", got)
	}

	prompter, out := scriptedPrompter("7\n1\n")
	if got, _ := prompter.Select("Mode", choices); got != "production" {
		t.Errorf("Select after invalid = %q, want production", got)
	}
	if !strings.Contains(out.String(), "invalid choice") {
		t.Error("no reprompt for out-of-range choice")
	}

	prompter, _ = scriptedPrompter("q\n")
	if _, err := prompter.Select("Mode", choices); !errors.Is(err, ErrQuit) {
		t.Errorf("q: err = %v, want ErrQuit", err)
	}
}

func TestSecretFallsBackToLineRead(t *testing.T) {
	prompter, _ := scriptedPrompter("sk-test\n")
	got, err := prompter.Secret("API key:")
	if err != nil {
		t.Fatalf("Secret: %v", err)
	}
	if got != "sk-test" {
		t.Errorf("Secret = %q", got)
	}
}
