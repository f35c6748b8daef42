// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorExitCodes(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validationf("missing key"), 2},
		{UnsupportedPlatformf("plan9/386"), 3},
		{ChecksumMismatchf("digest differs"), 4},
		{Resolutionf("no releases"), 1},
		{Downloadf("connection refused"), 1},
		{Filesystemf("permission denied"), 1},
		{Servicef("daemon-reload failed"), 1},
		{Internalf("bug"), 1},
	}
	for _, test := range tests {
		if got := test.err.ExitCode(); got != test.want {
			t.Errorf("%s: ExitCode() = %d, want %d", test.err.Category, got, test.want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	sentinel := errors.New("root cause")
	wrapped := &Error{Category: CategoryDownload, Err: fmt.Errorf("fetch: %w", sentinel)}

	if !errors.Is(wrapped, sentinel) {
		t.Error("errors.Is does not reach the root cause through Error")
	}

	var categorized *Error
	if !errors.As(fmt.Errorf("outer: %w", wrapped), &categorized) {
		t.Error("errors.As does not find Error in a wrapped chain")
	}
}

func TestExitErrorCode(t *testing.T) {
	err := &ExitError{Code: 2}
	if err.ExitCode() != 2 {
		t.Errorf("ExitCode() = %d, want 2", err.ExitCode())
	}
}
