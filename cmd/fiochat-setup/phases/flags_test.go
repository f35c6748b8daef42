// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package phases

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli"
	"github.com/fiochat/fiochat-setup/lib/hostsvc"
	"github.com/fiochat/fiochat-setup/lib/release"
	"github.com/fiochat/fiochat-setup/lib/setup"
)

func TestCategorize(t *testing.T) {
	commandErr := &hostsvc.CommandError{
		Name: "systemctl",
		Args: []string{"enable", "fiochat.service"},
		Err:  errors.New("exit status 1"),
	}

	tests := []struct {
		name         string
		err          error
		wantCategory cli.ErrorCategory
		wantExit     int
	}{
		{
			name:         "unsupported platform",
			err:          fmt.Errorf("detect: %w", release.ErrUnsupportedPlatform),
			wantCategory: cli.CategoryUnsupportedPlatform,
			wantExit:     3,
		},
		{
			name:         "checksum mismatch",
			err:          fmt.Errorf("fetch: %w", release.ErrChecksumMismatch),
			wantCategory: cli.CategoryChecksumMismatch,
			wantExit:     4,
		},
		{
			name:         "resolution",
			err:          fmt.Errorf("%w: nothing released", release.ErrResolution),
			wantCategory: cli.CategoryResolution,
			wantExit:     1,
		},
		{
			name:         "download",
			err:          fmt.Errorf("%w: connection refused", release.ErrDownload),
			wantCategory: cli.CategoryDownload,
			wantExit:     1,
		},
		{
			name:         "wrong host os",
			err:          fmt.Errorf("%w, this is linux", setup.ErrDarwinOnly),
			wantCategory: cli.CategoryValidation,
			wantExit:     2,
		},
		{
			name:         "host command",
			err:          fmt.Errorf("enable: %w", commandErr),
			wantCategory: cli.CategoryService,
			wantExit:     1,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			categorized := categorize(test.err)

			var setupErr *cli.Error
			if !errors.As(categorized, &setupErr) {
				t.Fatalf("categorize(%v) = %v, want *cli.Error", test.err, categorized)
			}
			if setupErr.Category != test.wantCategory {
				t.Errorf("category = %s, want %s", setupErr.Category, test.wantCategory)
			}
			if got := setupErr.ExitCode(); got != test.wantExit {
				t.Errorf("exit code = %d, want %d", got, test.wantExit)
			}
			// Wrapping must not break the original chain.
			if !errors.Is(categorized, test.err) {
				t.Error("categorized error lost the original chain")
			}
		})
	}
}

func TestCategorizePassesThroughUnknownErrors(t *testing.T) {
	if err := categorize(nil); err != nil {
		t.Errorf("categorize(nil) = %v", err)
	}

	plain := errors.New("something else")
	if got := categorize(plain); got != plain {
		t.Errorf("categorize(plain) = %v, want the error unchanged", got)
	}
}
