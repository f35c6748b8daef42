// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ErrorCategory classifies setup errors so automated callers can make
// programmatic decisions (fix input, supply an explicit tag, rerun on a
// supported host) without parsing error message text. Each category maps
// to a distinct process exit code.
type ErrorCategory string

const (
	// CategoryValidation indicates the caller provided invalid or
	// incomplete input: a missing required answer, an unknown mode, a
	// secret absent in non-interactive mode. The caller should fix the
	// answers document or flags and rerun.
	CategoryValidation ErrorCategory = "validation"

	// CategoryResolution indicates a version tag could not be resolved
	// to a concrete release. The caller should supply an explicit tag.
	CategoryResolution ErrorCategory = "resolution"

	// CategoryUnsupportedPlatform indicates no published artifact exists
	// for this host's OS/architecture pair. There is no fallback.
	CategoryUnsupportedPlatform ErrorCategory = "unsupported_platform"

	// CategoryDownload indicates a network fetch failed. Re-invocation
	// is the recovery path; every journey is safe to rerun.
	CategoryDownload ErrorCategory = "download"

	// CategoryChecksumMismatch indicates a downloaded archive did not
	// match its published digest. The install root was not touched.
	CategoryChecksumMismatch ErrorCategory = "checksum_mismatch"

	// CategoryFilesystem indicates a permission or missing-path failure
	// while mutating host state.
	CategoryFilesystem ErrorCategory = "filesystem"

	// CategoryService indicates a service-manager operation (unit
	// install, daemon-reload, enable, start) failed.
	CategoryService ErrorCategory = "service"

	// CategoryInternal indicates an unexpected error: bugs, I/O failures,
	// parse errors on data the system produced.
	CategoryInternal ErrorCategory = "internal"
)

// Error is a categorized error returned by setup commands. The main
// function inspects the category to pick the process exit code, so
// automated callers can distinguish validation failures from checksum
// mismatches without scraping stderr.
//
// Error wraps an inner error, preserving the full chain for errors.Is
// and errors.As. Use the category constructors (Validationf, Downloadf,
// etc.) rather than constructing Error directly.
type Error struct {
	// Category classifies the error for exit-code mapping.
	Category ErrorCategory

	// Err is the underlying error with the human-readable message.
	Err error
}

// Error returns the underlying error message. The category is not part
// of the string — it travels via the exit code.
func (e *Error) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error, allowing errors.Is and errors.As
// to walk the full chain through the Error wrapper.
func (e *Error) Unwrap() error { return e.Err }

// ExitCode maps the category to the documented exit-code table:
// 2 validation, 3 unsupported platform, 4 checksum mismatch, 1 for
// every other fatal category.
func (e *Error) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryUnsupportedPlatform:
		return 3
	case CategoryChecksumMismatch:
		return 4
	default:
		return 1
	}
}

// Validationf creates a validation error: the caller provided bad input.
func Validationf(format string, args ...any) *Error {
	return &Error{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// Resolutionf creates a resolution error: no concrete version tag.
func Resolutionf(format string, args ...any) *Error {
	return &Error{Category: CategoryResolution, Err: fmt.Errorf(format, args...)}
}

// UnsupportedPlatformf creates an unsupported-platform error.
func UnsupportedPlatformf(format string, args ...any) *Error {
	return &Error{Category: CategoryUnsupportedPlatform, Err: fmt.Errorf(format, args...)}
}

// Downloadf creates a download error: a network fetch failed.
func Downloadf(format string, args ...any) *Error {
	return &Error{Category: CategoryDownload, Err: fmt.Errorf(format, args...)}
}

// ChecksumMismatchf creates a checksum-mismatch error.
func ChecksumMismatchf(format string, args ...any) *Error {
	return &Error{Category: CategoryChecksumMismatch, Err: fmt.Errorf(format, args...)}
}

// Filesystemf creates a filesystem error: permission or missing path.
func Filesystemf(format string, args ...any) *Error {
	return &Error{Category: CategoryFilesystem, Err: fmt.Errorf(format, args...)}
}

// Servicef creates a service-integration error.
func Servicef(format string, args ...any) *Error {
	return &Error{Category: CategoryService, Err: fmt.Errorf(format, args...)}
}

// Internalf creates an internal error: an unexpected failure or bug.
func Internalf(format string, args ...any) *Error {
	return &Error{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
