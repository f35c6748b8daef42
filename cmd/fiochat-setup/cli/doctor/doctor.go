// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

// Package doctor provides the check-result framework shared by the
// verification phase and the preflight checks in apply. Checks only
// observe; nothing in this package mutates the host.
package doctor

// Status is the outcome of a single verification check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusWarn Status = "warn"
	StatusSkip Status = "skip"
)

// Result holds the outcome of a single verification check.
type Result struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Pass creates a passing check result.
func Pass(name, message string) Result {
	return Result{Name: name, Status: StatusPass, Message: message}
}

// Fail creates a failing check result.
func Fail(name, message string) Result {
	return Result{Name: name, Status: StatusFail, Message: message}
}

// Warn creates a warning check result. Warnings never fail the
// verification phase on their own.
func Warn(name, message string) Result {
	return Result{Name: name, Status: StatusWarn, Message: message}
}

// Skip creates a skipped check result, used when a prerequisite check
// already failed (service state checks skip when the unit file is
// absent).
func Skip(name, message string) Result {
	return Result{Name: name, Status: StatusSkip, Message: message}
}

// AnyFailed reports whether at least one result failed. Warn and skip
// do not count: an alias collision or a stopped dev server still exits
// zero, the same way `fio doctor` reports a collision without failing.
// Callers that must treat warnings as fatal should scan the results
// themselves.
func AnyFailed(results []Result) bool {
	for _, result := range results {
		if result.Status == StatusFail {
			return true
		}
	}
	return false
}

// JSONOutput is the machine-readable verification report.
type JSONOutput struct {
	Checks []Result `json:"checks"`
	OK     bool     `json:"ok"`
}
