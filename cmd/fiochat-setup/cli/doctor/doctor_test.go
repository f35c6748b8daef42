// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package doctor

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/fiochat/fiochat-setup/cmd/fiochat-setup/cli"
)

func TestAnyFailed(t *testing.T) {
	clean := []Result{
		Pass("binary", "installed"),
		Warn("alias", "shadowed"),
		Skip("service", "unit absent"),
	}
	if AnyFailed(clean) {
		t.Error("AnyFailed = true with no failures")
	}
	if !AnyFailed(append(clean, Fail("config", "missing"))) {
		t.Error("AnyFailed = false with a failure")
	}
}

func TestPrintChecklistPassing(t *testing.T) {
	var out bytes.Buffer
	err := PrintChecklist(&out, []Result{
		Pass("binary", "/opt/fiochat/fiochat"),
		Warn("alias", "foreign fio on PATH"),
	})
	if err != nil {
		t.Fatalf("PrintChecklist: %v", err)
	}
	if !strings.Contains(out.String(), "All checks passed.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestPrintChecklistFailureExitsOne(t *testing.T) {
	var out bytes.Buffer
	err := PrintChecklist(&out, []Result{Fail("config", "not found")})

	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("err = %v, want ExitError{1}", err)
	}
	if !strings.Contains(out.String(), "Some checks failed.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	err := PrintJSON(&out, []Result{Pass("binary", "ok"), Skip("port", "not applicable")})
	if err != nil {
		t.Fatalf("PrintJSON: %v", err)
	}

	var report JSONOutput
	if decodeErr := json.Unmarshal(out.Bytes(), &report); decodeErr != nil {
		t.Fatalf("decode: %v", decodeErr)
	}
	if !report.OK || len(report.Checks) != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestPrintJSONFailureExitsOne(t *testing.T) {
	var out bytes.Buffer
	err := PrintJSON(&out, []Result{Fail("binary", "missing")})

	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("err = %v, want ExitError{1}", err)
	}
}
