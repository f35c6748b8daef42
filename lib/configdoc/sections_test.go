// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package configdoc

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuildClientsSectionAzure(t *testing.T) {
	block, err := BuildClientsSection(ProviderFields{
		Provider: "azure-openai",
		APIBase:  "https://example.openai.azure.com",
		APIKey:   "azure-key",
	})
	if err != nil {
		t.Fatalf("BuildClientsSection: %v", err)
	}
	want := strings.Join([]string{
		"clients:",
		"  - type: azure-openai",
		"    name: azure-openai",
		"    api_base: https://example.openai.azure.com",
		"    api_key: azure-key",
		"",
	}, "\n")
	if block != want {
		t.Errorf("block = %q, want %q", block, want)
	}
}

func TestBuildClientsSectionOmitsEmptySecret(t *testing.T) {
	block, err := BuildClientsSection(ProviderFields{Provider: "openai"})
	if err != nil {
		t.Fatalf("BuildClientsSection: %v", err)
	}
	if strings.Contains(block, "api_key") {
		t.Errorf("empty secret written as a field:\n%s", block)
	}
}

func TestBuildClientsSectionUnknownProvider(t *testing.T) {
	if _, err := BuildClientsSection(ProviderFields{Provider: "anthropic"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestParseAllowedIDs(t *testing.T) {
	tests := []struct {
		raw     string
		want    []int64
		wantErr bool
	}{
		{"", nil, false},
		{"42", []int64{42}, false},
		{"1, 2,3", []int64{1, 2, 3}, false},
		{"1,,2", []int64{1, 2}, false},
		{"-99", []int64{-99}, false},
		{"alice", nil, true},
	}
	for _, test := range tests {
		got, err := ParseAllowedIDs(test.raw)
		if test.wantErr {
			if err == nil {
				t.Errorf("ParseAllowedIDs(%q): expected error", test.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAllowedIDs(%q): %v", test.raw, err)
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("ParseAllowedIDs(%q) = %v, want %v", test.raw, got, test.want)
		}
	}
}
