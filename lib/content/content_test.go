// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package content

import (
	"strings"
	"testing"
)

var testParams = Params{
	InstallRoot: "/opt/fiochat",
	ConfigDir:   "/etc/fiochat",
	StateDir:    "/var/lib/fiochat",
	Port:        8000,
}

func TestServerUnit(t *testing.T) {
	unit := ServerUnit(testParams)
	for _, want := range []string{
		"ExecStart=/opt/fiochat/fiochat --serve 127.0.0.1:8000",
		"Environment=FIOCHAT_CONFIG_DIR=/etc/fiochat",
		"WantedBy=multi-user.target",
	} {
		if !strings.Contains(unit, want) {
			t.Errorf("server unit missing %q:\n%s", want, unit)
		}
	}
	// The dedicated identity is baked in; non-default accounts are
	// layered via a drop-in, never by editing the unit.
	if !strings.Contains(unit, "User=fiochat") {
		t.Errorf("server unit missing dedicated identity:\n%s", unit)
	}
}

func TestBridgeUnitTargetsLocalAPI(t *testing.T) {
	unit := BridgeUnit(testParams)
	if !strings.Contains(unit, "--api-base http://127.0.0.1:8000/v1") {
		t.Errorf("bridge unit not pointed at local API:\n%s", unit)
	}
	if !strings.Contains(unit, "After=network-online.target fiochat.service") {
		t.Errorf("bridge unit missing ordering on the backend:\n%s", unit)
	}
}

func TestAgentsCarryLabels(t *testing.T) {
	if !strings.Contains(ServerAgent(testParams), "<string>com.fiochat.server</string>") {
		t.Error("server agent missing label")
	}
	if !strings.Contains(BridgeAgent(testParams), "<string>com.fiochat.bridge</string>") {
		t.Error("bridge agent missing label")
	}
}

func TestBaseConfigHasNoManagedSections(t *testing.T) {
	config := BaseConfig(testParams)
	if strings.Contains(config, "clients:") || strings.Contains(config, "telegram:") {
		t.Errorf("base config bakes in managed sections:\n%s", config)
	}
	if !strings.Contains(config, "serve_addr: 127.0.0.1:8000") {
		t.Errorf("base config missing serve_addr:\n%s", config)
	}
}

func TestRenderingIsDeterministic(t *testing.T) {
	if ServerUnit(testParams) != ServerUnit(testParams) {
		t.Error("rendering not deterministic")
	}
}
