// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

// Package content provides the canonical service definitions and the
// base configuration template, embedded at compile time. Apply renders
// these and compares installed files against the rendered form, so an
// unchanged host yields no writes.
package content

import (
	"embed"
	"strings"
	"text/template"
)

//go:embed systemd/*.tmpl launchd/*.tmpl config/*.tmpl
var files embed.FS

// Params are the values substituted into every rendered asset.
type Params struct {
	// InstallRoot is the directory holding the fiochat executable.
	InstallRoot string
	// ConfigDir is the directory holding config.yaml.
	ConfigDir string
	// StateDir is the writable runtime directory.
	StateDir string
	// Port is the local API backend port.
	Port int
}

func render(name string, params Params) string {
	data, err := files.ReadFile(name)
	if err != nil {
		// Embedded at compile time — a read failure here is a build bug.
		panic("embedded " + name + " missing: " + err.Error())
	}
	parsed, err := template.New(name).Parse(string(data))
	if err != nil {
		panic("embedded " + name + " malformed: " + err.Error())
	}
	var out strings.Builder
	if err := parsed.Execute(&out, params); err != nil {
		panic("embedded " + name + " failed to render: " + err.Error())
	}
	return out.String()
}

// ServerUnit returns the rendered fiochat.service systemd unit.
func ServerUnit(params Params) string {
	return render("systemd/fiochat.service.tmpl", params)
}

// BridgeUnit returns the rendered fiochat-bridge.service systemd unit.
func BridgeUnit(params Params) string {
	return render("systemd/fiochat-bridge.service.tmpl", params)
}

// ServerAgent returns the rendered com.fiochat.server launchd plist.
func ServerAgent(params Params) string {
	return render("launchd/com.fiochat.server.plist.tmpl", params)
}

// BridgeAgent returns the rendered com.fiochat.bridge launchd plist.
func BridgeAgent(params Params) string {
	return render("launchd/com.fiochat.bridge.plist.tmpl", params)
}

// BaseConfig returns the rendered base configuration document. The
// clients and telegram sections are written separately by the config
// store, never baked into the template.
func BaseConfig(params Params) string {
	return render("config/config.yaml.tmpl", params)
}
