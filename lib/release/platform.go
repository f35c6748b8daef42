// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

// Package release resolves, downloads, verifies, and installs fiochat
// release artifacts published on GitHub.
package release

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPlatform marks a host with no published artifact.
// There is no best-effort fallback.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Platform is the release artifact platform identifier embedded in
// archive names, e.g. "x86_64-unknown-linux-musl".
type Platform string

// platformTable maps GOOS/GOARCH pairs to published artifact platforms.
// Pairs absent from this table are unsupported and fail resolution
// before any download is attempted.
var platformTable = map[[2]string]Platform{
	{"linux", "amd64"}:  "x86_64-unknown-linux-musl",
	{"linux", "arm64"}:  "aarch64-unknown-linux-musl",
	{"darwin", "amd64"}: "x86_64-apple-darwin",
	{"darwin", "arm64"}: "aarch64-apple-darwin",
}

// DetectPlatform maps an OS/architecture pair to its artifact platform.
func DetectPlatform(goos, goarch string) (Platform, error) {
	platform, ok := platformTable[[2]string{goos, goarch}]
	if !ok {
		return "", fmt.Errorf("%w: no release artifact for %s/%s", ErrUnsupportedPlatform, goos, goarch)
	}
	return platform, nil
}

// SupportedPlatforms returns every GOOS/GOARCH pair with a published
// artifact. Used by diagnostics output.
func SupportedPlatforms() [][2]string {
	pairs := make([][2]string, 0, len(platformTable))
	for pair := range platformTable {
		pairs = append(pairs, pair)
	}
	return pairs
}

// ArchiveName returns the artifact archive filename for a release tag
// on a platform.
func ArchiveName(tag string, platform Platform) string {
	return fmt.Sprintf("fiochat-%s-%s.tar.gz", tag, platform)
}

// ChecksumName returns the sha256 sidecar filename for an archive.
func ChecksumName(tag string, platform Platform) string {
	return ArchiveName(tag, platform) + ".sha256"
}
