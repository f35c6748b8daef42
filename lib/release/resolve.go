// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blang/semver/v4"
)

// ErrResolution marks a failure to turn the requested tag into a
// concrete published release: the API was unreachable, answered with
// an error, or the repository has nothing released.
var ErrResolution = errors.New("release resolution failed")

// githubRelease is the subset of the GitHub releases API response the
// resolver needs.
type githubRelease struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// Resolver turns a symbolic tag into a concrete release tag via the
// GitHub releases API.
type Resolver struct {
	// BaseURL is the API root, overridable for tests. Defaults to
	// https://api.github.com.
	BaseURL string
	// Client is the HTTP client. Defaults to a client with a 30s
	// timeout.
	Client *http.Client
}

// NewResolver creates a Resolver against the public GitHub API.
func NewResolver() *Resolver {
	return &Resolver{
		BaseURL: "https://api.github.com",
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ResolveTag resolves "latest" to the highest released version of repo
// ("owner/name"), skipping drafts and prereleases. Any other tag is
// returned unchanged — existence is checked later by the download
// itself. Resolution failure (network down, no releases) is returned
// to the caller; it never silently falls back to a guessed tag.
func (r *Resolver) ResolveTag(ctx context.Context, repo, tag string) (string, error) {
	if tag != "" && tag != "latest" {
		return tag, nil
	}

	releases, err := r.listReleases(ctx, repo)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResolution, err)
	}

	var (
		bestTag     string
		bestVersion semver.Version
	)
	for _, release := range releases {
		if release.Draft || release.Prerelease {
			continue
		}
		version, err := semver.ParseTolerant(release.TagName)
		if err != nil {
			continue
		}
		if bestTag == "" || version.GT(bestVersion) {
			bestTag = release.TagName
			bestVersion = version
		}
	}
	if bestTag == "" {
		return "", fmt.Errorf("%w: repository %s has no published releases", ErrResolution, repo)
	}
	return bestTag, nil
}

func (r *Resolver) listReleases(ctx context.Context, repo string) ([]githubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/releases?per_page=100", strings.TrimRight(r.BaseURL, "/"), repo)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build releases request: %w", err)
	}
	request.Header.Set("Accept", "application/vnd.github+json")

	response, err := r.Client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("list releases for %s: %w", repo, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return nil, fmt.Errorf("list releases for %s: %s: %s", repo, response.Status, strings.TrimSpace(string(body)))
	}

	var releases []githubRelease
	if err := json.NewDecoder(response.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decode releases for %s: %w", repo, err)
	}
	return releases, nil
}

// DownloadURL returns the browser download URL for a release asset.
func DownloadURL(repo, tag, asset string) string {
	return fmt.Sprintf("https://github.com/%s/releases/download/%s/%s", repo, tag, asset)
}
