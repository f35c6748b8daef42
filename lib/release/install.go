// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// ErrChecksumMismatch marks a downloaded archive whose sha256 does not
// match its published sidecar. The install target is guaranteed
// untouched when this is returned.
var ErrChecksumMismatch = errors.New("archive checksum mismatch")

// ErrDownload marks a failed network fetch of a release asset. Every
// journey is safe to rerun, so re-invocation is the recovery path.
var ErrDownload = errors.New("release download failed")

// Installer downloads one release artifact, verifies it, and installs
// the executable under the install root.
type Installer struct {
	Repo     string
	Platform Platform

	// InstallRoot is the directory replaced wholesale on install,
	// normally /opt/fiochat.
	InstallRoot string
	// BinaryName is the executable name inside the archive and the
	// install root.
	BinaryName string

	// AssetBaseURL overrides the artifact host in tests. Empty means
	// the GitHub release download host.
	AssetBaseURL string
	Client       *http.Client
}

// NewInstaller creates an Installer for repo artifacts on platform.
func NewInstaller(repo string, platform Platform, installRoot string) *Installer {
	return &Installer{
		Repo:        repo,
		Platform:    platform,
		InstallRoot: installRoot,
		BinaryName:  "fiochat",
		Client:      &http.Client{Timeout: 10 * time.Minute},
	}
}

// Fetch downloads the release archive and its sha256 sidecar into
// workspace and verifies the archive against the sidecar. It returns
// the verified archive path. Nothing outside workspace is written.
func (inst *Installer) Fetch(ctx context.Context, tag, workspace string) (string, error) {
	archivePath := filepath.Join(workspace, ArchiveName(tag, inst.Platform))
	sidecarPath := filepath.Join(workspace, ChecksumName(tag, inst.Platform))

	if err := inst.download(ctx, ArchiveName(tag, inst.Platform), tag, archivePath); err != nil {
		return "", err
	}
	if err := inst.download(ctx, ChecksumName(tag, inst.Platform), tag, sidecarPath); err != nil {
		return "", err
	}
	if err := VerifyChecksum(archivePath, sidecarPath); err != nil {
		return "", err
	}
	return archivePath, nil
}

func (inst *Installer) download(ctx context.Context, asset, tag, destination string) error {
	url := DownloadURL(inst.Repo, tag, asset)
	if inst.AssetBaseURL != "" {
		url = strings.TrimRight(inst.AssetBaseURL, "/") + "/" + asset
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	response, err := inst.Client.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDownload, asset, err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: %s", ErrDownload, url, response.Status)
	}

	file, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", destination, err)
	}
	if _, err := io.Copy(file, response.Body); err != nil {
		file.Close()
		os.Remove(destination)
		return fmt.Errorf("write %s: %w", destination, err)
	}
	return file.Close()
}

// VerifyChecksum compares the archive's sha256 against the sidecar.
// The sidecar holds "<64 hex digits>  <filename>" (coreutils sha256sum
// format); only the digest field is significant.
func VerifyChecksum(archivePath, sidecarPath string) error {
	sidecar, err := os.ReadFile(sidecarPath)
	if err != nil {
		return fmt.Errorf("read checksum sidecar: %w", err)
	}
	fields := strings.Fields(string(sidecar))
	if len(fields) == 0 || len(fields[0]) != sha256.Size*2 {
		return fmt.Errorf("malformed checksum sidecar %s", sidecarPath)
	}
	expected := strings.ToLower(fields[0])
	if _, err := hex.DecodeString(expected); err != nil {
		return fmt.Errorf("malformed checksum sidecar %s", sidecarPath)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, archive); err != nil {
		return fmt.Errorf("hash archive: %w", err)
	}
	actual := hex.EncodeToString(hash.Sum(nil))
	if actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, actual)
	}
	return nil
}

// Extract unpacks the verified tar.gz archive into destination. Entries
// that would escape destination are rejected.
func Extract(archivePath, destination string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	decompressor, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer decompressor.Close()

	reader := tar.NewReader(decompressor)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		target := filepath.Join(destination, header.Name)
		relative, err := filepath.Rel(destination, target)
		if err != nil || strings.HasPrefix(relative, "..") {
			return fmt.Errorf("archive entry %q escapes extraction root", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("extract %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("extract %s: %w", header.Name, err)
			}
			mode := os.FileMode(header.Mode).Perm()
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
			if err != nil {
				return fmt.Errorf("extract %s: %w", header.Name, err)
			}
			if _, err := io.Copy(out, reader); err != nil {
				out.Close()
				return fmt.Errorf("extract %s: %w", header.Name, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("extract %s: %w", header.Name, err)
			}
		default:
			// Symlinks and device nodes have no business in a release
			// archive.
			return fmt.Errorf("archive entry %q has unsupported type %d", header.Name, header.Typeflag)
		}
	}
}

// LocateExecutable finds the fiochat executable inside an extracted
// archive. Release archives place it either at the root or under a
// platform subdirectory.
func (inst *Installer) LocateExecutable(extracted string) (string, error) {
	candidates := []string{
		filepath.Join(extracted, inst.BinaryName),
		filepath.Join(extracted, string(inst.Platform), inst.BinaryName),
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("archive does not contain %s at any known location", inst.BinaryName)
}

// InstallExecutable replaces the install root wholesale with a fresh
// directory holding the executable. The previous root, whatever it
// held, is removed only after the new content is staged and verified
// present.
func (inst *Installer) InstallExecutable(executable string) (string, error) {
	staged := inst.InstallRoot + ".staged"
	if err := os.RemoveAll(staged); err != nil {
		return "", fmt.Errorf("clear staging dir: %w", err)
	}
	if err := os.MkdirAll(staged, 0755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}

	installed := filepath.Join(staged, inst.BinaryName)
	if err := copyFile(executable, installed, 0755); err != nil {
		os.RemoveAll(staged)
		return "", err
	}

	if err := os.RemoveAll(inst.InstallRoot); err != nil {
		os.RemoveAll(staged)
		return "", fmt.Errorf("remove previous install root: %w", err)
	}
	if err := os.Rename(staged, inst.InstallRoot); err != nil {
		return "", fmt.Errorf("activate install root: %w", err)
	}
	return filepath.Join(inst.InstallRoot, inst.BinaryName), nil
}

// EnsureAlias points aliasPath at target via symlink. An existing alias
// is replaced only when it is already a symlink owned by us (pointing
// into the install root); anything else — say a preinstalled unrelated
// "fio" command — is left alone and reported as a warning.
func (inst *Installer) EnsureAlias(aliasPath, target string) (warning string, err error) {
	existing, lerr := os.Lstat(aliasPath)
	if lerr == nil {
		if existing.Mode()&os.ModeSymlink == 0 {
			return fmt.Sprintf("%s exists and is not a symlink; leaving it alone (the fiochat alias is unavailable)", aliasPath), nil
		}
		destination, rerr := os.Readlink(aliasPath)
		if rerr == nil && !strings.HasPrefix(destination, inst.InstallRoot+string(os.PathSeparator)) && destination != target {
			return fmt.Sprintf("%s points at %s, not a fiochat install; leaving it alone", aliasPath, destination), nil
		}
	} else if !os.IsNotExist(lerr) {
		return "", fmt.Errorf("inspect alias %s: %w", aliasPath, lerr)
	}

	if err := os.MkdirAll(filepath.Dir(aliasPath), 0755); err != nil {
		return "", fmt.Errorf("create alias directory: %w", err)
	}
	return "", atomicSymlink(target, aliasPath)
}

// atomicSymlink creates or replaces a symlink via temp-name-then-rename
// so readers never observe a missing link.
func atomicSymlink(target, linkPath string) error {
	temp := fmt.Sprintf("%s.tmp.%d", linkPath, os.Getpid())
	os.Remove(temp)
	if err := os.Symlink(target, temp); err != nil {
		return fmt.Errorf("create symlink %s: %w", linkPath, err)
	}
	if err := os.Rename(temp, linkPath); err != nil {
		os.Remove(temp)
		return fmt.Errorf("activate symlink %s: %w", linkPath, err)
	}
	return nil
}

func copyFile(source, destination string, mode os.FileMode) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open %s: %w", source, err)
	}
	defer in.Close()

	out, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", destination, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", destination, err)
	}
	return out.Close()
}
