// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

// Package configdoc manages the fiochat configuration document.
//
// The store understands only the boundary of a named top-level
// section: a line matching "name:" at column zero, followed by every
// line that is blank or indented, until a line returns to zero
// indentation. Mutating one section never alters bytes outside that
// section's contiguous block; unknown top-level content is preserved
// verbatim. Every mutation backs up the prior file to a timestamped
// sibling and rewrites atomically (write-then-rename).
package configdoc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store manages one configuration document on disk.
type Store struct {
	path string

	// now is the clock used for backup naming. Overridable in tests.
	now func() time.Time
}

// NewStore creates a store for the document at path. The document is
// loaded lazily; it need not exist yet.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the document path the store manages.
func (s *Store) Path() string { return s.path }

// Exists reports whether the document is present on disk.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Read returns the full document content. A missing document reads as
// empty, which lets WriteSection create it from nothing.
func (s *Store) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", s.path, err)
	}
	return string(data), nil
}

// ExtractSection returns the named top-level section verbatim,
// including its header line, or "" when the section is absent.
func (s *Store) ExtractSection(name string) (string, error) {
	content, err := s.Read()
	if err != nil {
		return "", err
	}
	lines := splitLines(content)
	start, end, found := sectionBounds(lines, name)
	if !found {
		return "", nil
	}
	return strings.Join(lines[start:end], ""), nil
}

// RemoveSection rewrites the document with the named section excised,
// preserving every other line's order and bytes exactly. Removing an
// absent section is a no-op (no backup, no rewrite).
func (s *Store) RemoveSection(name string) error {
	content, err := s.Read()
	if err != nil {
		return err
	}
	lines := splitLines(content)
	start, end, found := sectionBounds(lines, name)
	if !found {
		return nil
	}

	if _, err := s.Backup(); err != nil {
		return err
	}
	rewritten := strings.Join(lines[:start], "") + strings.Join(lines[end:], "")
	return s.writeAtomic(rewritten)
}

// WriteSection replaces the named section with block (a complete
// section including its header line), or appends it when the section
// is absent. The section is always regenerated wholesale — callers
// build block from the full intended field set, never as a patch.
// A pre-existing document is backed up first.
func (s *Store) WriteSection(name, block string) error {
	content, err := s.Read()
	if err != nil {
		return err
	}

	if s.Exists() {
		if _, err := s.Backup(); err != nil {
			return err
		}
	}

	if !strings.HasSuffix(block, "\n") {
		block += "\n"
	}

	lines := splitLines(content)
	start, end, found := sectionBounds(lines, name)

	var rewritten string
	if found {
		rewritten = strings.Join(lines[:start], "") + block + strings.Join(lines[end:], "")
	} else {
		rewritten = content
		if rewritten != "" && !strings.HasSuffix(rewritten, "\n") {
			rewritten += "\n"
		}
		rewritten += block
	}
	return s.writeAtomic(rewritten)
}

// WriteFull replaces the whole document. This is the explicit opt-out
// from section preservation (template installs). A pre-existing
// document is backed up first.
func (s *Store) WriteFull(content string) error {
	if s.Exists() {
		if _, err := s.Backup(); err != nil {
			return err
		}
	}
	return s.writeAtomic(content)
}

// Backup copies the current document to a timestamped sibling
// (<path>.bak-20060102-150405, with a -N suffix when that name is
// taken). It never overwrites a prior backup. Returns the backup path,
// or "" when the document does not exist.
func (s *Store) Backup() (string, error) {
	source, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("open %s for backup: %w", s.path, err)
	}
	defer source.Close()

	base := fmt.Sprintf("%s.bak-%s", s.path, s.now().Format("20060102-150405"))
	backupPath := base
	for n := 2; ; n++ {
		if _, statErr := os.Stat(backupPath); os.IsNotExist(statErr) {
			break
		}
		backupPath = fmt.Sprintf("%s-%d", base, n)
	}

	destination, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("create backup %s: %w", backupPath, err)
	}
	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		os.Remove(backupPath)
		return "", fmt.Errorf("write backup %s: %w", backupPath, err)
	}
	if err := destination.Close(); err != nil {
		return "", fmt.Errorf("close backup %s: %w", backupPath, err)
	}
	return backupPath, nil
}

// writeAtomic writes content to a temp file in the document's
// directory and renames it into place. The document may carry secrets,
// so it is always written 0600.
func (s *Store) writeAtomic(content string) error {
	directory := filepath.Dir(s.path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", directory, err)
	}

	temp, err := os.CreateTemp(directory, ".config-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", directory, err)
	}
	tempPath := temp.Name()

	if _, err := temp.WriteString(content); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("write %s: %w", tempPath, err)
	}
	if err := temp.Chmod(0600); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("chmod %s: %w", tempPath, err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("close %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename %s -> %s: %w", tempPath, s.path, err)
	}
	return nil
}

// splitLines splits content keeping line terminators, so joining the
// pieces reproduces the input byte-for-byte.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	var lines []string
	for {
		index := strings.IndexByte(content, '\n')
		if index < 0 {
			lines = append(lines, content)
			return lines
		}
		lines = append(lines, content[:index+1])
		content = content[index+1:]
		if content == "" {
			return lines
		}
	}
}

// sectionBounds locates the named top-level section in lines. start is
// the header line index; end is one past the section's last line. The
// section extends through blank lines and indented lines; it ends at
// the next line with content at column zero, comments included, so a
// top-level comment sitting between two sections stays outside both.
func sectionBounds(lines []string, name string) (start, end int, found bool) {
	header := name + ":"
	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == header || strings.HasPrefix(trimmed, header+" ") || strings.HasPrefix(trimmed, header+"\t") {
			start = i
			end = len(lines)
			for j := i + 1; j < len(lines); j++ {
				body := strings.TrimRight(lines[j], "\r\n")
				if body == "" {
					continue
				}
				if body[0] != ' ' && body[0] != '\t' {
					end = j
					break
				}
			}
			// Trailing blank lines between this section and the next
			// belong to the gap, not the section.
			for end > start+1 {
				body := strings.TrimRight(lines[end-1], "\r\n")
				if body == "" {
					end--
					continue
				}
				break
			}
			return start, end, true
		}
	}
	return 0, 0, false
}
