// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package answers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Warning describes a skipped answers-document line. Parse problems
// are recoverable by design: the line is dropped with a warning and
// resolution continues.
type Warning struct {
	// Line is the 1-based line number in the document.
	Line int
	// Text explains why the line was skipped.
	Text string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Text)
}

// ParseDocument reads a newline-delimited KEY=VALUE answers document.
// Blank lines and #-comments are ignored. Values may be single- or
// double-quoted; quotes are stripped. Keys may carry the
// FIOCHAT_SETUP_ prefix or not. Malformed lines and unknown keys are
// skipped with a warning, never fatally.
func ParseDocument(r io.Reader) (map[string]string, []Warning) {
	values := make(map[string]string)
	var warnings []Warning

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rawKey, rawValue, found := strings.Cut(line, "=")
		if !found {
			warnings = append(warnings, Warning{lineNumber, fmt.Sprintf("expected KEY=VALUE, got %q", line)})
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(rawKey))
		key = strings.TrimPrefix(key, EnvPrefix)
		if key == "" {
			warnings = append(warnings, Warning{lineNumber, "empty key"})
			continue
		}
		if _, known := FieldByKey(key); !known {
			warnings = append(warnings, Warning{lineNumber, fmt.Sprintf("unknown key %q", key)})
			continue
		}

		if _, duplicate := values[key]; duplicate {
			warnings = append(warnings, Warning{lineNumber, fmt.Sprintf("duplicate key %q, later value wins", key)})
		}
		values[key] = unquote(strings.TrimSpace(rawValue))
	}
	if err := scanner.Err(); err != nil {
		warnings = append(warnings, Warning{lineNumber, fmt.Sprintf("read error: %v", err)})
	}

	return values, warnings
}

// LoadDocument parses the answers document at path. A missing path is
// not an error when the caller passed none; callers that require the
// document check for existence themselves.
func LoadDocument(path string) (map[string]string, []Warning, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	values, warnings := ParseDocument(file)
	return values, warnings, nil
}

// unquote strips one layer of matching single or double quotes.
func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if first == last && (first == '"' || first == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
