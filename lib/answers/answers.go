// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

// Package answers resolves the operator's desired target configuration
// from four layered sources with strict precedence: explicit flag >
// environment override > answers-document value > built-in default.
//
// Every answer field is declared once in the schema below; resolution
// is uniform across fields. The resolved Set is immutable for the
// remainder of the run.
package answers

import "sort"

// Source identifies where a resolved value came from.
type Source string

const (
	SourceFlag     Source = "flag"
	SourceEnv      Source = "env"
	SourceDocument Source = "document"
	SourceDefault  Source = "default"
	SourceUnset    Source = "unset"
)

// EnvPrefix is prepended to a field's document key to form its
// environment-variable override name.
const EnvPrefix = "FIOCHAT_SETUP_"

// Field declares one answer: its canonical document key (uppercase),
// the long flag that overrides it, its built-in default, and whether
// it is a secret. Secrets never have defaults — an unresolved required
// secret is a validation failure in non-interactive mode, never a
// silent empty string.
type Field struct {
	Key     string
	Flag    string
	Default string
	Secret  bool
}

// Env returns the field's environment override variable name.
func (f Field) Env() string { return EnvPrefix + f.Key }

// Schema is the complete ordered set of answer fields.
var Schema = []Field{
	{Key: "MODE", Flag: "mode", Default: "production"},
	{Key: "METHOD", Flag: "method", Default: "release"},
	{Key: "CONFIG_SOURCE", Flag: "config-source", Default: "rebuild"},
	{Key: "SERVICE_USER", Flag: "service-user", Default: "fiochat"},
	{Key: "REPO", Flag: "repo", Default: "fiochat/fiochat"},
	{Key: "TAG", Flag: "tag", Default: "latest"},
	{Key: "PROVIDER", Flag: "provider", Default: "openai"},
	{Key: "OPENAI_API_KEY", Flag: "openai-api-key", Secret: true},
	{Key: "AZURE_API_BASE", Flag: "azure-api-base"},
	{Key: "AZURE_API_KEY", Flag: "azure-api-key", Secret: true},
	{Key: "TELEGRAM_BOT_TOKEN", Flag: "telegram-bot-token", Secret: true},
	{Key: "TELEGRAM_ALLOWED_IDS", Flag: "telegram-allowed-ids"},
	{Key: "SERVER_PORT", Flag: "server-port", Default: "8000"},
	{Key: "START_NOW", Flag: "start", Default: "true"},
}

// FieldByKey returns the schema entry for a key, if declared.
func FieldByKey(key string) (Field, bool) {
	for _, field := range Schema {
		if field.Key == key {
			return field, true
		}
	}
	return Field{}, false
}

// Set is the immutable resolved answer set. Values and their sources
// are fixed at construction; there is no mutation API.
type Set struct {
	values  map[string]string
	sources map[string]Source
}

// Resolve builds a Set from the three override layers. document holds
// parsed answers-document values keyed by canonical field key (see
// ParseDocument); lookupEnv is usually os.Getenv; flags holds values
// for flags the caller explicitly set, keyed by field key.
//
// Resolution is order-independent: each field is resolved in isolation
// from its own candidate sources.
func Resolve(document map[string]string, lookupEnv func(string) string, flags map[string]string) *Set {
	set := &Set{
		values:  make(map[string]string, len(Schema)),
		sources: make(map[string]Source, len(Schema)),
	}

	for _, field := range Schema {
		if value, ok := flags[field.Key]; ok && value != "" {
			set.values[field.Key] = value
			set.sources[field.Key] = SourceFlag
			continue
		}
		if lookupEnv != nil {
			if value := lookupEnv(field.Env()); value != "" {
				set.values[field.Key] = value
				set.sources[field.Key] = SourceEnv
				continue
			}
		}
		if value, ok := document[field.Key]; ok && value != "" {
			set.values[field.Key] = value
			set.sources[field.Key] = SourceDocument
			continue
		}
		if field.Default != "" {
			set.values[field.Key] = field.Default
			set.sources[field.Key] = SourceDefault
			continue
		}
		set.sources[field.Key] = SourceUnset
	}

	return set
}

// Get returns the resolved value for a field key, or "" if unresolved.
func (s *Set) Get(key string) string {
	return s.values[key]
}

// Has reports whether the field resolved to a non-empty value.
func (s *Set) Has(key string) bool {
	return s.values[key] != ""
}

// Bool interprets the field as a boolean. Empty and unrecognized
// values return the schema default's interpretation.
func (s *Set) Bool(key string) bool {
	switch s.values[key] {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	}
	field, ok := FieldByKey(key)
	return ok && field.Default == "true"
}

// Source returns where the field's value came from.
func (s *Set) Source(key string) Source {
	if source, ok := s.sources[key]; ok {
		return source
	}
	return SourceUnset
}

// WithValue returns a copy of the Set with one field replaced. The
// receiver is unchanged — interactive prompting builds successive
// immutable sets rather than mutating the original.
func (s *Set) WithValue(key, value string, source Source) *Set {
	next := &Set{
		values:  make(map[string]string, len(s.values)+1),
		sources: make(map[string]Source, len(s.sources)+1),
	}
	for k, v := range s.values {
		next.values[k] = v
	}
	for k, v := range s.sources {
		next.sources[k] = v
	}
	next.values[key] = value
	next.sources[key] = source
	return next
}

// Keys returns the resolved field keys in sorted order. Used by
// diagnostics output; iteration order is deterministic.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
