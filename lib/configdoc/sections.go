// Copyright 2026 The Fiochat Authors
// SPDX-License-Identifier: Apache-2.0

package configdoc

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// The two sections this tool owns inside the configuration document.
// Everything else in the document belongs to the operator.
const (
	SectionClients  = "clients"
	SectionTelegram = "telegram"
)

// ProviderFields is the full intended state of the clients section.
// Exactly one provider entry is generated per write; the section is
// never patched incrementally.
type ProviderFields struct {
	// Provider is "openai" or "azure-openai".
	Provider string
	// APIKey is the provider credential. Empty keys are omitted from
	// the generated section rather than written as empty strings.
	APIKey string
	// APIBase is the endpoint base URL. Required for azure-openai,
	// unused for openai.
	APIBase string
}

// TelegramFields is the full intended state of the telegram section.
type TelegramFields struct {
	BotToken string
	// AllowedUserIDs restricts the bridge to these account IDs. Empty
	// means the section documents no restriction.
	AllowedUserIDs []int64
}

type clientEntry struct {
	Type    string `yaml:"type"`
	Name    string `yaml:"name,omitempty"`
	APIBase string `yaml:"api_base,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
}

type clientsDoc struct {
	Clients []clientEntry `yaml:"clients"`
}

type telegramDoc struct {
	Telegram telegramBody `yaml:"telegram"`
}

type telegramBody struct {
	BotToken       string  `yaml:"bot_token,omitempty"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids,omitempty"`
}

// BuildClientsSection renders the clients section block for the given
// provider fields. The block includes the "clients:" header line and
// ends with a newline, ready for Store.WriteSection.
func BuildClientsSection(fields ProviderFields) (string, error) {
	entry := clientEntry{Type: fields.Provider, Name: fields.Provider}
	switch fields.Provider {
	case "openai":
		entry.APIKey = fields.APIKey
	case "azure-openai":
		entry.APIBase = fields.APIBase
		entry.APIKey = fields.APIKey
	default:
		return "", fmt.Errorf("unknown provider %q", fields.Provider)
	}
	return marshalBlock(clientsDoc{Clients: []clientEntry{entry}})
}

// BuildTelegramSection renders the telegram section block.
func BuildTelegramSection(fields TelegramFields) (string, error) {
	return marshalBlock(telegramDoc{Telegram: telegramBody{
		BotToken:       fields.BotToken,
		AllowedUserIDs: fields.AllowedUserIDs,
	}})
}

// ParseAllowedIDs parses the comma-separated allowed-IDs answer into
// numeric account IDs. Whitespace around entries is tolerated.
func ParseAllowedIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func marshalBlock(doc any) (string, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return "", fmt.Errorf("render section: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("render section: %w", err)
	}
	return buffer.String(), nil
}
