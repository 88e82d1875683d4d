// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files. Each
// file is one secret: the file name is the key name and the trimmed contents
// are the value.
//
// The OCR provider key is read from mistral-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ProviderKeyFile is the secret holding the OCR provider API key.
const ProviderKeyFile = "mistral-api-key"

// ProviderKeyEnv lists the environment variables consulted, in order, when
// no key file is present.
var ProviderKeyEnv = []string{"OCR2MD_API_KEY", "MISTRAL_API_KEY"}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// ProviderKey picks the OCR provider key: an explicit value, then the key
// file in secrets, then the environment. It returns "" when none is set.
func ProviderKey(explicit string, secrets map[string]string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if v := secrets[ProviderKeyFile]; v != "" {
		return v
	}
	for _, env := range ProviderKeyEnv {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return ""
}
