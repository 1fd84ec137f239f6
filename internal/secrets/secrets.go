// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file holds one secret: the filename is the key name and the
// trimmed file contents are the value.
//
// Supported key files: pdf-service-token, pdf-service-url.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// Key file names.
const (
	PDFServiceToken = "pdf-service-token"
	PDFServiceURL   = "pdf-service-url"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
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
			logger.Warn("could not read secret", zap.String("key", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills empty config values from secrets. Values already set in
// cfg win.
func Apply(cfg *types.Config, secrets map[string]string) {
	if cfg.PDFService.Token == "" {
		cfg.PDFService.Token = secrets[PDFServiceToken]
	}
	if cfg.PDFService.URL == "" {
		cfg.PDFService.URL = secrets[PDFServiceURL]
	}
}
