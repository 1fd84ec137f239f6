// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ieee-docgen/pkg/types"
)

const exportLimit = 100000

// ExportYAML writes the downloads matching opts to w as a YAML list.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, opts QueryOptions) error {
	opts.Limit = exportLimit
	rows, err := s.List(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes the downloads matching opts to w as an indented JSON array.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, opts QueryOptions) error {
	opts.Limit = exportLimit
	rows, err := s.List(ctx, opts)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	if rows == nil {
		rows = []types.Download{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}
