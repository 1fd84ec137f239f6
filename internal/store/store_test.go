// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store) {
	t.Helper()
	rows := []types.Download{
		{DocumentTitle: "A", FileFormat: "pdf", FileSize: 10, DownloadedAt: base},
		{DocumentTitle: "B", FileFormat: "docx", FileSize: 20, DownloadedAt: base.Add(time.Hour)},
		{DocumentTitle: "C", FileFormat: "pdf", FileSize: 30, DownloadedAt: base.Add(2 * time.Hour), Status: types.DownloadFailed},
	}
	for _, d := range rows {
		_, err := s.Record(context.Background(), d)
		require.NoError(t, err)
	}
}

func titles(ds []types.Download) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.DocumentTitle
	}
	return out
}

// --- schema tests ---

func TestOpenCreatesSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "ledger.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'downloads'`,
	).Scan(&count))
	assert.Equal(t, 1, count)
	assert.NoError(t, s.Ping(context.Background()))
}

// --- record tests ---

func TestRecordAssignsDefaults(t *testing.T) {
	s := testStore(t)
	s.now = func() time.Time { return base.Add(500 * time.Millisecond) }

	d, err := s.Record(context.Background(), types.Download{
		DocumentTitle: "Paper",
		FileFormat:    "pdf",
		FileSize:      1234,
		IPAddress:     "10.0.0.1",
		UserAgent:     "curl/8",
		Metadata:      map[string]any{"authors": float64(2), "conversion_method": "native_gofpdf"},
	})
	require.NoError(t, err)

	assert.Len(t, d.ID, 36)
	assert.Equal(t, base, d.DownloadedAt)
	assert.Equal(t, types.DownloadCompleted, d.Status)

	got, err := s.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestRecordKeepsGivenID(t *testing.T) {
	s := testStore(t)
	d, err := s.Record(context.Background(), types.Download{ID: "fixed", DocumentTitle: "X", FileFormat: "docx"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", d.ID)

	_, err = s.Record(context.Background(), types.Download{ID: "fixed", DocumentTitle: "Y", FileFormat: "docx"})
	assert.Error(t, err, "duplicate id should be rejected")
}

func TestGetNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- list tests ---

func TestList(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"newest first", QueryOptions{}, []string{"C", "B", "A"}},
		{"by format", QueryOptions{Format: "pdf"}, []string{"C", "A"}},
		{"by status", QueryOptions{Status: types.DownloadCompleted}, []string{"B", "A"}},
		{"since", QueryOptions{Since: base.Add(30 * time.Minute)}, []string{"C", "B"}},
		{"limit", QueryOptions{Limit: 1}, []string{"C"}},
		{"no match", QueryOptions{Format: "html"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

// --- export tests ---

func TestExportJSON(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	var buf bytes.Buffer
	require.NoError(t, s.ExportJSON(context.Background(), &buf, QueryOptions{Format: "pdf"}))

	var rows []types.Download
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	assert.Equal(t, []string{"C", "A"}, titles(rows))
	assert.Contains(t, buf.String(), `"file_format": "pdf"`)
}

func TestExportJSONEmpty(t *testing.T) {
	s := testStore(t)
	var buf bytes.Buffer
	require.NoError(t, s.ExportJSON(context.Background(), &buf, QueryOptions{}))
	assert.Equal(t, "[]\n", buf.String())
}

func TestExportYAML(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	var buf bytes.Buffer
	require.NoError(t, s.ExportYAML(context.Background(), &buf, QueryOptions{}))

	var rows []types.Download
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rows))
	assert.Equal(t, []string{"C", "B", "A"}, titles(rows))
	assert.Equal(t, 20, rows[1].FileSize)
	assert.True(t, rows[2].DownloadedAt.Equal(base))
}
