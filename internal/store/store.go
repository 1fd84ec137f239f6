// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store records generated-file downloads in a SQLite ledger.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// ErrNotFound is returned when no download has the requested ID.
var ErrNotFound = errors.New("store: download not found")

const defaultLimit = 100

// Store manages the download ledger database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS downloads (
			id TEXT PRIMARY KEY,
			document_title TEXT NOT NULL,
			file_format TEXT NOT NULL,
			file_size INTEGER NOT NULL DEFAULT 0,
			downloaded_at TEXT NOT NULL,
			ip_address TEXT,
			user_agent TEXT,
			status TEXT NOT NULL,
			document_metadata TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_downloaded_at ON downloads(downloaded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_format ON downloads(file_format)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores d, assigning an ID, timestamp and status when missing,
// and returns the stored row.
func (s *Store) Record(ctx context.Context, d types.Download) (types.Download, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.DownloadedAt.IsZero() {
		d.DownloadedAt = s.now()
	}
	d.DownloadedAt = d.DownloadedAt.UTC().Truncate(time.Second)
	if d.Status == "" {
		d.Status = types.DownloadCompleted
	}

	var meta sql.NullString
	if len(d.Metadata) > 0 {
		b, err := json.Marshal(d.Metadata)
		if err != nil {
			return types.Download{}, fmt.Errorf("encoding metadata: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO downloads (id, document_title, file_format, file_size, downloaded_at,
			ip_address, user_agent, status, document_metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.DocumentTitle, d.FileFormat, d.FileSize, d.DownloadedAt.Format(time.RFC3339),
		d.IPAddress, d.UserAgent, d.Status, meta,
	)
	if err != nil {
		return types.Download{}, fmt.Errorf("inserting download %s: %w", d.ID, err)
	}
	return d, nil
}

const selectColumns = `SELECT id, document_title, file_format, file_size, downloaded_at,
	ip_address, user_agent, status, document_metadata FROM downloads`

// Get returns the download with id.
func (s *Store) Get(ctx context.Context, id string) (types.Download, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	d, err := scanDownload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Download{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, err
}

// QueryOptions filters List and the exports.
type QueryOptions struct {
	// Format filters by file format (docx, pdf, html).
	Format string

	// Status filters by download status.
	Status string

	// Since keeps rows recorded at or after this time.
	Since time.Time

	// Limit caps the row count. Zero uses the default of 100.
	Limit int
}

// List returns downloads matching opts, newest first.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]types.Download, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(selectColumns + ` WHERE 1=1`)

	if opts.Format != "" {
		qb.WriteString(` AND file_format = ?`)
		args = append(args, opts.Format)
	}
	if opts.Status != "" {
		qb.WriteString(` AND status = ?`)
		args = append(args, opts.Status)
	}
	if !opts.Since.IsZero() {
		qb.WriteString(` AND downloaded_at >= ?`)
		args = append(args, opts.Since.UTC().Format(time.RFC3339))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	qb.WriteString(` ORDER BY downloaded_at DESC, rowid DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying downloads: %w", err)
	}
	defer rows.Close()

	var out []types.Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDownload(sc scanner) (types.Download, error) {
	var (
		d        types.Download
		at       string
		ip, ua   sql.NullString
		metaJSON sql.NullString
	)
	if err := sc.Scan(&d.ID, &d.DocumentTitle, &d.FileFormat, &d.FileSize, &at,
		&ip, &ua, &d.Status, &metaJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("scanning download: %w", err)
	}

	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return d, fmt.Errorf("parsing downloaded_at %q: %w", at, err)
	}
	d.DownloadedAt = t
	d.IPAddress = ip.String
	d.UserAgent = ua.String
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &d.Metadata); err != nil {
			return d, fmt.Errorf("decoding metadata for %s: %w", d.ID, err)
		}
	}
	return d, nil
}
