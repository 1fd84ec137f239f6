// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// MIME types of generated files.
const (
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEPDF  = "application/pdf"
	MIMEHTML = "text/html; charset=utf-8"
)

// FileResponse is the JSON body returned for every generated file.
type FileResponse struct {
	Success bool `json:"success"`

	// FileData is the base64 encoded file.
	FileData string `json:"file_data"`

	FileType string `json:"file_type"`
	FileSize int    `json:"file_size"`
	Message  string `json:"message"`

	// ConversionMethod names the PDF path taken, e.g. pdf_service_docx2pdf_exact
	// or direct_docx2pdf_fallback. Empty for DOCX and HTML.
	ConversionMethod string `json:"conversion_method,omitempty"`

	RequestedFormat string `json:"requested_format,omitempty"`
	ActualFormat    string `json:"actual_format,omitempty"`

	// DocumentID is the download ledger row for this file, when recorded.
	DocumentID string `json:"document_id,omitempty"`

	// PageCount is set for PDF output.
	PageCount int `json:"page_count,omitempty"`
}

// ErrorResponse is the JSON body returned on failure.
type ErrorResponse struct {
	Success   bool           `json:"success"`
	Error     string         `json:"error"`
	ErrorType string         `json:"error_type,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Download statuses.
const (
	DownloadCompleted = "completed"
	DownloadFailed    = "failed"
)

// Download is one row of the download ledger.
type Download struct {
	ID            string         `json:"id" yaml:"id"`
	DocumentTitle string         `json:"document_title" yaml:"document_title"`
	FileFormat    string         `json:"file_format" yaml:"file_format"`
	FileSize      int            `json:"file_size" yaml:"file_size"`
	DownloadedAt  time.Time      `json:"downloaded_at" yaml:"downloaded_at"`
	IPAddress     string         `json:"ip_address,omitempty" yaml:"ip_address,omitempty"`
	UserAgent     string         `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Status        string         `json:"status" yaml:"status"`
	Metadata      map[string]any `json:"document_metadata,omitempty" yaml:"document_metadata,omitempty"`
}
