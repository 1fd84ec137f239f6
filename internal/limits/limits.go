// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package limits validates file and request sizes against configured
// limits and checks generated PDFs.
package limits

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/ieee-docgen/internal/apierr"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// File kinds with their own limits.
const (
	KindDOCX  = "docx"
	KindPDF   = "pdf"
	KindImage = "image"
	KindText  = "text"
	KindJSON  = "json"
)

// ErrInvalidPDF is returned by InspectPDF for unreadable input.
var ErrInvalidPDF = errors.New("limits: invalid pdf")

// Report describes one validation.
type Report struct {
	Valid         bool    `json:"valid"`
	FileType      string  `json:"file_type"`
	FileSize      int64   `json:"file_size"`
	EstimatedSize int64   `json:"estimated_size,omitempty"`
	Limit         int64   `json:"limit"`
	Utilization   float64 `json:"utilization"`
	PageCount     int     `json:"page_count,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Info lists the configured limits.
type Info struct {
	FileSizeLimits   map[string]int64 `json:"file_size_limits"`
	MaxResponseBytes int64            `json:"max_response_size"`
}

// Validator checks sizes against a LimitsConfig.
type Validator struct {
	cfg types.LimitsConfig
}

// New returns a Validator. Zero limits take the defaults.
func New(cfg types.LimitsConfig) *Validator {
	def := types.DefaultConfig().Limits
	if cfg.DOCX <= 0 {
		cfg.DOCX = def.DOCX
	}
	if cfg.PDF <= 0 {
		cfg.PDF = def.PDF
	}
	if cfg.Image <= 0 {
		cfg.Image = def.Image
	}
	if cfg.Text <= 0 {
		cfg.Text = def.Text
	}
	if cfg.JSON <= 0 {
		cfg.JSON = def.JSON
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = def.MaxResponseBytes
	}
	return &Validator{cfg: cfg}
}

// Limit returns the size limit for kind. Unknown kinds get half the
// response limit.
func (v *Validator) Limit(kind string) int64 {
	switch strings.ToLower(kind) {
	case KindDOCX:
		return v.cfg.DOCX
	case KindPDF:
		return v.cfg.PDF
	case KindImage:
		return v.cfg.Image
	case KindText:
		return v.cfg.Text
	case KindJSON:
		return v.cfg.JSON
	}
	return v.cfg.MaxResponseBytes / 2
}

// Info returns the configured limits.
func (v *Validator) Info() Info {
	return Info{
		FileSizeLimits: map[string]int64{
			KindDOCX:  v.cfg.DOCX,
			KindPDF:   v.cfg.PDF,
			KindImage: v.cfg.Image,
			KindText:  v.cfg.Text,
			KindJSON:  v.cfg.JSON,
		},
		MaxResponseBytes: v.cfg.MaxResponseBytes,
	}
}

// ValidateSize checks n bytes of kind against its limit and the global
// response limit.
func (v *Validator) ValidateSize(kind string, n int64) (Report, error) {
	limit := v.Limit(kind)
	r := Report{FileType: kind, FileSize: n, Limit: limit}

	switch {
	case n > limit:
		r.Error = fmt.Sprintf("File size %d bytes exceeds limit %d bytes for type %s", n, limit, kind)
	case n > v.cfg.MaxResponseBytes:
		r.Limit = v.cfg.MaxResponseBytes
		r.Error = fmt.Sprintf("File size %d bytes exceeds response limit %d bytes", n, v.cfg.MaxResponseBytes)
	default:
		r.Valid = true
		r.Utilization = float64(n) / float64(limit) * 100
		return r, nil
	}
	return r, sizeError(r)
}

// ValidateBase64 estimates the decoded size of s before decoding it,
// then validates the decoded bytes. PDFs are also opened to count pages.
func (v *Validator) ValidateBase64(kind, s string) (Report, []byte, error) {
	estimated := int64(len(s)) * 3 / 4
	limit := v.Limit(kind)
	if estimated > limit {
		r := Report{
			FileType:      kind,
			EstimatedSize: estimated,
			Limit:         limit,
			Error:         fmt.Sprintf("Estimated file size %d bytes exceeds limit %d bytes", estimated, limit),
		}
		return r, nil, sizeError(r)
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		r := Report{FileType: kind, EstimatedSize: estimated, Limit: limit, Error: "Invalid base64 data: " + err.Error()}
		return r, nil, apierr.Wrap(apierr.Validation, "Invalid base64 data", err)
	}

	r, err := v.ValidateSize(kind, int64(len(data)))
	r.EstimatedSize = estimated
	if err != nil {
		return r, nil, err
	}

	if strings.EqualFold(kind, KindPDF) {
		pages, err := InspectPDF(data)
		if err != nil {
			r.Valid = false
			r.Error = err.Error()
			return r, nil, apierr.Wrap(apierr.Validation, "Invalid PDF data", err)
		}
		r.PageCount = pages
	}
	return r, data, nil
}

// ValidateRequest checks an incoming request body size.
func (v *Validator) ValidateRequest(n int64) error {
	if n > v.cfg.MaxResponseBytes {
		return apierr.New(apierr.FileSize,
			fmt.Sprintf("Request size %d bytes exceeds limit %d bytes", n, v.cfg.MaxResponseBytes)).
			WithDetails(map[string]any{"size": n, "limit": v.cfg.MaxResponseBytes})
	}
	return nil
}

func sizeError(r Report) error {
	details := map[string]any{"limit": r.Limit, "file_type": r.FileType}
	if r.FileSize > 0 {
		details["file_size"] = r.FileSize
	}
	if r.EstimatedSize > 0 {
		details["estimated_size"] = r.EstimatedSize
	}
	return apierr.New(apierr.FileSize, r.Error).WithDetails(details)
}

// InspectPDF returns the page count of data.
func InspectPDF(data []byte) (pages int, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("%PDF-")) {
		return 0, fmt.Errorf("%w: missing %%PDF header", ErrInvalidPDF)
	}
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = 0, fmt.Errorf("%w: %v", ErrInvalidPDF, rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	n := r.NumPage()
	if n < 1 {
		return 0, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return n, nil
}
