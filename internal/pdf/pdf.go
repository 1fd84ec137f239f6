// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdf draws IEEE papers with gofpdf. Render lays out a
// model.Document directly; ConvertDOCX reads a Word package back into a
// document and lays that out, for when no conversion service is available.
package pdf

import (
	"errors"
	"fmt"

	"github.com/pdiddy/ieee-docgen/internal/model"
)

// Sentinel errors.
var (
	ErrEmptyDocument = errors.New("pdf: empty document")
	ErrInvalidDOCX   = errors.New("pdf: input is not a valid DOCX package")
	ErrDOCXTooLarge  = errors.New("pdf: DOCX package unpacks beyond the size limit")
)

// DefaultMaxUnpacked caps the decompressed contents of a DOCX package when
// the caller passes no limit.
const DefaultMaxUnpacked = 50 << 20

// Render draws doc as a two-column PDF.
func Render(doc *model.Document) ([]byte, error) {
	if doc == nil {
		return nil, ErrEmptyDocument
	}
	w := newWriter(doc.Page, doc.Title)
	w.document(doc)
	out, err := w.output()
	if err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return out, nil
}

// ConvertDOCX converts a DOCX package to PDF without external services.
func ConvertDOCX(data []byte) ([]byte, error) {
	doc, err := ReadDOCX(data, DefaultMaxUnpacked)
	if err != nil {
		return nil, err
	}
	return Render(doc)
}
