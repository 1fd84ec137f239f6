// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

// DefaultOrder is the sort key for content blocks that carry no explicit order.
const DefaultOrder = 999

// Request formats accepted by the document generator endpoint.
const (
	FormatDOCX      = "docx"
	FormatPDF       = "pdf"
	FormatHTML      = "html"
	FormatDOCXToPDF = "docx-to-pdf"

	ActionDownload = "download"
)

// DocumentRequest is the JSON payload describing a paper to generate.
type DocumentRequest struct {
	// Title is the paper title. Required by every generating route.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper's authors in display order.
	Authors []Author `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Abstract is the abstract body without the "Abstract" prefix.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Keywords is a comma separated keyword list.
	Keywords string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Sections holds the numbered body sections.
	Sections []Section `json:"sections,omitempty" yaml:"sections,omitempty"`

	// Tables are standalone tables merged into the first section.
	Tables []ContentBlock `json:"tables,omitempty" yaml:"tables,omitempty"`

	// Figures are standalone figures merged into the first section.
	Figures []ContentBlock `json:"figures,omitempty" yaml:"figures,omitempty"`

	// References are rendered in input order as [1], [2], ...
	References []Reference `json:"references,omitempty" yaml:"references,omitempty"`

	// Format selects the output: docx, pdf, html, docx-to-pdf. Empty means preview.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// Action qualifies Format; "download" with docx returns the Word file.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`

	// DOCXData is base64 DOCX input for the docx-to-pdf format.
	DOCXData string `json:"docx_data,omitempty" yaml:"docx_data,omitempty"`

	// Options overrides the configured rendering engines for one request.
	Options RenderOptions `json:"options,omitempty" yaml:"options,omitempty"`
}

// RenderOptions selects rendering engines per request.
type RenderOptions struct {
	// PDFEngine is one of docx, browser, native. Empty uses the server default.
	PDFEngine string `json:"pdf_engine,omitempty" yaml:"pdf_engine,omitempty"`

	// DOCXEngine is native or pandoc. Empty means native.
	DOCXEngine string `json:"docx_engine,omitempty" yaml:"docx_engine,omitempty"`
}

// Author is one paper author with structured affiliation fields.
type Author struct {
	Name         string `json:"name" yaml:"name"`
	Department   string `json:"department,omitempty" yaml:"department,omitempty"`
	Organization string `json:"organization,omitempty" yaml:"organization,omitempty"`
	University   string `json:"university,omitempty" yaml:"university,omitempty"`
	Institution  string `json:"institution,omitempty" yaml:"institution,omitempty"`
	City         string `json:"city,omitempty" yaml:"city,omitempty"`
	State        string `json:"state,omitempty" yaml:"state,omitempty"`
	Country      string `json:"country,omitempty" yaml:"country,omitempty"`
	Email        string `json:"email,omitempty" yaml:"email,omitempty"`

	// Affiliation is the legacy free-form affiliation, one line per field.
	// Used only when none of the structured fields are set.
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
}

// AffiliationFields returns the structured affiliation fields in IEEE order.
func (a Author) AffiliationFields() []string {
	return []string{
		a.Department, a.Organization, a.University, a.Institution,
		a.City, a.State, a.Country,
	}
}

// Section is one top-level numbered section.
type Section struct {
	Title string `json:"title" yaml:"title"`

	// ContentBlocks holds ordered section content. Both camelCase and
	// snake_case spellings are accepted; see Blocks.
	ContentBlocks      []ContentBlock `json:"contentBlocks,omitempty" yaml:"contentBlocks,omitempty"`
	ContentBlocksSnake []ContentBlock `json:"content_blocks,omitempty" yaml:"content_blocks,omitempty"`

	// Content is the legacy single-paragraph body.
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	Subsections []Subsection `json:"subsections,omitempty" yaml:"subsections,omitempty"`

	// Order positions the section; unset sections keep input order after
	// ordered ones.
	Order *int `json:"order,omitempty" yaml:"order,omitempty"`
}

// SortKey returns Order, or DefaultOrder when unset.
func (s Section) SortKey() int {
	if s.Order == nil {
		return DefaultOrder
	}
	return *s.Order
}

// Blocks returns the section content blocks, preferring the camelCase field.
func (s Section) Blocks() []ContentBlock {
	if len(s.ContentBlocks) > 0 {
		return s.ContentBlocks
	}
	return s.ContentBlocksSnake
}

// Subsection is a node in the flat subsection list. Children refer to
// their parent through ParentID and sit one Level deeper.
type Subsection struct {
	ID            string         `json:"id" yaml:"id"`
	ParentID      string         `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Level         int            `json:"level,omitempty" yaml:"level,omitempty"`
	Title         string         `json:"title,omitempty" yaml:"title,omitempty"`
	Content       string         `json:"content,omitempty" yaml:"content,omitempty"`
	ContentBlocks []ContentBlock `json:"contentBlocks,omitempty" yaml:"contentBlocks,omitempty"`
}

// EffectiveLevel returns Level, treating zero as 1.
func (s Subsection) EffectiveLevel() int {
	if s.Level <= 0 {
		return 1
	}
	return s.Level
}

// Block types.
const (
	BlockText       = "text"
	BlockTable      = "table"
	BlockImage      = "image"
	BlockEquation   = "equation"
	BlockSubsection = "subsection"
)

// Table types.
const (
	TableInteractive = "interactive"
	TableImage       = "image"
	TableLatex       = "latex"
)

// ContentBlock is one unit of section content. Which fields are
// meaningful depends on Type and, for tables, TableType.
type ContentBlock struct {
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Order   *int   `json:"order,omitempty" yaml:"order,omitempty"`

	// Table fields. Standalone tables send their kind in "type", so
	// TableKind checks both.
	TableType string   `json:"tableType,omitempty" yaml:"tableType,omitempty"`
	TableName string   `json:"tableName,omitempty" yaml:"tableName,omitempty"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	Caption   string   `json:"caption,omitempty" yaml:"caption,omitempty"`
	Headers   []Cell   `json:"headers,omitempty" yaml:"headers,omitempty"`
	TableData [][]Cell `json:"tableData,omitempty" yaml:"tableData,omitempty"`
	Rows      [][]Cell `json:"rows,omitempty" yaml:"rows,omitempty"`
	LatexCode string   `json:"latexCode,omitempty" yaml:"latexCode,omitempty"`

	// Image fields, shared by figures and image tables.
	Data         string `json:"data,omitempty" yaml:"data,omitempty"`
	OriginalName string `json:"originalName,omitempty" yaml:"originalName,omitempty"`
	MimeType     string `json:"mimeType,omitempty" yaml:"mimeType,omitempty"`
	Size         string `json:"size,omitempty" yaml:"size,omitempty"`

	EquationNumber Cell `json:"equationNumber,omitempty" yaml:"equationNumber,omitempty"`
}

// SortKey returns Order, or DefaultOrder when unset.
func (b ContentBlock) SortKey() int {
	if b.Order == nil {
		return DefaultOrder
	}
	return *b.Order
}

// TableKind returns the table type, defaulting to interactive.
func (b ContentBlock) TableKind() string {
	if b.TableType != "" {
		return b.TableType
	}
	switch b.Type {
	case TableInteractive, TableImage, TableLatex:
		return b.Type
	}
	return TableInteractive
}

// DataRows returns TableData, or Rows when TableData is empty.
func (b ContentBlock) DataRows() [][]Cell {
	if len(b.TableData) > 0 {
		return b.TableData
	}
	return b.Rows
}

// Cell is a scalar table value. Clients send strings, numbers, booleans,
// or null; all decode to their textual form.
type Cell string

// UnmarshalJSON accepts any JSON scalar.
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Cell(s)
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("table cell must be a scalar, got %s", data)
	default:
		*c = Cell(data)
	}
	return nil
}

// UnmarshalYAML accepts any YAML scalar.
func (c *Cell) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("table cell must be a scalar (line %d)", value.Line)
	}
	if value.Tag == "!!null" {
		*c = ""
		return nil
	}
	*c = Cell(value.Value)
	return nil
}

// String returns the cell text.
func (c Cell) String() string { return string(c) }

// Reference is one bibliography entry. It decodes from either a bare
// string or an object with a "text" field.
type Reference struct {
	Text string `json:"text" yaml:"text"`
}

// UnmarshalJSON accepts "text" or {"text": "..."}.
func (r *Reference) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.Text)
	}
	if bytes.Equal(data, []byte("null")) {
		r.Text = ""
		return nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Objects with non-string text are skipped rather than rejected.
		r.Text = ""
		return nil
	}
	r.Text = obj.Text
	return nil
}

// UnmarshalYAML accepts a scalar or a mapping with a text key.
func (r *Reference) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		r.Text = value.Value
		return nil
	case yaml.MappingNode:
		var obj struct {
			Text string `yaml:"text"`
		}
		if err := value.Decode(&obj); err != nil {
			return err
		}
		r.Text = obj.Text
		return nil
	}
	return fmt.Errorf("reference must be a string or mapping (line %d)", value.Line)
}

// HasTitle reports whether the request carries a non-blank title.
func (r *DocumentRequest) HasTitle() bool {
	return strings.TrimSpace(r.Title) != ""
}
