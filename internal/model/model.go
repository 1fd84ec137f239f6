// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package model maps a DocumentRequest onto the IEEE paper layout: numbered
// sections, ordered content blocks, captioned tables and figures, and
// references. Renderers (DOCX, HTML, PDF) consume the resulting Document so
// that every output carries the same numbering and text.
package model

import (
	"github.com/pdiddy/ieee-docgen/internal/inline"
)

// Layout constants for the IEEE two-column format. Sizes are in points
// unless the name says otherwise.
const (
	FontFamily = "Times New Roman"
	MonoFamily = "Courier New"

	TitleSize       = 24
	AuthorNameSize  = 10
	AuthorAffilSize = 10
	AuthorEmailSize = 9
	AbstractSize    = 9
	HeadingSize     = 10
	BodySize        = 10
	TableHeaderSize = 10
	TableCellSize   = 9
	CaptionSize     = 9
	ReferenceSize   = 9
	LineHeight      = 12
	ReferenceLine   = 10
	LatexCodeSize   = 8

	PageWidthIn       = 8.5
	PageHeightIn      = 11
	MarginIn          = 0.75
	ColumnCount       = 2
	ColumnGapIn       = 0.25
	ColumnWidthIn     = 3.3125
	HangingIndentIn   = 0.25
	MaxFigureHeightIn = 4.0
	SubsectionIndent  = 0.1

	AuthorsPerRow = 3
	MaxNesting    = 5

	AbstractPrefix = "Abstract—"
	KeywordsPrefix = "Index Terms—"
	ReferencesHead = "REFERENCES"
)

// FigureWidths maps the client size names to image widths in inches.
var FigureWidths = map[string]float64{
	"very-small": 1.5,
	"small":      2.0,
	"medium":     2.5,
	"large":      3.3125,
}

// DefaultFigureSize is used for unknown or missing size names.
const DefaultFigureSize = "medium"

// PageConfig carries page geometry for renderers.
type PageConfig struct {
	FontFamily    string
	BodySize      float64
	LineHeight    float64
	WidthIn       float64
	HeightIn      float64
	MarginIn      float64
	Columns       int
	ColumnGapIn   float64
	ColumnWidthIn float64
}

// DefaultPage returns the IEEE letter page configuration.
func DefaultPage() PageConfig {
	return PageConfig{
		FontFamily:    FontFamily,
		BodySize:      BodySize,
		LineHeight:    LineHeight,
		WidthIn:       PageWidthIn,
		HeightIn:      PageHeightIn,
		MarginIn:      MarginIn,
		Columns:       ColumnCount,
		ColumnGapIn:   ColumnGapIn,
		ColumnWidthIn: ColumnWidthIn,
	}
}

// Document is a fully resolved IEEE paper.
type Document struct {
	Title      string
	AuthorRows []AuthorRow
	Abstract   string
	Keywords   string
	Sections   []Section
	References []Reference
	Page       PageConfig
}

// AuthorRow is one row of up to AuthorsPerRow authors.
type AuthorRow struct {
	Authors []Author
}

// FieldKind distinguishes affiliation lines from email lines.
type FieldKind int

const (
	FieldAffiliation FieldKind = iota
	FieldEmail
)

// AuthorField is one line under an author's name.
type AuthorField struct {
	Kind FieldKind
	Text string
}

// Author is one resolved author block.
type Author struct {
	Name   string
	Fields []AuthorField
}

// Section is one numbered top-level section.
type Section struct {
	Number int
	Title  string
	Blocks []Block
}

// Heading returns the rendered heading text, e.g. "2. RELATED WORK".
func (s Section) Heading() string {
	return headingText(s.Number, s.Title)
}

// Reference is one numbered bibliography entry.
type Reference struct {
	Number int
	Text   string
}

// Block is one unit of section content. The concrete types are
// *Paragraph, *Heading, *Table, *Image, *LatexTable, *Equation,
// and *Placeholder.
type Block interface {
	block()
}

// Paragraph is justified body text.
type Paragraph struct {
	Runs []inline.Run

	// Lead marks the first paragraph of the first section, which gets
	// a full line of space before it.
	Lead bool

	// IndentIn is the extra left indent for nested subsection text.
	IndentIn float64
}

// Text returns the paragraph text without formatting.
func (p *Paragraph) Text() string { return inline.JoinRuns(p.Runs) }

// Heading is a subsection heading. Level 2 is a first-level subsection.
type Heading struct {
	Number string
	Title  string
	Level  int
}

// Text returns "Number Title", or just the title when unnumbered.
func (h *Heading) Text() string {
	if h.Number == "" {
		return h.Title
	}
	return h.Number + " " + h.Title
}

// Table is an interactive data table.
type Table struct {
	Number  string
	Caption string
	Headers []string
	Rows    [][]string
}

// Label returns the caption line, e.g. "TABLE 1.2: RESULTS".
func (t *Table) Label() string { return tableLabel(t.Number, t.Caption) }

// ImageKind distinguishes figures from tables supplied as images.
type ImageKind int

const (
	ImageFigure ImageKind = iota
	ImageTable
)

// Image is a figure or an image table. Data is always PNG, JPEG, or GIF.
type Image struct {
	Kind     ImageKind
	Number   string
	Caption  string
	Data     []byte
	Format   string // "png", "jpeg", or "gif"
	WidthIn  float64
	HeightIn float64
	PixelsW  int
	PixelsH  int
}

// Label returns the caption line, e.g. "FIG. 1.1: ARCHITECTURE".
func (im *Image) Label() string {
	if im.Kind == ImageTable {
		return tableLabel(im.Number, im.Caption)
	}
	return figureLabel(im.Number, im.Caption)
}

// MIMEType returns the image MIME type.
func (im *Image) MIMEType() string { return "image/" + im.Format }

// LatexTable is a table supplied as LaTeX source and rendered as code.
type LatexTable struct {
	Number  string
	Caption string
	Code    string
}

// Label returns the caption line.
func (t *LatexTable) Label() string { return tableLabel(t.Number, t.Caption) }

// Equation is a centered display equation.
type Equation struct {
	Number string
	Text   string
}

// Display returns "(n) text", or just the text when unnumbered.
func (e *Equation) Display() string {
	if e.Number == "" {
		return e.Text
	}
	return "(" + e.Number + ") " + e.Text
}

// Placeholder stands in for content that could not be rendered,
// such as an undecodable image.
type Placeholder struct {
	Text string
}

func (*Paragraph) block()   {}
func (*Heading) block()     {}
func (*Table) block()       {}
func (*Image) block()       {}
func (*LatexTable) block()  {}
func (*Equation) block()    {}
func (*Placeholder) block() {}
