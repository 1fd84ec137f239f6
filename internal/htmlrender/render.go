// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package htmlrender renders an IEEE model.Document as a standalone HTML
// page. The page is used for browser preview, as input to the headless
// Chrome PDF engine, and as input to pandoc for DOCX output.
package htmlrender

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/pdiddy/ieee-docgen/internal/inline"
	"github.com/pdiddy/ieee-docgen/internal/model"
)

// DefaultPreviewNote is shown at the top of preview pages.
const DefaultPreviewNote = "Preview: layout may differ slightly from the final DOCX and PDF output."

// ErrEmptyDocument is returned for a nil document.
var ErrEmptyDocument = errors.New("htmlrender: empty document")

//go:embed templates/paper.html.tmpl
var templates embed.FS

var paperTmpl = template.Must(template.ParseFS(templates, "templates/paper.html.tmpl"))

// Options controls optional page elements.
type Options struct {
	// Preview adds a banner noting the page is a preview.
	Preview bool

	// PreviewNote overrides DefaultPreviewNote.
	PreviewNote string
}

// Render writes doc as an HTML page.
func Render(doc *model.Document, opts Options) ([]byte, error) {
	if doc == nil {
		return nil, ErrEmptyDocument
	}
	v := newView(doc, opts)
	var buf bytes.Buffer
	if err := paperTmpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("rendering html: %w", err)
	}
	return buf.Bytes(), nil
}

type view struct {
	Title          string
	Preview        bool
	PreviewNote    string
	Page           model.PageConfig
	AuthorRows     [][]authorView
	AbstractPrefix string
	Abstract       string
	KeywordsPrefix string
	Keywords       string
	Sections       []sectionView
	ReferencesHead string
	References     []model.Reference
}

type authorView struct {
	Name         string
	Affiliations []string
	Emails       []string
}

type sectionView struct {
	Heading string
	Blocks  []blockView
}

// blockView flattens every block kind into one struct for the template.
type blockView struct {
	Kind    string
	HTML    template.HTML
	Text    string
	Label   string
	Lead    bool
	Indent  float64
	Headers []string
	Rows    [][]string
	Src     template.URL
	Alt     string
	Width   float64
}

func newView(doc *model.Document, opts Options) view {
	v := view{
		Title:          doc.Title,
		Preview:        opts.Preview,
		PreviewNote:    opts.PreviewNote,
		Page:           doc.Page,
		AbstractPrefix: model.AbstractPrefix,
		Abstract:       doc.Abstract,
		KeywordsPrefix: model.KeywordsPrefix,
		Keywords:       doc.Keywords,
		ReferencesHead: model.ReferencesHead,
		References:     doc.References,
	}
	if v.PreviewNote == "" {
		v.PreviewNote = DefaultPreviewNote
	}
	if v.Page.Columns == 0 {
		v.Page = model.DefaultPage()
	}

	for _, row := range doc.AuthorRows {
		cells := make([]authorView, model.AuthorsPerRow)
		for i, a := range row.Authors {
			if i >= len(cells) {
				break
			}
			av := authorView{Name: a.Name}
			for _, f := range a.Fields {
				if f.Kind == model.FieldEmail {
					av.Emails = append(av.Emails, f.Text)
				} else {
					av.Affiliations = append(av.Affiliations, f.Text)
				}
			}
			cells[i] = av
		}
		v.AuthorRows = append(v.AuthorRows, cells)
	}

	for _, sec := range doc.Sections {
		sv := sectionView{}
		if sec.Title != "" {
			sv.Heading = sec.Heading()
		}
		for _, b := range sec.Blocks {
			sv.Blocks = append(sv.Blocks, blockFor(b))
		}
		v.Sections = append(v.Sections, sv)
	}
	return v
}

func blockFor(b model.Block) blockView {
	switch t := b.(type) {
	case *model.Paragraph:
		return blockView{
			Kind:   "paragraph",
			HTML:   template.HTML(inline.SafeHTML(RunsHTML(t.Runs))),
			Lead:   t.Lead,
			Indent: t.IndentIn,
		}
	case *model.Heading:
		bv := blockView{Kind: "heading", Text: t.Text()}
		if t.Level > 2 {
			bv.Indent = model.SubsectionIndent * float64(t.Level-2)
		}
		return bv
	case *model.Table:
		return blockView{Kind: "table", Label: t.Label(), Headers: t.Headers, Rows: t.Rows}
	case *model.Image:
		kind, alt := "figure", "Figure "+t.Number
		if t.Kind == model.ImageTable {
			kind, alt = "table-image", "Table "+t.Number
		}
		return blockView{
			Kind:  kind,
			Label: t.Label(),
			Src:   DataURI(t.MIMEType(), t.Data),
			Alt:   alt,
			Width: t.WidthIn,
		}
	case *model.LatexTable:
		return blockView{Kind: "latex", Label: t.Label(), Text: t.Code}
	case *model.Equation:
		return blockView{Kind: "equation", Text: t.Display()}
	case *model.Placeholder:
		return blockView{Kind: "placeholder", Text: t.Text}
	}
	return blockView{}
}

// DataURI returns a base64 data URI for embedding binary content.
func DataURI(mime string, data []byte) template.URL {
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// RunsHTML turns formatted runs back into inline HTML.
func RunsHTML(runs []inline.Run) string {
	var b strings.Builder
	for _, r := range runs {
		var open, closing []string
		wrap := func(tag string) {
			open = append(open, "<"+tag+">")
			closing = append([]string{"</" + tag + ">"}, closing...)
		}
		if r.Bold {
			wrap("b")
		}
		if r.Italic {
			wrap("i")
		}
		if r.Underline {
			wrap("u")
		}
		switch r.VertAlign {
		case inline.Superscript:
			wrap("sup")
		case inline.Subscript:
			wrap("sub")
		}
		b.WriteString(strings.Join(open, ""))
		b.WriteString(strings.ReplaceAll(html.EscapeString(r.Text), "\n", "<br>"))
		b.WriteString(strings.Join(closing, ""))
	}
	return b.String()
}
