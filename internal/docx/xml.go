// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/pdiddy/ieee-docgen/internal/inline"
	"github.com/pdiddy/ieee-docgen/internal/model"
)

// Unit conversions. Word measures spacing and indents in twentieths of a
// point (twips), font sizes in half points, and drawings in EMU.
const (
	twipsPerInch = 1440
	twipsPerPt   = 20
	emuPerInch   = 914400
)

func twips(in float64) int  { return int(in*twipsPerInch + 0.5) }
func halfPts(pt float64) int { return int(pt * 2) }
func emu(in float64) int64   { return int64(in*emuPerInch + 0.5) }

// Alignments for w:jc.
const (
	alignLeft    = "left"
	alignCenter  = "center"
	alignJustify = "both"
)

// pPr describes paragraph properties. Zero values are omitted.
type pPr struct {
	align    string
	before   int
	after    int
	line     int  // exact line height in twips
	indLeft  int  // left indent in twips
	hanging  int  // hanging indent in twips
	keepNext bool
	sectPr   string // raw w:sectPr ending a section at this paragraph
}

// rPr describes run properties.
type rPr struct {
	font      string
	size      float64 // points
	bold      bool
	italic    bool
	underline bool
	vertAlign string
}

func (p pPr) write(b *bytes.Buffer) {
	b.WriteString("<w:pPr>")
	if p.keepNext {
		b.WriteString("<w:keepNext/>")
	}
	b.WriteString(`<w:spacing w:before="`)
	b.WriteString(strconv.Itoa(p.before))
	b.WriteString(`" w:after="`)
	b.WriteString(strconv.Itoa(p.after))
	b.WriteString(`"`)
	if p.line > 0 {
		b.WriteString(` w:line="`)
		b.WriteString(strconv.Itoa(p.line))
		b.WriteString(`" w:lineRule="exact"`)
	}
	b.WriteString("/>")
	if p.indLeft > 0 || p.hanging > 0 {
		b.WriteString(`<w:ind w:left="`)
		b.WriteString(strconv.Itoa(p.indLeft + p.hanging))
		b.WriteString(`"`)
		if p.hanging > 0 {
			b.WriteString(` w:hanging="`)
			b.WriteString(strconv.Itoa(p.hanging))
			b.WriteString(`"`)
		}
		b.WriteString("/>")
	}
	if p.align != "" {
		b.WriteString(`<w:jc w:val="`)
		b.WriteString(p.align)
		b.WriteString(`"/>`)
	}
	b.WriteString(p.sectPr)
	b.WriteString("</w:pPr>")
}

func (r rPr) write(b *bytes.Buffer) {
	font := r.font
	if font == "" {
		font = model.FontFamily
	}
	b.WriteString(`<w:rPr><w:rFonts w:ascii="`)
	escapeTo(b, font)
	b.WriteString(`" w:hAnsi="`)
	escapeTo(b, font)
	b.WriteString(`" w:cs="`)
	escapeTo(b, font)
	b.WriteString(`"/>`)
	if r.bold {
		b.WriteString(`<w:b/><w:bCs/>`)
	}
	if r.italic {
		b.WriteString(`<w:i/><w:iCs/>`)
	}
	// CT_RPr is a sequence: sz and szCs come before u, u before vertAlign.
	if r.size > 0 {
		hp := strconv.Itoa(halfPts(r.size))
		b.WriteString(`<w:sz w:val="` + hp + `"/><w:szCs w:val="` + hp + `"/>`)
	}
	if r.underline {
		b.WriteString(`<w:u w:val="single"/>`)
	}
	if r.vertAlign != "" {
		b.WriteString(`<w:vertAlign w:val="`)
		b.WriteString(r.vertAlign)
		b.WriteString(`"/>`)
	}
	b.WriteString("</w:rPr>")
}

// run writes one w:r. Newlines in text become w:br.
func run(b *bytes.Buffer, text string, props rPr) {
	b.WriteString("<w:r>")
	props.write(b)
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		if line == "" {
			continue
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		escapeTo(b, line)
		b.WriteString("</w:t>")
	}
	b.WriteString("</w:r>")
}

// inlineRuns writes formatted runs on top of base properties.
func inlineRuns(b *bytes.Buffer, runs []inline.Run, base rPr) {
	for _, r := range runs {
		props := base
		props.bold = props.bold || r.Bold
		props.italic = props.italic || r.Italic
		props.underline = props.underline || r.Underline
		props.vertAlign = r.VertAlign
		run(b, r.Text, props)
	}
}

// paragraph writes a w:p with a single run of text.
func paragraph(b *bytes.Buffer, p pPr, text string, props rPr) {
	b.WriteString("<w:p>")
	p.write(b)
	if text != "" {
		run(b, text, props)
	}
	b.WriteString("</w:p>")
}

func escapeTo(b *bytes.Buffer, s string) {
	_ = xml.EscapeText(b, []byte(s))
}

func escape(s string) string {
	var b bytes.Buffer
	escapeTo(&b, s)
	return b.String()
}
