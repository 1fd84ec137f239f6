// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docx renders an IEEE model.Document as a Word (OpenXML) package.
// The single-column header (title, authors) is followed by a continuous
// section break into the two-column body.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/ieee-docgen/internal/model"
)

// Creator is written to docProps/core.xml.
const Creator = "ieee-docgen"

// ErrEmptyDocument is returned for a nil document.
var ErrEmptyDocument = errors.New("docx: empty document")

// now is replaced in tests.
var now = time.Now

// Render writes doc as a DOCX package.
func Render(doc *model.Document) ([]byte, error) {
	if doc == nil {
		return nil, ErrEmptyDocument
	}

	w := &writer{}
	w.document(doc)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypes(w.extensions())},
		{"_rels/.rels", rootRels},
		{"docProps/core.xml", coreXML(doc.Title, now())},
		{"word/document.xml", w.body.String()},
		{"word/styles.xml", stylesXML},
		{"word/settings.xml", settingsXML},
		{"word/_rels/document.xml.rels", documentRels(w.images)},
	}
	for _, p := range parts {
		if err := addFile(zw, p.name, []byte(p.content)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", p.name, err)
		}
	}
	for _, m := range w.images {
		if err := addFile(zw, "word/media/"+m.name, m.data); err != nil {
			return nil, fmt.Errorf("writing media %s: %w", m.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing docx archive: %w", err)
	}
	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// writer accumulates document.xml and the media it references.
type writer struct {
	body   bytes.Buffer
	images []media
}

func (w *writer) extensions() []string {
	seen := map[string]bool{}
	var exts []string
	for _, m := range w.images {
		ext := extOf(m.name)
		if !seen[ext] {
			seen[ext] = true
			exts = append(exts, ext)
		}
	}
	return exts
}

func extOf(name string) string {
	return strings.TrimPrefix(path.Ext(name), ".")
}

// addImage registers image data and returns its relationship ID.
func (w *writer) addImage(img *model.Image) string {
	n := len(w.images) + 1
	m := media{
		relID: "rId" + strconv.Itoa(n+2),
		name:  "image" + strconv.Itoa(n) + "." + img.Format,
		data:  img.Data,
	}
	w.images = append(w.images, m)
	return m.relID
}

func (w *writer) document(doc *model.Document) {
	b := &w.body
	b.WriteString(xmlHeader)
	b.WriteString(`<w:document ` + documentNS + `><w:body>`)

	w.title(doc.Title)
	w.authors(doc.AuthorRows)

	// End the single-column header section.
	paragraph(b, pPr{sectPr: sectPr(1)}, "", rPr{})

	w.prefixed(model.AbstractPrefix, doc.Abstract, 120)
	w.prefixed(model.KeywordsPrefix, doc.Keywords, 240)

	for _, sec := range doc.Sections {
		w.section(sec)
	}
	w.references(doc.References)

	b.WriteString(sectPr(2))
	b.WriteString(`</w:body></w:document>`)
}

func (w *writer) title(title string) {
	paragraph(&w.body,
		pPr{align: alignCenter, after: 240},
		title,
		rPr{size: model.TitleSize, bold: true})
}

func (w *writer) authors(rows []model.AuthorRow) {
	b := &w.body
	colW := authorsWidth / model.AuthorsPerRow
	for _, row := range rows {
		b.WriteString(`<w:tbl><w:tblPr>`)
		fmt.Fprintf(b, `<w:tblW w:w="%d" w:type="dxa"/>`, authorsWidth)
		b.WriteString(`<w:jc w:val="center"/>`)
		b.WriteString(`<w:tblBorders><w:top w:val="nil"/><w:left w:val="nil"/><w:bottom w:val="nil"/><w:right w:val="nil"/><w:insideH w:val="nil"/><w:insideV w:val="nil"/></w:tblBorders>`)
		b.WriteString(`<w:tblLayout w:type="fixed"/></w:tblPr><w:tblGrid>`)
		for i := 0; i < model.AuthorsPerRow; i++ {
			fmt.Fprintf(b, `<w:gridCol w:w="%d"/>`, colW)
		}
		b.WriteString(`</w:tblGrid><w:tr>`)
		for i := 0; i < model.AuthorsPerRow; i++ {
			fmt.Fprintf(b, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/></w:tcPr>`, colW)
			if i < len(row.Authors) {
				w.author(row.Authors[i])
			} else {
				paragraph(b, pPr{align: alignCenter}, "", rPr{})
			}
			b.WriteString(`</w:tc>`)
		}
		b.WriteString(`</w:tr></w:tbl>`)
	}
	if len(rows) > 0 {
		paragraph(b, pPr{after: 240}, "", rPr{})
	}
}

func (w *writer) author(a model.Author) {
	b := &w.body
	paragraph(b, pPr{align: alignCenter}, a.Name, rPr{size: model.AuthorNameSize, bold: true})
	for _, f := range a.Fields {
		props := rPr{size: model.AuthorAffilSize, italic: true}
		if f.Kind == model.FieldEmail {
			props = rPr{size: model.AuthorEmailSize}
		}
		paragraph(b, pPr{align: alignCenter}, f.Text, props)
	}
}

// prefixed writes the abstract or keywords paragraph.
func (w *writer) prefixed(prefix, text string, after int) {
	if text == "" {
		return
	}
	b := &w.body
	b.WriteString("<w:p>")
	pPr{align: alignJustify, after: after}.write(b)
	run(b, prefix, rPr{size: model.AbstractSize, bold: true, italic: true})
	run(b, text, rPr{size: model.AbstractSize, bold: true})
	b.WriteString("</w:p>")
}

func (w *writer) section(sec model.Section) {
	b := &w.body
	if sec.Title != "" {
		paragraph(b,
			pPr{align: alignCenter, before: 240, line: 240, keepNext: true},
			sec.Heading(),
			rPr{size: model.HeadingSize, bold: true})
	}
	for _, blk := range sec.Blocks {
		w.block(blk)
	}
}

func (w *writer) block(blk model.Block) {
	b := &w.body
	switch v := blk.(type) {
	case *model.Paragraph:
		p := pPr{align: alignJustify, before: 60, after: 240, line: 240, indLeft: twips(v.IndentIn)}
		if v.Lead {
			p.before = 240
		}
		b.WriteString("<w:p>")
		p.write(b)
		inlineRuns(b, v.Runs, rPr{size: model.BodySize})
		b.WriteString("</w:p>")

	case *model.Heading:
		indent := 0
		if v.Level > 2 {
			indent = twips(model.SubsectionIndent * float64(v.Level-2))
		}
		paragraph(b,
			pPr{align: alignLeft, before: 240, indLeft: indent, keepNext: true},
			v.Text(),
			rPr{size: model.HeadingSize, bold: true})

	case *model.Table:
		w.caption(v.Label(), 240, 120)
		w.table(v)
		paragraph(b, pPr{after: 240}, "", rPr{})

	case *model.Image:
		if v.Kind == model.ImageTable {
			w.caption(v.Label(), 240, 120)
			w.drawing(v)
			paragraph(b, pPr{after: 240}, "", rPr{})
			return
		}
		w.drawing(v)
		w.caption(v.Label(), 60, 240)

	case *model.LatexTable:
		w.caption(v.Label(), 240, 120)
		paragraph(b,
			pPr{align: alignLeft, before: 240, after: 240},
			"LaTeX Table Code:\n"+v.Code,
			rPr{font: model.MonoFamily, size: model.LatexCodeSize})

	case *model.Equation:
		paragraph(b,
			pPr{align: alignCenter, before: 240, after: 240},
			v.Display(),
			rPr{size: model.BodySize, italic: true})

	case *model.Placeholder:
		paragraph(b, pPr{align: alignCenter, before: 120, after: 120}, v.Text, rPr{size: model.BodySize})
	}
}

func (w *writer) caption(label string, before, after int) {
	paragraph(&w.body,
		pPr{align: alignCenter, before: before, after: after, keepNext: true},
		label,
		rPr{size: model.CaptionSize, bold: true})
}

func (w *writer) table(t *model.Table) {
	b := &w.body
	cols := len(t.Headers)
	colW := max(minColWidth, columnWidth/cols)

	b.WriteString(`<w:tbl><w:tblPr>`)
	fmt.Fprintf(b, `<w:tblW w:w="%d" w:type="dxa"/>`, columnWidth)
	b.WriteString(`<w:jc w:val="center"/>`)
	b.WriteString(`<w:tblBorders>`)
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		fmt.Fprintf(b, `<w:%s w:val="single" w:sz="12" w:space="0" w:color="000000"/>`, side)
	}
	b.WriteString(`</w:tblBorders>`)
	b.WriteString(`<w:tblLayout w:type="fixed"/>`)
	m := strconv.Itoa(cellMargin)
	b.WriteString(`<w:tblCellMar><w:top w:w="` + m + `" w:type="dxa"/><w:left w:w="` + m + `" w:type="dxa"/><w:bottom w:w="` + m + `" w:type="dxa"/><w:right w:w="` + m + `" w:type="dxa"/></w:tblCellMar>`)
	b.WriteString(`</w:tblPr><w:tblGrid>`)
	for i := 0; i < cols; i++ {
		fmt.Fprintf(b, `<w:gridCol w:w="%d"/>`, colW)
	}
	b.WriteString(`</w:tblGrid>`)

	b.WriteString(`<w:tr><w:trPr><w:tblHeader/></w:trPr>`)
	for _, h := range t.Headers {
		w.cell(colW, h, alignCenter, rPr{size: model.TableHeaderSize, bold: true})
	}
	b.WriteString(`</w:tr>`)
	for _, row := range t.Rows {
		b.WriteString(`<w:tr>`)
		for _, c := range row {
			w.cell(colW, c, alignLeft, rPr{size: model.TableCellSize})
		}
		b.WriteString(`</w:tr>`)
	}
	b.WriteString(`</w:tbl>`)
}

func (w *writer) cell(width int, text, align string, props rPr) {
	b := &w.body
	fmt.Fprintf(b, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/><w:vAlign w:val="center"/></w:tcPr>`, width)
	paragraph(b, pPr{align: align}, text, props)
	b.WriteString(`</w:tc>`)
}

// drawing writes a centered paragraph holding an inline picture.
func (w *writer) drawing(img *model.Image) {
	b := &w.body
	relID := w.addImage(img)
	id := len(w.images)
	cx, cy := emu(img.WidthIn), emu(img.HeightIn)
	name := "Picture " + strconv.Itoa(id)

	b.WriteString("<w:p>")
	pPr{align: alignCenter, before: 120, after: 60, keepNext: true}.write(b)
	b.WriteString(`<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`)
	fmt.Fprintf(b, `<wp:extent cx="%d" cy="%d"/>`, cx, cy)
	b.WriteString(`<wp:effectExtent l="0" t="0" r="0" b="0"/>`)
	fmt.Fprintf(b, `<wp:docPr id="%d" name="%s" descr="%s"/>`, id, name, escape(img.Caption))
	b.WriteString(`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`)
	b.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture"><pic:pic>`)
	fmt.Fprintf(b, `<pic:nvPicPr><pic:cNvPr id="%d" name="%s"/><pic:cNvPicPr/></pic:nvPicPr>`, id, name)
	fmt.Fprintf(b, `<pic:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`, relID)
	fmt.Fprintf(b, `<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`, cx, cy)
	b.WriteString(`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`)
}

func (w *writer) references(refs []model.Reference) {
	if len(refs) == 0 {
		return
	}
	b := &w.body
	paragraph(b,
		pPr{align: alignCenter, before: 240, line: 240, keepNext: true},
		model.ReferencesHead,
		rPr{size: model.HeadingSize, bold: true})
	for _, r := range refs {
		paragraph(b,
			pPr{align: alignJustify, before: 60, after: 240, line: 200, hanging: 360},
			"["+strconv.Itoa(r.Number)+"] "+r.Text,
			rPr{size: model.ReferenceSize})
	}
}
