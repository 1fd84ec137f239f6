// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/ieee-docgen/internal/inline"
	"github.com/pdiddy/ieee-docgen/internal/model"
)

// Core font families.
const (
	fontSerif = "Times"
	fontMono  = "Courier"
)

const ptPerInch = 72

// writer lays a model.Document out on letter pages: a full-width header
// followed by two balanced-width columns that flow top to bottom, left to
// right. Column switches happen in the page break callback.
type writer struct {
	f  *gofpdf.Fpdf
	tr func(string) string

	page    model.PageConfig
	margin  float64
	pageW   float64
	pageH   float64
	colW    float64
	gap     float64
	columns bool
	col     int
	colTop  float64
	images  int
}

func newWriter(page model.PageConfig, title string) *writer {
	if page.Columns == 0 {
		page = model.DefaultPage()
	}
	f := gofpdf.New("P", "pt", "Letter", "")
	w := &writer{
		f:      f,
		tr:     f.UnicodeTranslatorFromDescriptor(""),
		page:   page,
		margin: page.MarginIn * ptPerInch,
		pageW:  page.WidthIn * ptPerInch,
		pageH:  page.HeightIn * ptPerInch,
		colW:   page.ColumnWidthIn * ptPerInch,
		gap:    page.ColumnGapIn * ptPerInch,
	}
	f.SetMargins(w.margin, w.margin, w.margin)
	f.SetAutoPageBreak(true, w.margin)
	f.SetCreator("ieee-docgen", true)
	f.SetTitle(title, true)
	f.SetAcceptPageBreakFunc(w.acceptPageBreak)
	f.AddPage()
	return w
}

// acceptPageBreak moves to the next column, or to a new page when the
// right column is full.
func (w *writer) acceptPageBreak() bool {
	if w.columns && w.col < w.page.Columns-1 {
		w.setColumn(w.col + 1)
		w.f.SetY(w.colTop)
		return false
	}
	w.colTop = w.margin
	if w.columns {
		w.setColumn(0)
	}
	return true
}

// breakColumn forces a column or page break.
func (w *writer) breakColumn() {
	if w.acceptPageBreak() {
		w.f.AddPage()
		w.f.SetY(w.colTop)
		w.f.SetX(w.colX(w.col))
	}
}

// ensure breaks the column when h points do not fit below the cursor.
func (w *writer) ensure(h float64) {
	if w.f.GetY()+h > w.pageH-w.margin && w.f.GetY() > w.colTop+1 {
		w.breakColumn()
	}
}

func (w *writer) colX(col int) float64 {
	return w.margin + float64(col)*(w.colW+w.gap)
}

func (w *writer) setColumn(col int) {
	w.col = col
	x := w.colX(col)
	w.f.SetLeftMargin(x)
	w.f.SetRightMargin(w.pageW - x - w.colW)
	w.f.SetX(x)
}

// startColumns switches from the full-width header to column flow.
func (w *writer) startColumns() {
	w.columns = true
	w.colTop = w.f.GetY()
	w.setColumn(0)
}

// fold rewrites a character cp1252 lacks into its compatibility form
// without combining marks: "ﬁ" becomes "fi", "ő" becomes "o". A chain
// keeps state, so each call builds its own.
func fold(r rune) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, string(r))
	if err != nil {
		return string(r)
	}
	return out
}

// text prepares s for the cp1252 core fonts. Characters cp1252 can encode,
// accented Latin-1 letters included, pass through composed; the rest are
// folded.
func (w *writer) text(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); ok {
			b.WriteRune(r)
			continue
		}
		b.WriteString(fold(r))
	}
	return w.tr(b.String())
}

func (w *writer) font(style string, size float64) {
	w.f.SetFont(fontSerif, style, size)
}

func (w *writer) space(pt float64) {
	if pt > 0 {
		w.f.Ln(pt)
	}
}

func (w *writer) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.f.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *writer) document(doc *model.Document) {
	w.title(doc.Title)
	w.authors(doc.AuthorRows)
	w.startColumns()

	w.prefixed(model.AbstractPrefix, doc.Abstract, 6)
	w.prefixed(model.KeywordsPrefix, doc.Keywords, 12)

	for _, sec := range doc.Sections {
		w.section(sec)
	}
	w.references(doc.References)
}

func (w *writer) title(title string) {
	w.font("B", model.TitleSize)
	w.f.MultiCell(0, model.TitleSize*1.2, w.text(title), "", "C", false)
	w.space(12)
}

func (w *writer) authors(rows []model.AuthorRow) {
	if len(rows) == 0 {
		return
	}
	width := (w.pageW - 2*w.margin) / model.AuthorsPerRow
	for _, row := range rows {
		top := w.f.GetY()
		bottom := top
		for i, a := range row.Authors {
			w.f.SetXY(w.margin+float64(i)*width, top)
			w.font("B", model.AuthorNameSize)
			w.f.MultiCell(width, 12, w.text(a.Name), "", "C", false)
			for _, fld := range a.Fields {
				w.f.SetX(w.margin + float64(i)*width)
				if fld.Kind == model.FieldEmail {
					w.font("", model.AuthorEmailSize)
					w.f.MultiCell(width, 11, w.text(fld.Text), "", "C", false)
				} else {
					w.font("I", model.AuthorAffilSize)
					w.f.MultiCell(width, 12, w.text(fld.Text), "", "C", false)
				}
			}
			bottom = max(bottom, w.f.GetY())
		}
		w.f.SetXY(w.margin, bottom+6)
	}
	w.space(6)
}

// prefixed writes the abstract or keywords paragraph in the first column.
func (w *writer) prefixed(prefix, body string, after float64) {
	if body == "" {
		return
	}
	const lh = 10.5
	w.f.SetX(w.colX(w.col))
	w.font("BI", model.AbstractSize)
	w.f.Write(lh, w.text(prefix))
	w.font("B", model.AbstractSize)
	w.f.Write(lh, w.text(body))
	w.f.Ln(lh)
	w.space(after)
}

func (w *writer) section(sec model.Section) {
	if sec.Title != "" {
		w.ensure(36)
		w.space(12)
		w.font("B", model.HeadingSize)
		w.f.SetX(w.colX(w.col))
		w.f.CellFormat(w.colW, model.LineHeight, w.text(sec.Heading()), "", 1, "C", false, 0, "")
	}
	for _, b := range sec.Blocks {
		w.block(b)
	}
}

func (w *writer) block(b model.Block) {
	switch v := b.(type) {
	case *model.Paragraph:
		if v.Lead {
			w.space(12)
		} else {
			w.space(3)
		}
		w.paragraph(v.Runs, v.IndentIn*ptPerInch)
		w.space(12)

	case *model.Heading:
		w.ensure(30)
		indent := 0.0
		if v.Level > 2 {
			indent = model.SubsectionIndent * float64(v.Level-2) * ptPerInch
		}
		w.space(12)
		w.font("B", model.HeadingSize)
		w.f.SetX(w.colX(w.col) + indent)
		w.f.MultiCell(w.colW-indent, model.LineHeight, w.text(v.Text()), "", "L", false)

	case *model.Table:
		w.caption(v.Label(), 12, 6)
		w.table(v)
		w.space(12)

	case *model.Image:
		if v.Kind == model.ImageTable {
			w.caption(v.Label(), 12, 6)
			w.image(v)
			w.space(12)
			return
		}
		w.space(6)
		w.image(v)
		w.caption(v.Label(), 3, 12)

	case *model.LatexTable:
		w.caption(v.Label(), 12, 6)
		w.f.SetFont(fontMono, "", model.LatexCodeSize)
		w.f.SetX(w.colX(w.col))
		w.f.MultiCell(w.colW, model.LatexCodeSize+2, w.text("LaTeX Table Code:\n"+v.Code), "", "L", false)
		w.space(12)

	case *model.Equation:
		w.ensure(36)
		w.space(12)
		w.font("I", model.BodySize)
		w.f.SetX(w.colX(w.col))
		w.f.MultiCell(w.colW, model.LineHeight, w.text(v.Display()), "", "C", false)
		w.space(12)

	case *model.Placeholder:
		w.space(6)
		w.font("", model.BodySize)
		w.f.SetX(w.colX(w.col))
		w.f.MultiCell(w.colW, model.LineHeight, w.text(v.Text), "", "C", false)
		w.space(6)
	}
}

// paragraph writes justified text. Mixed formatting is written run by run
// and falls back to left alignment, which gofpdf cannot justify.
func (w *writer) paragraph(runs []inline.Run, indent float64) {
	if len(runs) == 0 {
		return
	}
	x := w.colX(w.col)
	if len(runs) == 1 && !runs[0].Bold && !runs[0].Italic && !runs[0].Underline && runs[0].VertAlign == "" {
		w.font("", model.BodySize)
		w.f.SetX(x + indent)
		w.f.MultiCell(w.colW-indent, model.LineHeight, w.text(runs[0].Text), "", "J", false)
		return
	}

	w.f.SetLeftMargin(x + indent)
	w.f.SetX(x + indent)
	for _, r := range runs {
		style := ""
		if r.Bold {
			style += "B"
		}
		if r.Italic {
			style += "I"
		}
		if r.Underline {
			style += "U"
		}
		w.font(style, model.BodySize)
		switch r.VertAlign {
		case inline.Superscript:
			w.f.SubWrite(model.LineHeight, w.text(r.Text), model.BodySize*0.7, 3, 0, "")
		case inline.Subscript:
			w.f.SubWrite(model.LineHeight, w.text(r.Text), model.BodySize*0.7, -2, 0, "")
		default:
			w.f.Write(model.LineHeight, w.text(r.Text))
		}
	}
	w.f.Ln(model.LineHeight)
	w.f.SetLeftMargin(w.colX(w.col))
}

func (w *writer) caption(label string, before, after float64) {
	w.ensure(before + 30)
	w.space(before)
	w.font("B", model.CaptionSize)
	w.f.SetX(w.colX(w.col))
	w.f.MultiCell(w.colW, 11, w.text(label), "", "C", false)
	w.space(after)
}

const cellPad = 3

func (w *writer) table(t *model.Table) {
	cols := len(t.Headers)
	if cols == 0 {
		return
	}
	cw := w.colW / float64(cols)

	rows := append([][]string{t.Headers}, t.Rows...)
	for i, row := range rows {
		header := i == 0
		style, size := "", float64(model.TableCellSize)
		if header {
			style, size = "B", model.TableHeaderSize
		}
		w.font(style, size)
		lh := size * 1.25

		lines := make([]int, len(row))
		maxLines := 1
		for j, cell := range row {
			n := len(w.f.SplitLines([]byte(w.text(cell)), cw-2*cellPad))
			lines[j] = max(n, 1)
			maxLines = max(maxLines, lines[j])
		}
		rowH := float64(maxLines)*lh + 2*cellPad
		w.ensure(rowH)

		x, y := w.colX(w.col), w.f.GetY()
		for j, cell := range row {
			cx := x + float64(j)*cw
			w.f.Rect(cx, y, cw, rowH, "D")
			w.f.SetXY(cx+cellPad, y+cellPad)
			align := "L"
			if header {
				align = "C"
			}
			w.f.MultiCell(cw-2*cellPad, lh, w.text(cell), "", align, false)
		}
		w.f.SetXY(x, y+rowH)
	}
}

func (w *writer) image(img *model.Image) {
	width := min(img.WidthIn*ptPerInch, w.colW)
	height := width * img.HeightIn / img.WidthIn
	w.ensure(height + 6)

	w.images++
	name := "img" + strconv.Itoa(w.images)
	opts := gofpdf.ImageOptions{ImageType: imageType(img.Format)}
	w.f.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	if !w.f.Ok() {
		// An image gofpdf cannot embed is shown as its placeholder text.
		w.f.ClearError()
		w.block(&model.Placeholder{Text: "[Image: " + img.Caption + "]"})
		return
	}

	x := w.colX(w.col) + (w.colW-width)/2
	y := w.f.GetY()
	w.f.ImageOptions(name, x, y, width, height, false, opts, 0, "")
	w.f.SetY(y + height)
	w.f.SetX(w.colX(w.col))
}

func imageType(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "JPG"
	case "gif":
		return "GIF"
	}
	return "PNG"
}

func (w *writer) references(refs []model.Reference) {
	if len(refs) == 0 {
		return
	}
	w.ensure(40)
	w.space(12)
	w.font("B", model.HeadingSize)
	w.f.SetX(w.colX(w.col))
	w.f.CellFormat(w.colW, model.LineHeight, model.ReferencesHead, "", 1, "C", false, 0, "")

	const hang = 0.25 * ptPerInch
	for _, r := range refs {
		w.space(3)
		w.ensure(model.ReferenceLine * 2)
		w.font("", model.ReferenceSize)
		x := w.colX(w.col)
		w.f.SetX(x)
		w.f.CellFormat(hang, model.ReferenceLine, "["+strconv.Itoa(r.Number)+"]", "", 0, "L", false, 0, "")
		w.f.MultiCell(w.colW-hang, model.ReferenceLine, w.text(r.Text), "", "J", false)
	}
}
