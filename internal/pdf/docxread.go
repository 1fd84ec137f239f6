// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nguyenthenguyen/docx"

	"github.com/pdiddy/ieee-docgen/internal/inline"
	"github.com/pdiddy/ieee-docgen/internal/model"
)

// WordprocessingML as far as the converter needs it. Elements are
// matched by local name so the w:, wp:, a: and pic: prefixes can vary.

type xVal struct {
	Val string `xml:"val,attr"`
}

// on reports whether a toggle property such as w:b is set.
func on(v *xVal) bool {
	if v == nil {
		return false
	}
	switch v.Val {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

type xRunProps struct {
	Bold      *xVal `xml:"b"`
	Italic    *xVal `xml:"i"`
	Underline *xVal `xml:"u"`
	VertAlign *xVal `xml:"vertAlign"`
	Size      *xVal `xml:"sz"`
	Fonts     *struct {
		ASCII string `xml:"ascii,attr"`
	} `xml:"rFonts"`
}

type xExtent struct {
	CX int64 `xml:"cx,attr"`
	CY int64 `xml:"cy,attr"`
}

type xPicture struct {
	Extent xExtent `xml:"extent"`
	Blip   struct {
		Embed string `xml:"embed,attr"`
	} `xml:"graphic>graphicData>pic>blipFill>blip"`
}

// xItem is any child of a paragraph or run, kept in document order.
type xItem struct {
	XMLName xml.Name
	Text    string    `xml:",chardata"`
	Props   xRunProps `xml:"rPr"`
	Items   []xItem   `xml:",any"`
	Inline  *xPicture `xml:"inline"`
	Anchor  *xPicture `xml:"anchor"`
}

type xParagraph struct {
	Props struct {
		Jc *xVal `xml:"jc"`
	} `xml:"pPr"`
	Items []xItem `xml:",any"`
}

type xTable struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []xParagraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

type xRelationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// picRef is a picture found in a paragraph.
type picRef struct {
	relID  string
	cx, cy int64
}

// para is a decoded paragraph.
type para struct {
	runs    []inline.Run
	text    string
	align   string
	bold    bool // every non-space run is bold
	italic  bool // every non-space run is italic
	mono    bool
	size    int // largest run size in half points
	picture []picRef
}

func (p *xParagraph) decode() para {
	out := para{bold: true, italic: true}
	if p.Props.Jc != nil {
		out.align = p.Props.Jc.Val
	}
	var walk func(items []xItem)
	walk = func(items []xItem) {
		for _, it := range items {
			switch it.XMLName.Local {
			case "r":
				out.addRun(it)
			case "hyperlink", "ins", "smartTag", "sdt", "sdtContent", "fldSimple":
				walk(it.Items)
			}
		}
	}
	walk(p.Items)

	var b strings.Builder
	for _, r := range out.runs {
		b.WriteString(r.Text)
	}
	out.text = strings.TrimSpace(b.String())
	if out.text == "" {
		out.bold, out.italic = false, false
	}
	return out
}

func (p *para) addRun(r xItem) {
	run := inline.Run{
		Bold:      on(r.Props.Bold),
		Italic:    on(r.Props.Italic),
		Underline: on(r.Props.Underline),
	}
	if r.Props.VertAlign != nil {
		run.VertAlign = r.Props.VertAlign.Val
	}
	if r.Props.Size != nil {
		if hp, err := strconv.Atoi(r.Props.Size.Val); err == nil && strings.TrimSpace(runText(r)) != "" {
			p.size = max(p.size, hp)
		}
	}
	if r.Props.Fonts != nil && strings.Contains(strings.ToLower(r.Props.Fonts.ASCII), "courier") {
		p.mono = true
	}

	for _, it := range r.Items {
		if it.XMLName.Local != "drawing" {
			continue
		}
		for _, pic := range []*xPicture{it.Inline, it.Anchor} {
			if pic != nil && pic.Blip.Embed != "" {
				p.picture = append(p.picture, picRef{relID: pic.Blip.Embed, cx: pic.Extent.CX, cy: pic.Extent.CY})
			}
		}
	}
	run.Text = runText(r)
	if run.Text == "" {
		return
	}
	if strings.TrimSpace(run.Text) != "" {
		p.bold = p.bold && run.Bold
		p.italic = p.italic && run.Italic
	}
	if n := len(p.runs); n > 0 && sameFormat(p.runs[n-1], run) {
		p.runs[n-1].Text += run.Text
		return
	}
	p.runs = append(p.runs, run)
}

func runText(r xItem) string {
	var b strings.Builder
	for _, it := range r.Items {
		switch it.XMLName.Local {
		case "t":
			b.WriteString(it.Text)
		case "br", "cr":
			b.WriteString("\n")
		case "tab":
			b.WriteString("\t")
		}
	}
	return b.String()
}

func sameFormat(a, b inline.Run) bool {
	return a.Bold == b.Bold && a.Italic == b.Italic && a.Underline == b.Underline && a.VertAlign == b.VertAlign
}

// ReadDOCX decodes a Word package into an IEEE document. Structure is
// recovered from the text and run formatting. Before the first section,
// the title-sized (or else first) paragraph is the title, tables are the
// author grid, and "Abstract—" and "Index Terms—" paragraphs fill those
// fields. Numbered or centered bold paragraphs start sections, and "[n]"
// lines after the references heading become references.
//
// A package whose entries unpack to more than maxUnpacked bytes is
// rejected with ErrDOCXTooLarge; zero or less means DefaultMaxUnpacked.
func ReadDOCX(data []byte, maxUnpacked int64) (*model.Document, error) {
	if maxUnpacked <= 0 {
		maxUnpacked = DefaultMaxUnpacked
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDOCX, err)
	}
	// archive/zip fails any entry that inflates past its declared size, so
	// the declared sizes bound what the docx reader below will inflate.
	var total uint64
	for _, f := range zr.File {
		total += f.UncompressedSize64
	}
	if total > uint64(maxUnpacked) {
		return nil, fmt.Errorf("%w: %d bytes unpacked, limit %d", ErrDOCXTooLarge, total, maxUnpacked)
	}

	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDOCX, err)
	}
	defer r.Close()
	content := r.Editable().GetContent()

	media, err := readMedia(zr, maxUnpacked)
	if err != nil {
		return nil, err
	}

	c := newClassifier(media)
	if err := c.decodeBody(content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDOCX, err)
	}
	return c.finish(), nil
}

// readMedia returns the images of the package keyed by relationship ID.
func readMedia(zr *zip.Reader, limit int64) (map[string][]byte, error) {
	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}
	relsFile, ok := files["word/_rels/document.xml.rels"]
	if !ok {
		return map[string][]byte{}, nil
	}
	raw, err := readZipFile(relsFile, limit)
	if err != nil {
		return nil, err
	}
	var rels xRelationships
	if err := xml.Unmarshal(raw, &rels); err != nil {
		return nil, fmt.Errorf("%w: relationships: %v", ErrInvalidDOCX, err)
	}

	media := map[string][]byte{}
	for _, rel := range rels.Items {
		if !strings.HasPrefix(rel.Target, "media/") {
			continue
		}
		f, ok := files[path.Join("word", rel.Target)]
		if !ok {
			continue
		}
		b, err := readZipFile(f, limit)
		if err != nil {
			return nil, err
		}
		media[rel.ID] = b
	}
	return media, nil
}

// readZipFile reads f, failing once more than limit bytes come out.
func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidDOCX, f.Name, err)
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrDOCXTooLarge, f.Name)
	}
	return b, nil
}

var (
	sectionHeadingRe = regexp.MustCompile(`^(\d+|[IVXLC]+)\.\s+(\S.*)$`)
	subHeadingRe     = regexp.MustCompile(`^(\d+(?:\.\d+)+)\s+(\S.*)$`)
	tableCaptionRe   = regexp.MustCompile(`^TABLE\s+([\dIVXLC.]+)\s*[:.]\s*(.*)$`)
	figureCaptionRe  = regexp.MustCompile(`^FIG(?:URE)?\.?\s+([\d.]+)\s*[:.]\s*(.*)$`)
	referenceRe      = regexp.MustCompile(`^\[(\d+)\]\s*(.*)$`)
	equationRe       = regexp.MustCompile(`^\(([^)\s]+)\)\s+(.+)$`)
	prefixDashes     = "—–-:. "
	labelDelims      = "—–-:."
)

const latexMarker = "LaTeX Table Code:"

// titleHalfPts is the smallest run size, in half points, taken as the
// title: 20pt, below the 24pt the writer uses.
const titleHalfPts = 40

// classifier rebuilds document structure from decoded paragraphs and tables.
type classifier struct {
	media map[string][]byte
	doc   *model.Document
	cur   *model.Section

	inRefs       bool
	titleSized   bool
	tableCaption *caption
	lastFigure   *model.Image
	tables       int
	figures      int
}

type caption struct {
	number string
	text   string
}

func newClassifier(media map[string][]byte) *classifier {
	return &classifier{
		media: media,
		doc:   &model.Document{Page: model.DefaultPage()},
	}
}

func (c *classifier) decodeBody(content string) error {
	dec := xml.NewDecoder(strings.NewReader(content))
	inBody := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !inBody {
				inBody = t.Name.Local == "body"
				continue
			}
			switch t.Name.Local {
			case "p":
				var p xParagraph
				if err := dec.DecodeElement(&p, &t); err != nil {
					return err
				}
				c.paragraph(p.decode())
			case "tbl":
				var tbl xTable
				if err := dec.DecodeElement(&tbl, &t); err != nil {
					return err
				}
				c.table(tbl)
			default:
				if err := dec.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "body" {
				return nil
			}
		}
	}
}

func (c *classifier) finish() *model.Document {
	if c.doc.Title == "" {
		c.doc.Title = model.UntitledTitle
	}
	return c.doc
}

// inHeader reports whether the title block is still open: no section,
// abstract or keywords yet.
func (c *classifier) inHeader() bool {
	return c.cur == nil && c.doc.Abstract == "" && c.doc.Keywords == ""
}

// inFrontMatter reports whether the first section has not started.
// Abstract and keywords are only recognized here.
func (c *classifier) inFrontMatter() bool {
	return c.cur == nil && !c.inRefs
}

func (c *classifier) section() *model.Section {
	if c.cur == nil {
		c.startSection("")
	}
	return c.cur
}

func (c *classifier) startSection(title string) {
	c.doc.Sections = append(c.doc.Sections, model.Section{
		Number: len(c.doc.Sections) + 1,
		Title:  title,
	})
	c.cur = &c.doc.Sections[len(c.doc.Sections)-1]
	c.tables, c.figures = 0, 0
	c.lastFigure = nil
}

func (c *classifier) add(b model.Block) {
	s := c.section()
	s.Blocks = append(s.Blocks, b)
}

func (c *classifier) paragraph(p para) {
	for _, pic := range p.picture {
		c.picture(pic)
	}
	text := p.text
	if text == "" {
		return
	}
	lower := strings.ToLower(text)

	switch {
	case c.inHeader() && c.doc.Title == "" && !isFrontLabel(lower):
		c.doc.Title = text
		c.titleSized = p.size >= titleHalfPts
		return

	case c.inHeader() && !c.titleSized && p.size >= titleHalfPts:
		// A prelude line was taken for the title; the large run is the title.
		c.doc.Title = text
		c.titleSized = true
		return

	case c.inFrontMatter() && hasPrefixFold(lower, "abstract"):
		c.doc.Abstract = stripPrefix(text, len("abstract"))
		return

	case c.inFrontMatter() && hasPrefixFold(lower, "index terms"):
		c.doc.Keywords = stripPrefix(text, len("index terms"))
		return

	case c.inFrontMatter() && hasPrefixFold(lower, "keywords"):
		c.doc.Keywords = stripPrefix(text, len("keywords"))
		return

	case strings.EqualFold(text, model.ReferencesHead) && (p.bold || p.align == "center"):
		c.inRefs = true
		return
	}

	if c.inRefs {
		if m := referenceRe.FindStringSubmatch(text); m != nil {
			c.doc.References = append(c.doc.References, model.Reference{
				Number: len(c.doc.References) + 1,
				Text:   strings.TrimSpace(m[2]),
			})
		} else if n := len(c.doc.References); n > 0 {
			c.doc.References[n-1].Text += " " + text
		}
		return
	}

	if m := tableCaptionRe.FindStringSubmatch(text); m != nil && (p.bold || p.align == "center") {
		c.tableCaption = &caption{number: strings.TrimSuffix(m[1], "."), text: m[2]}
		return
	}
	if m := figureCaptionRe.FindStringSubmatch(text); m != nil && (p.bold || p.align == "center") {
		if c.lastFigure != nil {
			c.lastFigure.Number = strings.TrimSuffix(m[1], ".")
			c.lastFigure.Caption = m[2]
			c.lastFigure = nil
		}
		return
	}

	if strings.HasPrefix(text, latexMarker) || (p.mono && c.tableCaption != nil) {
		code := strings.TrimSpace(strings.TrimPrefix(text, latexMarker))
		number, capt := c.nextTable()
		c.add(&model.LatexTable{Number: number, Caption: capt, Code: code})
		return
	}

	if p.bold && len(text) < 100 {
		if m := subHeadingRe.FindStringSubmatch(text); m != nil {
			level := strings.Count(m[1], ".") + 1
			c.add(&model.Heading{Number: m[1], Title: m[2], Level: min(level, 6)})
			return
		}
		if m := sectionHeadingRe.FindStringSubmatch(text); m != nil {
			c.startSection(m[2])
			return
		}
		if p.align == "center" && text == strings.ToUpper(text) {
			c.startSection(text)
			return
		}
	}

	if p.align == "center" {
		if p.italic {
			eq := &model.Equation{Text: text}
			if m := equationRe.FindStringSubmatch(text); m != nil {
				eq.Number, eq.Text = m[1], m[2]
			}
			c.add(eq)
			return
		}
		if strings.HasPrefix(text, "[Image:") {
			c.add(&model.Placeholder{Text: text})
			return
		}
	}

	c.add(&model.Paragraph{Runs: trimRuns(p.runs)})
}

func (c *classifier) nextTable() (string, string) {
	c.tables++
	number := strconv.Itoa(c.section().Number) + "." + strconv.Itoa(c.tables)
	text := "Data Table " + strconv.Itoa(c.tables)
	if c.tableCaption != nil {
		if c.tableCaption.number != "" {
			number = c.tableCaption.number
		}
		if c.tableCaption.text != "" {
			text = c.tableCaption.text
		}
		c.tableCaption = nil
	}
	return number, text
}

func (c *classifier) picture(ref picRef) {
	data, ok := c.media[ref.relID]
	if !ok {
		return
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (format != "png" && format != "jpeg" && format != "gif") {
		c.add(&model.Placeholder{Text: "[Image]"})
		return
	}

	img := &model.Image{Data: data, Format: format, PixelsW: cfg.Width, PixelsH: cfg.Height}
	if ref.cx > 0 && ref.cy > 0 {
		img.WidthIn = float64(ref.cx) / 914400
		img.HeightIn = float64(ref.cy) / 914400
	} else {
		img.WidthIn, img.HeightIn = model.FigureSize(model.DefaultFigureSize, cfg.Width, cfg.Height)
	}

	if c.tableCaption != nil {
		img.Kind = model.ImageTable
		img.Number, img.Caption = c.nextTable()
		c.add(img)
		return
	}
	c.figures++
	img.Kind = model.ImageFigure
	img.Number = strconv.Itoa(c.section().Number) + "." + strconv.Itoa(c.figures)
	img.Caption = "Figure"
	c.add(img)
	c.lastFigure = img
}

func (c *classifier) table(t xTable) {
	var rows [][]string
	var cells [][][]para
	for _, row := range t.Rows {
		var texts []string
		var paras [][]para
		for _, cell := range row.Cells {
			var ps []para
			var parts []string
			for _, xp := range cell.Paragraphs {
				p := xp.decode()
				if p.text == "" {
					continue
				}
				ps = append(ps, p)
				parts = append(parts, p.text)
			}
			paras = append(paras, ps)
			texts = append(texts, strings.Join(parts, "\n"))
		}
		rows = append(rows, texts)
		cells = append(cells, paras)
	}
	if len(rows) == 0 {
		return
	}

	if c.inHeader() {
		c.authorTable(cells)
		return
	}

	headers := rows[0]
	body := rows[1:]
	for i, r := range body {
		fixed := make([]string, len(headers))
		copy(fixed, r)
		body[i] = fixed
	}
	number, capt := c.nextTable()
	c.add(&model.Table{Number: number, Caption: capt, Headers: headers, Rows: body})
}

// authorTable reads a borderless author grid: the first paragraph in
// each cell is the name, lines holding "@" are emails.
func (c *classifier) authorTable(rows [][][]para) {
	for _, row := range rows {
		var ar model.AuthorRow
		for _, cell := range row {
			if len(cell) == 0 {
				continue
			}
			a := model.Author{Name: cell[0].text}
			for _, p := range cell[1:] {
				kind := model.FieldAffiliation
				if strings.Contains(p.text, "@") {
					kind = model.FieldEmail
				}
				a.Fields = append(a.Fields, model.AuthorField{Kind: kind, Text: p.text})
			}
			ar.Authors = append(ar.Authors, a)
		}
		if len(ar.Authors) > 0 {
			c.doc.AuthorRows = append(c.doc.AuthorRows, ar)
		}
	}
}

// hasPrefixFold reports whether lower is a labelled paragraph: prefix
// followed by a dash, colon or period, or nothing at all. "abstract
// syntax" is not labelled.
func hasPrefixFold(lower, prefix string) bool {
	if !strings.HasPrefix(lower, prefix) {
		return false
	}
	rest := strings.TrimLeft(lower[len(prefix):], " ")
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return strings.ContainsRune(labelDelims, r)
}

func isFrontLabel(lower string) bool {
	return hasPrefixFold(lower, "abstract") || hasPrefixFold(lower, "index terms") || hasPrefixFold(lower, "keywords")
}

func stripPrefix(text string, n int) string {
	return strings.TrimLeft(text[n:], prefixDashes)
}

func trimRuns(runs []inline.Run) []inline.Run {
	out := append([]inline.Run(nil), runs...)
	if len(out) == 0 {
		return out
	}
	out[0].Text = strings.TrimLeft(out[0].Text, " \t")
	last := len(out) - 1
	out[last].Text = strings.TrimRight(out[last].Text, " \t")
	return out
}
