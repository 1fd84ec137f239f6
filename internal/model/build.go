// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/ieee-docgen/internal/inline"
	"github.com/pdiddy/ieee-docgen/internal/latex"
	"github.com/pdiddy/ieee-docgen/internal/sanitize"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// ErrTitleRequired is returned when the request has no title.
var ErrTitleRequired = errors.New("title is required")

// UntitledTitle replaces an empty title when the builder allows it.
const UntitledTitle = "Untitled Document"

// Builder turns requests into Documents.
type Builder struct {
	// AllowUntitled substitutes UntitledTitle for an empty title
	// instead of failing.
	AllowUntitled bool
}

// Build maps req onto an IEEE Document using the default Builder.
func Build(req *types.DocumentRequest) (*Document, error) {
	return Builder{}.Build(req)
}

// Build maps req onto an IEEE Document.
func (b Builder) Build(req *types.DocumentRequest) (*Document, error) {
	if req == nil {
		return nil, ErrTitleRequired
	}
	title := strings.TrimSpace(sanitize.Text(req.Title))
	if title == "" {
		if !b.AllowUntitled {
			return nil, ErrTitleRequired
		}
		title = UntitledTitle
	}

	doc := &Document{
		Title:      title,
		AuthorRows: buildAuthors(req.Authors),
		Abstract:   strings.TrimSpace(sanitize.Text(req.Abstract)),
		Keywords:   strings.TrimSpace(sanitize.Text(req.Keywords)),
		References: buildReferences(req.References),
		Page:       DefaultPage(),
	}

	sections := mergeStandalone(req)
	for i, sec := range sections {
		doc.Sections = append(doc.Sections, buildSection(sec, i+1))
	}
	return doc, nil
}

func buildAuthors(authors []types.Author) []AuthorRow {
	var resolved []Author
	for _, a := range authors {
		name := strings.TrimSpace(sanitize.Text(a.Name))
		if name == "" {
			continue
		}
		au := Author{Name: name}
		for _, f := range a.AffiliationFields() {
			if f = strings.TrimSpace(sanitize.Text(f)); f != "" {
				au.Fields = append(au.Fields, AuthorField{Kind: FieldAffiliation, Text: f})
			}
		}
		if len(au.Fields) == 0 && a.Affiliation != "" {
			for _, line := range strings.Split(a.Affiliation, "\n") {
				if line = strings.TrimSpace(sanitize.Text(line)); line != "" {
					au.Fields = append(au.Fields, AuthorField{Kind: FieldAffiliation, Text: line})
				}
			}
		}
		if email := strings.TrimSpace(sanitize.Text(a.Email)); email != "" {
			au.Fields = append(au.Fields, AuthorField{Kind: FieldEmail, Text: email})
		}
		resolved = append(resolved, au)
	}

	var rows []AuthorRow
	for start := 0; start < len(resolved); start += AuthorsPerRow {
		end := min(start+AuthorsPerRow, len(resolved))
		rows = append(rows, AuthorRow{Authors: resolved[start:end]})
	}
	return rows
}

func buildReferences(refs []types.Reference) []Reference {
	var out []Reference
	for _, r := range refs {
		text := strings.TrimSpace(sanitize.Text(r.Text))
		if text == "" {
			continue
		}
		out = append(out, Reference{Number: len(out) + 1, Text: text})
	}
	return out
}

// mergeStandalone returns the request sections ordered by SortKey, with
// standalone tables and figures appended to the first one.
func mergeStandalone(req *types.DocumentRequest) []types.Section {
	sections := make([]types.Section, len(req.Sections))
	copy(sections, req.Sections)
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].SortKey() < sections[j].SortKey()
	})

	if len(req.Tables) == 0 && len(req.Figures) == 0 {
		return sections
	}
	if len(sections) == 0 {
		sections = append(sections, types.Section{Title: "Content"})
	}

	first := sections[0]
	blocks := append([]types.ContentBlock(nil), first.Blocks()...)
	for _, t := range req.Tables {
		t.TableType = t.TableKind()
		t.Type = types.BlockTable
		blocks = append(blocks, t)
	}
	for _, f := range req.Figures {
		f.Type = types.BlockImage
		blocks = append(blocks, f)
	}
	first.ContentBlocks = blocks
	first.ContentBlocksSnake = nil
	sections[0] = first
	return sections
}

// sectionBuilder carries the per-section counters.
type sectionBuilder struct {
	number  int
	tables  int
	figures int
	blocks  []Block
}

func buildSection(sec types.Section, number int) Section {
	sb := &sectionBuilder{number: number}

	blocks := sortedBlocks(sec.Blocks())
	for _, cb := range blocks {
		sb.addBlock(cb, 0)
	}
	if len(blocks) == 0 {
		if content := strings.TrimSpace(sec.Content); content != "" {
			sb.blocks = append(sb.blocks, &Paragraph{Runs: inline.Parse(content)})
		}
	}

	sb.addSubsections(sec.Subsections)

	if number == 1 {
		for _, b := range sb.blocks {
			if p, ok := b.(*Paragraph); ok {
				p.Lead = true
				break
			}
		}
	}

	return Section{
		Number: number,
		Title:  strings.TrimSpace(sanitize.Text(sec.Title)),
		Blocks: sb.blocks,
	}
}

func sortedBlocks(in []types.ContentBlock) []types.ContentBlock {
	out := make([]types.ContentBlock, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortKey() < out[j].SortKey()
	})
	return out
}

// addBlock appends the model blocks for cb. depth is the subsection level
// the block belongs to; zero means section body.
func (sb *sectionBuilder) addBlock(cb types.ContentBlock, depth int) {
	indent := indentFor(depth)

	switch cb.Type {
	case types.BlockText:
		if cb.Data != "" && cb.Caption != "" {
			sb.addFigure(cb)
			return
		}
		if strings.TrimSpace(cb.Content) == "" {
			return
		}
		sb.blocks = append(sb.blocks, &Paragraph{Runs: inline.Parse(cb.Content), IndentIn: indent})

	case types.BlockTable:
		sb.addTable(cb)

	case types.BlockImage:
		if cb.Data == "" || strings.TrimSpace(cb.Caption) == "" {
			return
		}
		sb.addFigure(cb)

	case types.BlockEquation:
		content := strings.TrimSpace(sanitize.Text(cb.Content))
		if content == "" {
			return
		}
		if latex.IsLaTeX(content) {
			content = latex.ToUnicode(content)
		}
		sb.blocks = append(sb.blocks, &Equation{
			Number: strings.TrimSpace(cb.EquationNumber.String()),
			Text:   content,
		})

	case types.BlockSubsection:
		if title := strings.TrimSpace(sanitize.Text(cb.Title)); title != "" {
			sb.blocks = append(sb.blocks, &Heading{Title: title, Level: 3})
		}
		if strings.TrimSpace(cb.Content) != "" {
			sb.blocks = append(sb.blocks, &Paragraph{Runs: inline.Parse(cb.Content), IndentIn: indent})
		}
	}
}

func (sb *sectionBuilder) addTable(cb types.ContentBlock) {
	kind := cb.TableKind()
	next := sb.tables + 1
	number := fmt.Sprintf("%d.%d", sb.number, next)
	caption := tableCaption(cb, next)

	switch kind {
	case types.TableImage:
		if cb.Data == "" {
			return
		}
		sb.tables = next
		img, err := decodeImage(cb.Data, cb.Size)
		if err != nil {
			sb.blocks = append(sb.blocks, &Placeholder{Text: placeholderText(caption)})
			return
		}
		img.Kind = ImageTable
		img.Number = number
		img.Caption = caption
		sb.blocks = append(sb.blocks, img)

	case types.TableLatex:
		code := strings.TrimSpace(sanitize.Text(cb.LatexCode))
		if code == "" {
			return
		}
		sb.tables = next
		sb.blocks = append(sb.blocks, &LatexTable{Number: number, Caption: caption, Code: code})

	default:
		headers, rows := tableCells(cb)
		if len(headers) == 0 || len(rows) == 0 {
			return
		}
		sb.tables = next
		sb.blocks = append(sb.blocks, &Table{Number: number, Caption: caption, Headers: headers, Rows: rows})
	}
}

func (sb *sectionBuilder) addFigure(cb types.ContentBlock) {
	sb.figures++
	number := fmt.Sprintf("%d.%d", sb.number, sb.figures)
	caption := strings.TrimSpace(sanitize.Text(cb.Caption))

	img, err := decodeImage(cb.Data, cb.Size)
	if err != nil {
		sb.blocks = append(sb.blocks, &Placeholder{Text: placeholderText(caption)})
		return
	}
	img.Kind = ImageFigure
	img.Number = number
	img.Caption = caption
	sb.blocks = append(sb.blocks, img)
}

func tableCaption(cb types.ContentBlock, n int) string {
	for _, c := range []string{cb.Caption, cb.TableName, cb.Name} {
		if c = strings.TrimSpace(sanitize.Text(c)); c != "" {
			return c
		}
	}
	return "Data Table " + strconv.Itoa(n)
}

// tableCells returns sanitized headers and rows, with every row padded or
// trimmed to the header count. Blank headers become "Column N".
func tableCells(cb types.ContentBlock) ([]string, [][]string) {
	headers := make([]string, len(cb.Headers))
	for i, h := range cb.Headers {
		headers[i] = strings.TrimSpace(sanitize.Text(h.String()))
		if headers[i] == "" {
			headers[i] = fmt.Sprintf("Column %d", i+1)
		}
	}
	if len(headers) == 0 {
		return nil, nil
	}

	var rows [][]string
	for _, raw := range cb.DataRows() {
		row := make([]string, len(headers))
		for i := range row {
			if i < len(raw) {
				row[i] = strings.TrimSpace(sanitize.Text(raw[i].String()))
			}
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func placeholderText(caption string) string {
	if caption == "" {
		caption = "Figure"
	}
	return "[Image: " + caption + "]"
}

func indentFor(depth int) float64 {
	if depth <= 1 {
		return 0
	}
	return SubsectionIndent * float64(depth-1)
}

func headingText(number int, title string) string {
	return strconv.Itoa(number) + ". " + strings.ToUpper(title)
}

func tableLabel(number, caption string) string {
	return "TABLE " + number + ": " + strings.ToUpper(caption)
}

func figureLabel(number, caption string) string {
	return "FIG. " + number + ": " + strings.ToUpper(caption)
}
