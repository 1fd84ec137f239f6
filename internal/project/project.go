// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package project loads paper projects (a directory of paper.yaml,
// numbered Markdown section files and references.yaml) into document
// requests.
package project

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pdiddy/ieee-docgen/internal/inline"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

const (
	paperFile      = "paper.yaml"
	referencesFile = "references.yaml"
)

// sectionFilePattern matches numbered section files: NN-slug.md.
var sectionFilePattern = regexp.MustCompile(`^(\d{2})-(.+)\.md$`)

// citationPattern matches inline citations: [Key] or [Key1; Key2].
var citationPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// imagePattern matches a paragraph holding a single Markdown image.
var imagePattern = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)\s]+)\)$`)

// LoadMeta reads paper.yaml from a paper project directory.
func LoadMeta(dir string) (*types.PaperMeta, error) {
	data, err := os.ReadFile(filepath.Join(dir, paperFile))
	if err != nil {
		return nil, fmt.Errorf("reading paper metadata: %w", err)
	}
	var meta types.PaperMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing paper metadata: %w", err)
	}
	return &meta, nil
}

// LoadReferences reads references.yaml. A project without one has no
// references.
func LoadReferences(dir string) (*types.ReferencesFile, error) {
	data, err := os.ReadFile(filepath.Join(dir, referencesFile))
	if errors.Is(err, os.ErrNotExist) {
		return &types.ReferencesFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading references: %w", err)
	}
	var refs types.ReferencesFile
	if err := yaml.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("parsing references: %w", err)
	}
	return &refs, nil
}

// SectionFiles returns the ordered list of numbered section file paths
// (NN-*.md) in a paper project directory.
func SectionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading project directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if sectionFilePattern.MatchString(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Load reads the project in dir into a document request. Citation keys
// are rewritten to numeric citations in order of first appearance, and
// the reference list follows that order. Uncited references come last.
func Load(dir string) (*types.DocumentRequest, error) {
	meta, err := LoadMeta(dir)
	if err != nil {
		return nil, err
	}
	refs, err := LoadReferences(dir)
	if err != nil {
		return nil, err
	}
	files, err := SectionFiles(dir)
	if err != nil {
		return nil, err
	}

	req := &types.DocumentRequest{
		Title:    strings.TrimSpace(meta.Title),
		Authors:  meta.Authors,
		Abstract: strings.TrimSpace(meta.Abstract),
		Keywords: meta.Keywords.String(),
	}

	c := newCiter(refs)
	p := &parser{dir: dir, cite: c}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(f), err)
		}
		sec, err := p.section(filepath.Base(f), string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		req.Sections = append(req.Sections, sec)
	}

	for _, r := range c.ordered() {
		req.References = append(req.References, types.Reference{Text: FormatReference(r)})
	}
	return req, nil
}

// ValidateCitations scans section files for inline citation keys and
// returns any keys that have no entry in references.yaml.
func ValidateCitations(dir string) ([]string, error) {
	refs, err := LoadReferences(dir)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool)
	for _, r := range refs.Papers {
		known[r.CitationKey] = true
	}

	files, err := SectionFiles(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(f), err)
		}
		for _, key := range extractCitationKeys(string(data)) {
			if !known[key] {
				seen[key] = true
			}
		}
	}

	var missing []string
	for key := range seen {
		missing = append(missing, key)
	}
	sort.Strings(missing)
	return missing, nil
}

// parser turns section files into sections. Equation numbers run across
// the whole paper.
type parser struct {
	dir       string
	cite      *citer
	equations int
}

func (p *parser) section(name, text string) (types.Section, error) {
	sec := types.Section{Title: slugTitle(name)}
	titled := false

	var (
		para []string
		sub  *types.Subsection
		subs []types.Subsection
		// id of the latest subsection at each level, for parent links.
		lastID = map[int]string{}
	)

	addBlock := func(cb types.ContentBlock) {
		if sub != nil {
			sub.ContentBlocks = append(sub.ContentBlocks, cb)
			return
		}
		sec.ContentBlocks = append(sec.ContentBlocks, cb)
	}
	flush := func() error {
		if len(para) == 0 {
			return nil
		}
		cb, err := p.block(strings.Join(para, " "))
		para = para[:0]
		if err != nil {
			return err
		}
		if cb != nil {
			addBlock(*cb)
		}
		return nil
	}
	closeSub := func() {
		if sub != nil {
			subs = append(subs, *sub)
			sub = nil
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		level, heading := headingLevel(trimmed)
		switch {
		case trimmed == "":
			if err := flush(); err != nil {
				return sec, err
			}
		case level == 1 && !titled:
			if err := flush(); err != nil {
				return sec, err
			}
			sec.Title = heading
			titled = true
		case level >= 1:
			if err := flush(); err != nil {
				return sec, err
			}
			closeSub()
			depth := max(level-1, 1)
			id := fmt.Sprintf("%s-%d", strings.TrimSuffix(name, ".md"), len(subs)+1)
			sub = &types.Subsection{ID: id, Level: depth, Title: p.cite.rewrite(heading)}
			if depth > 1 {
				sub.ParentID = lastID[depth-1]
			}
			lastID[depth] = id
		default:
			para = append(para, trimmed)
		}
	}
	if err := flush(); err != nil {
		return sec, err
	}
	closeSub()
	sec.Subsections = subs
	return sec, nil
}

// block converts one Markdown paragraph to a content block.
func (p *parser) block(text string) (*types.ContentBlock, error) {
	if m := imagePattern.FindStringSubmatch(text); m != nil {
		return p.image(m[1], m[2])
	}
	if strings.HasPrefix(text, "$$") && strings.HasSuffix(text, "$$") && len(text) > 4 {
		p.equations++
		return &types.ContentBlock{
			Type:           types.BlockEquation,
			Content:        strings.TrimSpace(text[2 : len(text)-2]),
			EquationNumber: types.Cell(fmt.Sprint(p.equations)),
		}, nil
	}

	html, err := inline.FromMarkdown(p.cite.rewrite(text))
	if err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	if strings.TrimSpace(html) == "" {
		return nil, nil
	}
	return &types.ContentBlock{Type: types.BlockText, Content: html}, nil
}

func (p *parser) image(caption, path string) (*types.ContentBlock, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading figure: %w", err)
	}
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if caption = strings.TrimSpace(caption); caption == "" {
		caption = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &types.ContentBlock{
		Type:         types.BlockImage,
		Caption:      p.cite.rewrite(caption),
		Data:         base64.StdEncoding.EncodeToString(data),
		OriginalName: filepath.Base(path),
		MimeType:     mt,
		Size:         "medium",
	}, nil
}

// headingLevel returns the ATX heading level of line and its text, or
// zero when line is not a heading.
func headingLevel(line string) (int, string) {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n == len(line) || line[n] != ' ' {
		return 0, ""
	}
	return n, strings.TrimSpace(line[n:])
}

// slugTitle derives a section title from an NN-slug.md file name.
func slugTitle(name string) string {
	m := sectionFilePattern.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	words := strings.NewReplacer("-", " ", "_", " ").Replace(m[2])
	return cases.Title(language.English).String(words)
}

// extractCitationKeys finds all citation keys in text. It handles both
// single citations [Key] and multi-citations [Key1; Key2].
func extractCitationKeys(text string) []string {
	var keys []string
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		for _, p := range strings.Split(m[1], ";") {
			key := strings.TrimSpace(p)
			if key != "" && isCitationKey(key) {
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// isCitationKey checks whether a string looks like a citation key
// (AuthorYear). Markdown link text and other bracket content is rejected.
func isCitationKey(s string) bool {
	hasLetter := false
	hasDigit := false
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			hasLetter = true
		case c >= '0' && c <= '9':
			hasDigit = true
		case c == '-', c == '_':
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}
