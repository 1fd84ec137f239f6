// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inline handles the small subset of inline HTML that paragraph
// content may carry (bold, italic, underline, super/subscript), and the
// Markdown used in paper project files.
package inline

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	"github.com/pdiddy/ieee-docgen/internal/sanitize"
)

// Vertical alignments for a Run.
const (
	Superscript = "superscript"
	Subscript   = "subscript"
)

// Run is a span of text with uniform formatting.
type Run struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	VertAlign string
}

func (r Run) sameFormat(o Run) bool {
	return r.Bold == o.Bold && r.Italic == o.Italic &&
		r.Underline == o.Underline && r.VertAlign == o.VertAlign
}

// Parse splits inline HTML into formatted runs. Unknown tags are dropped
// but their text is kept; entities are decoded and text is sanitized.
// Adjacent runs with identical formatting are merged.
func Parse(s string) []Run {
	var (
		runs                    []Run
		buf                     strings.Builder
		bold, italic, underline int
		sup, sub                int
	)

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		r := Run{
			Text:      sanitize.Text(buf.String()),
			Bold:      bold > 0,
			Italic:    italic > 0,
			Underline: underline > 0,
		}
		switch {
		case sup > 0:
			r.VertAlign = Superscript
		case sub > 0:
			r.VertAlign = Subscript
		}
		buf.Reset()
		if r.Text == "" {
			return
		}
		if n := len(runs); n > 0 && runs[n-1].sameFormat(r) {
			runs[n-1].Text += r.Text
			return
		}
		runs = append(runs, r)
	}

	dec := func(n *int) {
		if *n > 0 {
			*n--
		}
	}

	z := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			flush()
			return runs
		case html.TextToken:
			buf.Write(z.Text())
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				buf.WriteByte('\n')
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			flush()
			switch string(name) {
			case "b", "strong":
				bold++
			case "i", "em":
				italic++
			case "u":
				underline++
			case "sup":
				sup++
			case "sub":
				sub++
			case "br":
				buf.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			flush()
			switch string(name) {
			case "b", "strong":
				dec(&bold)
			case "i", "em":
				dec(&italic)
			case "u":
				dec(&underline)
			case "sup":
				dec(&sup)
			case "sub":
				dec(&sub)
			}
		}
	}
}

// PlainText returns the concatenated text of the runs in s.
func PlainText(s string) string {
	var b strings.Builder
	for _, r := range Parse(s) {
		b.WriteString(r.Text)
	}
	return b.String()
}

// JoinRuns concatenates run text.
func JoinRuns(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

var policy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "sup", "sub", "br")
	return p
}()

// SafeHTML strips every tag except the inline formatting ones and
// escapes the rest, so the result can be embedded in an HTML document.
func SafeHTML(s string) string {
	return policy.Sanitize(sanitize.Text(s))
}

// FromMarkdown renders a single Markdown paragraph to inline HTML.
// Raw HTML in the source is not passed through.
func FromMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	out := strings.TrimSpace(buf.String())
	if strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") &&
		strings.Count(out, "<p>") == 1 {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return out, nil
}
