// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package project

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// maxListedAuthors is the IEEE cutoff after which only the first author
// is named, followed by "et al."
const maxListedAuthors = 6

// citer numbers references in order of first citation.
type citer struct {
	refs    []types.ReferenceEntry
	byKey   map[string]int // index into refs
	numbers map[string]int
	order   []string
}

func newCiter(refs *types.ReferencesFile) *citer {
	c := &citer{
		refs:    refs.Papers,
		byKey:   make(map[string]int, len(refs.Papers)),
		numbers: make(map[string]int),
	}
	for i, r := range refs.Papers {
		if _, dup := c.byKey[r.CitationKey]; !dup {
			c.byKey[r.CitationKey] = i
		}
	}
	return c
}

func (c *citer) number(key string) (int, bool) {
	if _, ok := c.byKey[key]; !ok {
		return 0, false
	}
	if n, ok := c.numbers[key]; ok {
		return n, true
	}
	c.order = append(c.order, key)
	n := len(c.order)
	c.numbers[key] = n
	return n, true
}

// rewrite replaces known citation keys in text with numeric citations.
// [A2020; B2021] becomes [1], [2]. Unknown keys and Markdown link or
// image text are left alone.
func (c *citer) rewrite(text string) string {
	var b strings.Builder
	last := 0
	for _, m := range citationPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		if (start > 0 && text[start-1] == '!') || (end < len(text) && text[end] == '(') {
			continue
		}
		keys := strings.Split(text[m[2]:m[3]], ";")
		valid := true
		for i, k := range keys {
			keys[i] = strings.TrimSpace(k)
			valid = valid && isCitationKey(keys[i])
		}
		if !valid {
			continue
		}
		cites := make([]string, len(keys))
		for i, key := range keys {
			if n, ok := c.number(key); ok {
				cites[i] = "[" + strconv.Itoa(n) + "]"
			} else {
				cites[i] = "[" + key + "]"
			}
		}
		b.WriteString(text[last:start])
		b.WriteString(strings.Join(cites, ", "))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// ordered returns cited references in citation order followed by the
// uncited ones in file order.
func (c *citer) ordered() []types.ReferenceEntry {
	out := make([]types.ReferenceEntry, 0, len(c.refs))
	cited := make(map[int]bool, len(c.order))
	for _, key := range c.order {
		i := c.byKey[key]
		cited[i] = true
		out = append(out, c.refs[i])
	}
	for i, r := range c.refs {
		if !cited[i] {
			out = append(out, r)
		}
	}
	return out
}

// FormatReference renders r in IEEE style:
//
//	A. B. Surname, C. Other, and D. Last, "Title," Venue, Year.
func FormatReference(r types.ReferenceEntry) string {
	title := strings.TrimSpace(r.Title)
	venue := strings.TrimSpace(r.Venue)
	var tail []string
	if venue != "" {
		tail = append(tail, venue)
	}
	if r.Year > 0 {
		tail = append(tail, strconv.Itoa(r.Year))
	}

	var b strings.Builder
	b.WriteString(formatAuthors(r.Authors))
	if title != "" {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(`"` + title)
		if len(tail) > 0 && !strings.ContainsAny(title[len(title)-1:], "?!") {
			b.WriteString(",")
		}
		b.WriteString(`"`)
	}
	if len(tail) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(strings.Join(tail, ", "))
	}
	out := b.String()
	if out != "" && !strings.HasSuffix(out, ".") {
		out += "."
	}
	return out
}

func formatAuthors(authors []string) string {
	var names []string
	for _, a := range authors {
		if n := abbreviate(a); n != "" {
			names = append(names, n)
		}
	}
	switch {
	case len(names) == 0:
		return ""
	case len(names) > maxListedAuthors:
		return names[0] + " et al."
	case len(names) == 1:
		return names[0]
	case len(names) == 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}

// abbreviate turns "Ada Byron Lovelace" into "A. B. Lovelace". Names
// written "Surname, Given" are reordered first.
func abbreviate(name string) string {
	name = strings.TrimSpace(name)
	if surname, given, ok := strings.Cut(name, ","); ok {
		name = strings.TrimSpace(given) + " " + strings.TrimSpace(surname)
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields[:len(fields)-1] {
		if strings.HasSuffix(f, ".") && len(f) <= 3 {
			b.WriteString(f + " ")
			continue
		}
		r := []rune(f)
		b.WriteString(string(r[0]) + ". ")
	}
	b.WriteString(fields[len(fields)-1])
	return b.String()
}

// GenerateBibTeX produces BibTeX entries for refs.
func GenerateBibTeX(refs *types.ReferencesFile) string {
	var b strings.Builder
	for _, r := range refs.Papers {
		fmt.Fprintf(&b, "@article{%s,\n", r.CitationKey)
		fmt.Fprintf(&b, "  title = {%s},\n", r.Title)
		if len(r.Authors) > 0 {
			fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(r.Authors, " and "))
		}
		if r.Year > 0 {
			fmt.Fprintf(&b, "  year = {%d},\n", r.Year)
		}
		if r.Venue != "" {
			fmt.Fprintf(&b, "  journal = {%s},\n", r.Venue)
		}
		fmt.Fprintf(&b, "}\n\n")
	}
	return b.String()
}
