// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Run
	}{
		{
			name: "plain text",
			in:   "Plain paragraph.",
			want: []Run{{Text: "Plain paragraph."}},
		},
		{
			name: "bold and italic",
			in:   "a <b>bold</b> and <em>italic</em> word",
			want: []Run{
				{Text: "a "},
				{Text: "bold", Bold: true},
				{Text: " and "},
				{Text: "italic", Italic: true},
				{Text: " word"},
			},
		},
		{
			name: "nested formatting",
			in:   "<strong>x <i>y</i></strong>",
			want: []Run{
				{Text: "x ", Bold: true},
				{Text: "y", Bold: true, Italic: true},
			},
		},
		{
			name: "underline and scripts",
			in:   "<u>u</u>H<sub>2</sub>O x<sup>2</sup>",
			want: []Run{
				{Text: "u", Underline: true},
				{Text: "H"},
				{Text: "2", VertAlign: Subscript},
				{Text: "O x"},
				{Text: "2", VertAlign: Superscript},
			},
		},
		{
			name: "unknown tags keep text and merge",
			in:   "<span>one</span> <a href=\"#\">two</a>",
			want: []Run{{Text: "one two"}},
		},
		{
			name: "entities decoded",
			in:   "a &amp; b &lt; c",
			want: []Run{{Text: "a & b < c"}},
		},
		{
			name: "line break",
			in:   "first<br/>second",
			want: []Run{{Text: "first\nsecond"}},
		},
		{
			name: "unbalanced close ignored",
			in:   "x</b>y",
			want: []Run{{Text: "xy"}},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Parse(tt.in)); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "bold plain", PlainText("<b>bold</b> plain"))
}

func TestSafeHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keeps formatting", "<b>x</b> <i>y</i>", "<b>x</b> <i>y</i>"},
		{"drops script", "a<script>alert(1)</script>b", "ab"},
		{"drops attributes and links", `<a href="http://x">link</a>`, "link"},
		{"escapes text", "a < b", "a &lt; b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeHTML(tt.in))
		})
	}
}

func TestFromMarkdown(t *testing.T) {
	got, err := FromMarkdown("Some **bold** and *italic* text.")
	require.NoError(t, err)
	assert.Equal(t, "Some <strong>bold</strong> and <em>italic</em> text.", got)

	runs := Parse(got)
	require.Len(t, runs, 5)
	assert.True(t, runs[1].Bold)
	assert.True(t, runs[3].Italic)
}
