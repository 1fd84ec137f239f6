// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"

	"go.yaml.in/yaml/v3"
)

// PaperMeta holds paper.yaml from a paper project directory.
type PaperMeta struct {
	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper's authors with their affiliations.
	Authors []Author `json:"authors" yaml:"authors"`

	// Abstract summarizes the paper.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Keywords lists index terms, written either as a YAML list or as one
	// comma-separated string.
	Keywords KeywordList `json:"keywords" yaml:"keywords"`
}

// KeywordList is a list of index terms.
type KeywordList []string

// UnmarshalYAML accepts a sequence or a comma-separated scalar.
func (k *KeywordList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var out KeywordList
		for _, p := range strings.Split(value.Value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*k = out
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*k = list
	return nil
}

// String joins the terms the way the keywords paragraph prints them.
func (k KeywordList) String() string {
	return strings.Join(k, ", ")
}

// ReferenceEntry records a cited work in references.yaml.
type ReferenceEntry struct {
	// CitationKey is the inline citation label (e.g. "Vaswani2017").
	CitationKey string `json:"citation_key" yaml:"citation_key"`

	// Title is the cited work's title.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names, given names first.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal or conference (optional).
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`
}

// ReferencesFile holds every cited work from references.yaml.
type ReferencesFile struct {
	Papers []ReferenceEntry `json:"papers" yaml:"papers"`
}
