// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"strconv"
	"strings"

	"github.com/pdiddy/ieee-docgen/internal/inline"
	"github.com/pdiddy/ieee-docgen/internal/sanitize"
	"github.com/pdiddy/ieee-docgen/pkg/types"
)

// addSubsections walks the flat subsection list as a tree. Roots are
// level-1 entries without a parent; children are found by ParentID and
// the next level down, to at most MaxNesting levels.
func (sb *sectionBuilder) addSubsections(subs []types.Subsection) {
	k := 0
	for _, s := range subs {
		if s.EffectiveLevel() != 1 || s.ParentID != "" {
			continue
		}
		k++
		number := strconv.Itoa(sb.number) + "." + strconv.Itoa(k)
		sb.addSubsection(s, number, 1)
		sb.addChildren(subs, s.ID, number, 2)
	}
}

func (sb *sectionBuilder) addChildren(subs []types.Subsection, parentID, parentNumber string, level int) {
	if parentID == "" || level > MaxNesting {
		return
	}
	k := 0
	for _, s := range subs {
		if s.ParentID != parentID || s.EffectiveLevel() != level {
			continue
		}
		k++
		number := parentNumber + "." + strconv.Itoa(k)
		sb.addSubsection(s, number, level)
		sb.addChildren(subs, s.ID, number, level+1)
	}
}

func (sb *sectionBuilder) addSubsection(s types.Subsection, number string, level int) {
	if title := strings.TrimSpace(sanitize.Text(s.Title)); title != "" {
		sb.blocks = append(sb.blocks, &Heading{
			Number: number,
			Title:  title,
			Level:  min(level+1, 6),
		})
	}
	if content := strings.TrimSpace(s.Content); content != "" {
		sb.blocks = append(sb.blocks, &Paragraph{Runs: inline.Parse(content), IndentIn: indentFor(level)})
	}
	for _, cb := range sortedBlocks(s.ContentBlocks) {
		sb.addBlock(cb, level)
	}
}
