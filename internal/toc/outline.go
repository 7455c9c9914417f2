package toc

import (
	"sort"
	"strings"

	"github.com/dgallion1/iccimport/internal/doctree"
	"github.com/dgallion1/iccimport/internal/markup"
)

const maxLabel = 60

// Outline builds the heading tree from resolved annotations. Headings are
// nested by span, in document order.
func Outline(anns []markup.Annotation) *doctree.DocTree {
	tree := &doctree.DocTree{}
	var headings []markup.Annotation
	for _, a := range anns {
		switch {
		case a.IsRoot():
			tree.Title = a.Title
			tree.Slug = a.Slug
		case a.IsHeading():
			headings = append(headings, a)
		}
	}
	sort.SliceStable(headings, func(i, j int) bool {
		if headings[i].Open != headings[j].Open {
			return headings[i].Open < headings[j].Open
		}
		return headings[i].Depth < headings[j].Depth
	})

	type stackEntry struct {
		node  *doctree.DocNode
		level int
	}
	root := &doctree.DocNode{}
	stack := []stackEntry{{node: root, level: 0}}

	for _, h := range headings {
		node := &doctree.DocNode{
			ID:    h.ID,
			Depth: h.Depth,
			Name:  h.Name,
			Label: label(h.Content),
			Open:  h.Open,
			Close: h.Close,
		}
		// Pop stack until we find a parent with lower level.
		for len(stack) > 1 && stack[len(stack)-1].level >= h.Depth {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].node
		parent.Children = append(parent.Children, node)
		stack = append(stack, stackEntry{node: node, level: h.Depth})
	}

	tree.Children = root.Children
	return tree
}

func label(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) > maxLabel {
		return string(r[:maxLabel]) + "..."
	}
	return line
}
