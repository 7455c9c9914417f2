package doctree

import (
	"fmt"
	"io"
	"strings"
)

// DocTree is the heading outline of a converted book.
type DocTree struct {
	Title    string     // Book title from metadata
	Slug     string     // Book slug from metadata
	Children []*DocNode // Depth-1 headings
}

// DocNode is one table-of-contents heading in the outline.
type DocNode struct {
	ID       int        // Annotation id
	Depth    int        // 1-based heading depth
	Name     string     // Heading level name, e.g. "Chapter"
	Label    string     // First line of the heading content
	Open     int        // Stripped-text span start
	Close    int        // Stripped-text span end (exclusive)
	Children []*DocNode // Subheadings
}

// Chunk is a fixed-size window of stripped text, ready for import.
type Chunk struct {
	Offset   int    `json:"offset"`   // Code point offset into stripped text
	Text     string `json:"text"`     // Chunk text content
	Sequence int    `json:"sequence"` // Sequence number within the book
	BookID   string `json:"bookid"`
}

// Render writes an indented outline, one heading per line.
func (t *DocTree) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s [%s]\n", t.Title, t.Slug); err != nil {
		return err
	}
	var walk func(nodes []*DocNode, indent int) error
	walk = func(nodes []*DocNode, indent int) error {
		for _, n := range nodes {
			_, err := fmt.Fprintf(w, "%s%s %d: %s (%d-%d)\n", strings.Repeat("  ", indent), n.Name, n.ID, n.Label, n.Open, n.Close)
			if err != nil {
				return err
			}
			if err := walk(n.Children, indent+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(t.Children, 1)
}

// Count returns the number of headings in the tree.
func (t *DocTree) Count() int {
	var count func(nodes []*DocNode) int
	count = func(nodes []*DocNode) int {
		n := len(nodes)
		for _, c := range nodes {
			n += count(c.Children)
		}
		return n
	}
	return count(t.Children)
}
