// Package toc links table-of-contents headings into a hierarchy and fills in
// their content.
package toc

import (
	"fmt"

	"github.com/dgallion1/iccimport/internal/markup"
)

// Root describes the synthetic depth-0 annotation that stands for the book.
type Root struct {
	BookID string
	Title  string
	Slug   string
}

// Resolve assigns each scanned heading the id of its enclosing heading one
// level up (0 for depth 1) and appends the root annotation. The input is not
// modified.
//
// Ids are assigned in close order, so an enclosing heading always has a larger
// id than its descendants. Walking from the last-closed annotation backwards
// therefore visits every ancestor before its descendants; the depth map holds
// the most recently visited heading per depth, which must enclose the child.
func Resolve(anns []markup.Annotation, root Root) ([]markup.Annotation, error) {
	out := make([]markup.Annotation, len(anns), len(anns)+1)
	copy(out, anns)

	latest := make(map[int]int) // depth -> index into out
	for i := len(out) - 1; i >= 0; i-- {
		a := &out[i]
		if !a.IsHeading() {
			continue
		}
		if a.Depth == 1 {
			a.Parent = 0
		} else {
			pi, ok := latest[a.Depth-1]
			if !ok || !encloses(out[pi], *a) {
				return nil, &markup.ConfigError{
					Field:   "toc",
					Message: fmt.Sprintf("depth %d heading %q (id %d) at offset %d is not inside a depth %d heading", a.Depth, a.Name, a.ID, a.Open, a.Depth-1),
				}
			}
			a.Parent = out[pi].ID
		}
		latest[a.Depth] = i
	}

	out = append(out, markup.Annotation{
		Kind:   markup.KindTOC,
		Depth:  0,
		ID:     0,
		BookID: root.BookID,
		Title:  root.Title,
		Slug:   root.Slug,
	})
	return out, nil
}

func encloses(parent, child markup.Annotation) bool {
	return parent.Open <= child.Open && child.Close <= parent.Close && parent.ID > child.ID
}

// FillContent sets Content on every heading to stripped[Open:Close), counted
// in code points.
func FillContent(anns []markup.Annotation, stripped string) error {
	runes := []rune(stripped)
	for i := range anns {
		a := &anns[i]
		if !a.IsHeading() {
			continue
		}
		if a.Open < 0 || a.Open > a.Close || a.Close > len(runes) {
			return &markup.InvariantError{
				Message: fmt.Sprintf("heading id %d span (%d,%d) outside stripped text of %d code points", a.ID, a.Open, a.Close, len(runes)),
			}
		}
		a.Content = string(runes[a.Open:a.Close])
	}
	return nil
}
