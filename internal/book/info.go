package book

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// Info summarizes a text file before it is marked up.
type Info struct {
	Bytes      int    `json:"bytes"`
	CodePoints int    `json:"code_points"`
	Charset    string `json:"charset"` // Every distinct character, sorted
}

// Inspect reports the size and the sorted set of distinct characters of text.
// It is used to pick a delimiter that does not occur in the manuscript.
func Inspect(text string) Info {
	seen := make(map[rune]bool)
	for _, r := range text {
		seen[r] = true
	}
	chars := make([]rune, 0, len(seen))
	for r := range seen {
		chars = append(chars, r)
	}
	slices.Sort(chars)
	return Info{
		Bytes:      len(text),
		CodePoints: utf8.RuneCountInString(text),
		Charset:    string(chars),
	}
}

// Unused reports which of the candidate delimiter selectors never occur in
// text, preserving candidate order.
func (i Info) Unused(candidates ...string) []string {
	var out []string
	for _, c := range candidates {
		if !strings.ContainsAny(i.Charset, c) {
			out = append(out, c)
		}
	}
	return out
}
