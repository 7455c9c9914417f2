// Package markup builds the tag table for a manuscript and scans and strips
// its inline markup.
package markup

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Kind distinguishes style spans from table-of-contents headings.
type Kind int

const (
	KindStyle Kind = iota
	KindTOC
)

func (k Kind) String() string {
	switch k {
	case KindStyle:
		return "style"
	case KindTOC:
		return "toc"
	}
	return "unknown"
}

// Delimiter is the pair of strings wrapped around every tag keyword.
type Delimiter [2]string

var namedDelimiters = map[string]Delimiter{
	"round":    {"(", ")"},
	"parens":   {"(", ")"},
	"curly":    {"{", "}"},
	"braces":   {"{", "}"},
	"square":   {"[", "]"},
	"brackets": {"[", "]"},
	"angle":    {"<", ">"},
	"angles":   {"<", ">"},
}

// ResolveDelimiter maps a metadata selector to a delimiter pair. Named
// selectors map to bracket pairs; anything else is used as a symmetric literal.
func ResolveDelimiter(selector string) (Delimiter, error) {
	if d, ok := namedDelimiters[strings.ToLower(selector)]; ok {
		return d, nil
	}
	if selector == "" {
		return Delimiter{}, &ConfigError{Field: "delimiter", Message: "empty selector"}
	}
	if strings.Contains(selector, "/") {
		return Delimiter{}, &ConfigError{Field: "delimiter", Message: fmt.Sprintf("%q contains the closing marker /", selector)}
	}
	if strings.TrimSpace(selector) != selector {
		return Delimiter{}, &ConfigError{Field: "delimiter", Message: fmt.Sprintf("%q has surrounding whitespace", selector)}
	}
	return Delimiter{selector, selector}, nil
}

// Built-in style keywords and the style names they produce.
var styleKeywords = []struct {
	Keyword string
	Style   string
}{
	{"p", StyleParagraph},
	{"quote", StyleQuotation},
	{"quotepre", StyleQuotedParagraph},
	{"pre", StyleRawLine},
	{"i", StyleItalics},
	{"b", StyleBold},
}

const (
	StyleParagraph       = "paragraph"
	StyleQuotation       = "quotation"
	StyleQuotedParagraph = "quoted-paragraph"
	StyleRawLine         = "raw-line"
	StyleItalics         = "italics"
	StyleBold            = "bold"
)

// TagDefinition describes one recognized opener/closer pair.
type TagDefinition struct {
	Opener string
	Closer string
	Kind   Kind
	Style  string // KindStyle only
	Depth  int    // KindTOC only, 1-based
	Name   string // KindTOC only
	BookID string
}

// Keyword returns the tag keyword between the delimiters, e.g. "b" or "h2".
func (d TagDefinition) Keyword() string {
	if d.Kind == KindTOC {
		return "h" + strconv.Itoa(d.Depth)
	}
	for _, sk := range styleKeywords {
		if sk.Style == d.Style {
			return sk.Keyword
		}
	}
	return ""
}

type literal struct {
	def     *TagDefinition
	closing bool
}

// TagTable is the immutable set of tag definitions for one book. It is built
// once per run and shared by the scanner, the stripper, and the preparers.
type TagTable struct {
	delim    Delimiter
	bookID   string
	defs     []*TagDefinition
	literals map[string]literal
	styles   map[string]*TagDefinition
	matcher  *regexp.Regexp
	headings *regexp.Regexp
}

// NewTagTable builds the tag table for a delimiter pair and an ordered list of
// heading names. Heading i (0-based) gets depth i+1.
func NewTagTable(delim Delimiter, headings []string, bookID string) (*TagTable, error) {
	if delim[0] == "" || delim[1] == "" {
		return nil, &ConfigError{Field: "delimiter", Message: "both delimiter strings must be non-empty"}
	}

	t := &TagTable{
		delim:    delim,
		bookID:   bookID,
		literals: make(map[string]literal),
		styles:   make(map[string]*TagDefinition),
	}

	for _, sk := range styleKeywords {
		def := &TagDefinition{
			Opener: delim[0] + sk.Keyword + delim[1],
			Closer: delim[0] + "/" + sk.Keyword + delim[1],
			Kind:   KindStyle,
			Style:  sk.Style,
			BookID: bookID,
		}
		t.defs = append(t.defs, def)
		t.styles[sk.Style] = def
	}

	seen := make(map[string]bool, len(headings))
	for i, name := range headings {
		if strings.TrimSpace(name) == "" {
			return nil, &ConfigError{Field: "toc", Message: fmt.Sprintf("heading %d has an empty name", i+1)}
		}
		if seen[name] {
			return nil, &ConfigError{Field: "toc", Message: fmt.Sprintf("duplicate heading name %q", name)}
		}
		seen[name] = true
		keyword := "h" + strconv.Itoa(i+1)
		t.defs = append(t.defs, &TagDefinition{
			Opener: delim[0] + keyword + delim[1],
			Closer: delim[0] + "/" + keyword + delim[1],
			Kind:   KindTOC,
			Depth:  i + 1,
			Name:   name,
			BookID: bookID,
		})
	}

	all := make([]string, 0, 2*len(t.defs))
	for _, def := range t.defs {
		for _, lit := range []literal{{def, false}, {def, true}} {
			s := def.Opener
			if lit.closing {
				s = def.Closer
			}
			if _, dup := t.literals[s]; dup {
				return nil, &ConfigError{Field: "delimiter", Message: fmt.Sprintf("literal %q is defined twice", s)}
			}
			t.literals[s] = lit
			all = append(all, s)
		}
	}

	// The scanner relies on no literal being a prefix of another.
	sort.Slice(all, func(i, j int) bool {
		if len(all[i]) != len(all[j]) {
			return len(all[i]) > len(all[j])
		}
		return all[i] < all[j]
	})
	for i, long := range all {
		for _, short := range all[i+1:] {
			if strings.HasPrefix(long, short) {
				return nil, &ConfigError{Field: "delimiter", Message: fmt.Sprintf("literal %q is a prefix of %q", short, long)}
			}
		}
	}

	quoted := make([]string, len(all))
	for i, s := range all {
		quoted[i] = regexp.QuoteMeta(s)
	}
	t.matcher = regexp.MustCompile(strings.Join(quoted, "|"))
	t.headings = regexp.MustCompile(regexp.QuoteMeta(delim[0]) + `/?h[0-9]+` + regexp.QuoteMeta(delim[1]))

	return t, nil
}

// Delimiter returns the delimiter pair the table was built with.
func (t *TagTable) Delimiter() Delimiter { return t.delim }

// BookID returns the owning book id stamped on every definition.
func (t *TagTable) BookID() string { return t.bookID }

// Depth returns the number of configured heading levels.
func (t *TagTable) Depth() int {
	return len(t.defs) - len(styleKeywords)
}

// Definitions returns a copy of all definitions, styles first, then headings
// in depth order.
func (t *TagTable) Definitions() []TagDefinition {
	out := make([]TagDefinition, len(t.defs))
	for i, def := range t.defs {
		out[i] = *def
	}
	return out
}

// Style returns the definition for a built-in style name.
func (t *TagTable) Style(name string) (TagDefinition, bool) {
	def, ok := t.styles[name]
	if !ok {
		return TagDefinition{}, false
	}
	return *def, true
}

// Heading returns the definition for a 1-based heading depth.
func (t *TagTable) Heading(depth int) (TagDefinition, bool) {
	if depth < 1 || depth > t.Depth() {
		return TagDefinition{}, false
	}
	return *t.defs[len(styleKeywords)+depth-1], true
}

// FindLiteral returns the first opener or closer literal in s, or "".
func (t *TagTable) FindLiteral(s string) string {
	return t.matcher.FindString(s)
}

// next finds the leftmost literal in raw at or after from.
func (t *TagTable) next(raw string, from int) (start, end int, ok bool) {
	loc := t.matcher.FindStringIndex(raw[from:])
	if loc == nil {
		return 0, 0, false
	}
	return from + loc[0], from + loc[1], true
}

func (t *TagTable) lookup(s string) (literal, bool) {
	lit, ok := t.literals[s]
	return lit, ok
}
