package parser

import (
	"fmt"
	"strings"

	"github.com/dgallion1/iccimport/internal/markup"
)

// Writer emits prepared manuscript markup using a book's tag table. Heading
// spans stay open until a heading at the same or a shallower level starts, so
// each heading encloses its whole section.
//
// The first error is kept and reported by Err and Finish; later calls are
// no-ops.
type Writer struct {
	table    *markup.TagTable
	buf      strings.Builder
	headings []markup.TagDefinition
	styles   []markup.TagDefinition
	deep     bool // current title is a heading deeper than the table allows
	tags     int  // tag literals written through the Writer
	err      error
}

func NewWriter(table *markup.TagTable) *Writer {
	return &Writer{table: table}
}

// BeginHeading starts a heading at level (1-based); the title follows as
// inline text until EndHeading. A level that skips ahead is clamped to one
// below the current depth. Levels beyond the configured TOC are written as a
// bold paragraph.
func (w *Writer) BeginHeading(level int) {
	if w.err != nil {
		return
	}
	if len(w.styles) > 0 {
		w.fail(fmt.Errorf("heading inside open %s span", w.styles[len(w.styles)-1].Style))
		return
	}
	if level > w.table.Depth() {
		w.Open(markup.StyleParagraph)
		w.Open(markup.StyleBold)
		w.deep = true
		return
	}
	level = max(1, min(level, len(w.headings)+1))
	for len(w.headings) >= level {
		w.closeHeading()
	}
	def, _ := w.table.Heading(level)
	w.buf.WriteString(def.Opener)
	w.tags++
	w.headings = append(w.headings, def)
}

// EndHeading ends the heading title line.
func (w *Writer) EndHeading() {
	if w.deep {
		w.Close(markup.StyleBold)
		w.Close(markup.StyleParagraph)
		w.deep = false
	}
	w.Newline()
}

// Open starts a style span.
func (w *Writer) Open(style string) {
	if w.err != nil {
		return
	}
	def, ok := w.table.Style(style)
	if !ok {
		w.fail(fmt.Errorf("unknown style %q", style))
		return
	}
	w.buf.WriteString(def.Opener)
	w.tags++
	w.styles = append(w.styles, def)
}

// Close ends the innermost style span, which must be style.
func (w *Writer) Close(style string) {
	if w.err != nil {
		return
	}
	if len(w.styles) == 0 || w.styles[len(w.styles)-1].Style != style {
		w.fail(fmt.Errorf("close %s without matching open", style))
		return
	}
	top := w.styles[len(w.styles)-1]
	w.buf.WriteString(top.Closer)
	w.tags++
	w.styles = w.styles[:len(w.styles)-1]
}

// Block writes a complete style span around body, followed by a newline.
func (w *Writer) Block(style string, body func()) {
	w.Open(style)
	body()
	w.Close(style)
	w.Newline()
}

// Text writes literal manuscript text. Text that already contains a tag
// literal for this table is rejected; pick another delimiter for the book.
// Literals formed across pieces, or between text and an adjacent tag, are
// caught by Finish.
func (w *Writer) Text(s string) {
	if w.err != nil || s == "" {
		return
	}
	if lit := w.table.FindLiteral(s); lit != "" {
		w.fail(fmt.Errorf("%w: source text contains tag literal %q; choose a delimiter that does not occur in the source", markup.ErrConfig, lit))
		return
	}
	w.buf.WriteString(s)
}

// Markup writes already prepared markup verbatim. It must be well formed on
// its own and may only appear outside open headings and spans.
func (w *Writer) Markup(s string) {
	if w.err != nil || s == "" {
		return
	}
	if len(w.headings) > 0 || len(w.styles) > 0 {
		w.fail(fmt.Errorf("markup inside open heading or span"))
		return
	}
	res, err := markup.Scan(s, w.table)
	if err != nil {
		w.fail(err)
		return
	}
	w.buf.WriteString(s)
	w.tags += res.Literals
}

func (w *Writer) Newline() {
	if w.err != nil {
		return
	}
	w.buf.WriteByte('\n')
}

func (w *Writer) Err() error {
	return w.err
}

// Finish closes every open heading and returns the markup. The result is
// scanned once more; it must hold exactly the tags the Writer emitted.
func (w *Writer) Finish() (string, error) {
	if w.err == nil && len(w.styles) > 0 {
		w.fail(fmt.Errorf("unclosed %s span at end of document", w.styles[len(w.styles)-1].Style))
	}
	if w.err != nil {
		return "", w.err
	}
	for len(w.headings) > 0 {
		w.closeHeading()
	}
	out := w.buf.String()
	res, err := markup.Scan(out, w.table)
	if err != nil {
		return "", fmt.Errorf("%w: source text forms tag literals: %w", markup.ErrConfig, err)
	}
	if res.Literals != w.tags {
		return "", fmt.Errorf("%w: prepared markup holds %d tag literals but %d were written; choose a delimiter that does not occur in the source",
			markup.ErrConfig, res.Literals, w.tags)
	}
	return out, nil
}

func (w *Writer) closeHeading() {
	top := w.headings[len(w.headings)-1]
	w.buf.WriteString(top.Closer)
	w.tags++
	w.headings = w.headings[:len(w.headings)-1]
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}
