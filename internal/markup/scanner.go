package markup

import (
	"fmt"
	"unicode/utf8"
)

// ScanResult is the output of a single scanning pass.
type ScanResult struct {
	// Annotations in close order, ids ascending from 1.
	Annotations []Annotation
	// Removed is the number of code points of markup consumed, which is also
	// the total offset correction applied by the end of the pass.
	Removed int
	// Literals is the number of opener and closer literals matched.
	Literals int
}

type openFrame struct {
	def  *TagDefinition
	open int // stripped offset at open
	pos  int // raw byte position of the opener
}

// Scan walks raw once, matching openers to closers with an explicit stack and
// recording every closed span in stripped-text coordinates.
//
// Two spans that use the same literal are matched purely by nesting, so the
// source must never interleave them across an unrelated span boundary.
func Scan(raw string, table *TagTable) (*ScanResult, error) {
	if err := checkHeadingLiterals(raw, table); err != nil {
		return nil, err
	}

	var (
		stack   []openFrame
		out     []Annotation
		cursor  int // byte position in raw
		runePos int // code point position of cursor
		removed int // code points of markup consumed so far
		count   int
		nextID  = 1
	)

	for {
		start, end, ok := table.next(raw, cursor)
		if !ok {
			break
		}
		runePos += utf8.RuneCountInString(raw[cursor:start])
		text := raw[start:end]
		lit, ok := table.lookup(text)
		if !ok {
			return nil, &InvariantError{Message: fmt.Sprintf("matched %q at byte %d which is neither opener nor closer", text, start)}
		}

		if !lit.closing {
			stack = append(stack, openFrame{def: lit.def, open: runePos - removed, pos: start})
		} else {
			if len(stack) == 0 {
				return nil, markupError(ErrUnmatchedCloser, raw, text, start)
			}
			top := stack[len(stack)-1]
			if top.def != lit.def {
				e := markupError(ErrMismatchedCloser, raw, text, start)
				e.Expected = top.def.Closer
				return nil, e
			}
			stack = stack[:len(stack)-1]
			out = append(out, newAnnotation(top.def, top.open, runePos-removed, nextID))
			nextID++
		}

		n := utf8.RuneCountInString(text)
		removed += n
		runePos += n
		cursor = end
		count++
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, markupError(ErrUnterminated, raw, top.def.Opener, top.pos)
	}

	return &ScanResult{Annotations: out, Removed: removed, Literals: count}, nil
}

func newAnnotation(def *TagDefinition, open, end, id int) Annotation {
	a := Annotation{
		Kind:   def.Kind,
		BookID: def.BookID,
		Open:   open,
		Close:  end,
		ID:     id,
	}
	if def.Kind == KindTOC {
		a.Depth = def.Depth
		a.Name = def.Name
	} else {
		a.Style = def.Style
	}
	return a
}

// checkHeadingLiterals rejects heading tags deeper than the configured TOC,
// which would otherwise pass through into the stripped text.
func checkHeadingLiterals(raw string, table *TagTable) error {
	for _, loc := range table.headings.FindAllStringIndex(raw, -1) {
		text := raw[loc[0]:loc[1]]
		if _, ok := table.lookup(text); ok {
			continue
		}
		return &ConfigError{
			Field:   "toc",
			Message: fmt.Sprintf("heading tag %q at line %d has no configured heading name (%d configured)", text, lineAt(raw, loc[0]), table.Depth()),
		}
	}
	return nil
}
