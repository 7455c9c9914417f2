package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/iccimport/internal/markup"
)

// MarkupParser re-prepares an existing .icc manuscript. The markup passes
// through unchanged unless Underscores is set, in which case _text_ spans
// become italics first.
type MarkupParser struct {
	Underscores bool
}

func (p *MarkupParser) Prepare(r io.Reader, w *Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read markup: %w", err)
	}
	raw := string(data)
	if p.Underscores {
		if raw, err = UnderscoresToItalics(raw, w.table); err != nil {
			return err
		}
	}
	w.Markup(raw)
	return w.Err()
}

// UnderscoresToItalics rewrites _text_ spans in already prepared markup as
// italics tags. An odd number of underscores is an error, as is a delimiter
// that itself contains an underscore.
func UnderscoresToItalics(raw string, table *markup.TagTable) (string, error) {
	delim := table.Delimiter()
	if strings.Contains(delim[0]+delim[1], "_") {
		return "", fmt.Errorf("%w: delimiter %q contains an underscore", markup.ErrConfig, delim[0]+delim[1])
	}
	if n := strings.Count(raw, "_"); n%2 != 0 {
		return "", fmt.Errorf("unbalanced underscores: found %d", n)
	}
	def, _ := table.Style(markup.StyleItalics)
	var b strings.Builder
	b.Grow(len(raw))
	open := false
	for _, part := range strings.SplitAfter(raw, "_") {
		text, found := strings.CutSuffix(part, "_")
		b.WriteString(text)
		if !found {
			continue
		}
		if open {
			b.WriteString(def.Closer)
		} else {
			b.WriteString(def.Opener)
		}
		open = !open
	}
	return b.String(), nil
}
