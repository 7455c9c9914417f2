package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/iccimport/internal/markup"
)

// TextParser handles plain text files. Blank lines separate paragraphs.
type TextParser struct {
	// Underscores turns _text_ spans into italics.
	Underscores bool
}

func (p *TextParser) Prepare(r io.Reader, w *Writer) error {
	paragraphs, err := splitParagraphs(r)
	if err != nil {
		return err
	}
	for i, para := range paragraphs {
		if !p.Underscores {
			w.Block(markup.StyleParagraph, func() { w.Text(para) })
			continue
		}
		if strings.Count(para, "_")%2 != 0 {
			return fmt.Errorf("paragraph %d: unbalanced underscore", i+1)
		}
		w.Block(markup.StyleParagraph, func() { writeUnderscored(w, para) })
	}
	return w.Err()
}

// splitParagraphs groups non-blank lines into paragraphs.
func splitParagraphs(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paragraphs, nil
}

// writeUnderscored writes s with alternate underscores opening and closing
// italics. The caller checks the count is even.
func writeUnderscored(w *Writer, s string) {
	open := false
	for {
		i := strings.IndexByte(s, '_')
		if i < 0 {
			w.Text(s)
			return
		}
		w.Text(s[:i])
		if open {
			w.Close(markup.StyleItalics)
		} else {
			w.Open(markup.StyleItalics)
		}
		open = !open
		s = s[i+1:]
	}
}
