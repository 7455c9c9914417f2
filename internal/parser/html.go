package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/iccimport/internal/markup"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. h1-h6 become TOC headings; b/strong and
// i/em/cite become bold and italics.
type HTMLParser struct{}

func (p *HTMLParser) Prepare(r io.Reader, w *Writer) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}
	htmlBlocks(root, w, markup.StyleParagraph)
	return w.Err()
}

func htmlBlocks(n *html.Node, w *Writer, para string) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			writeSpans(w, para, htmlInline(c, nil))
			continue
		case html.ElementNode:
		default:
			continue
		}

		if level := headingLevel(c.Data); level > 0 {
			spans := trimSpans(htmlInline(c, nil))
			w.BeginHeading(level)
			emitSpans(w, spans)
			w.EndHeading()
			continue
		}

		switch c.Data {
		case "script", "style", "nav", "footer", "header", "head", "title":
		case "p", "li", "td", "th", "dt", "dd", "figcaption":
			writeSpans(w, para, htmlInline(c, nil))
		case "blockquote":
			w.Block(markup.StyleQuotation, func() {
				htmlBlocks(c, w, markup.StyleQuotedParagraph)
			})
		case "pre":
			for _, line := range strings.Split(strings.Trim(rawText(c), "\n"), "\n") {
				w.Block(markup.StyleRawLine, func() { w.Text(line) })
			}
		default:
			htmlBlocks(c, w, para)
		}
	}
}

// span is one inline piece: text, or a style open or close.
type span struct {
	text  string
	style string
	open  bool
}

func htmlInline(n *html.Node, spans []span) []span {
	if n.Type == html.TextNode {
		return append(spans, span{text: collapseSpace(n.Data)})
	}
	if n.Type != html.ElementNode {
		return spans
	}
	style := ""
	switch n.Data {
	case "script", "style":
		return spans
	case "br":
		return append(spans, span{text: "\n"})
	case "b", "strong":
		style = markup.StyleBold
	case "i", "em", "cite":
		style = markup.StyleItalics
	}
	if style != "" {
		spans = append(spans, span{style: style, open: true})
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		spans = htmlInline(c, spans)
	}
	if style != "" {
		spans = append(spans, span{style: style})
	}
	return spans
}

// trimSpans strips leading and trailing whitespace from the outermost text.
func trimSpans(spans []span) []span {
	for i := range spans {
		if spans[i].style == "" {
			spans[i].text = strings.TrimLeft(spans[i].text, " \n")
			if spans[i].text != "" {
				break
			}
		}
	}
	for i := len(spans) - 1; i >= 0; i-- {
		if spans[i].style == "" {
			spans[i].text = strings.TrimRight(spans[i].text, " \n")
			if spans[i].text != "" {
				break
			}
		}
	}
	return spans
}

func writeSpans(w *Writer, style string, spans []span) {
	spans = trimSpans(spans)
	empty := true
	for _, s := range spans {
		if s.text != "" {
			empty = false
			break
		}
	}
	if empty {
		return
	}
	w.Block(style, func() { emitSpans(w, spans) })
}

func emitSpans(w *Writer, spans []span) {
	for _, s := range spans {
		switch {
		case s.style == "":
			w.Text(s.text)
		case s.open:
			w.Open(s.style)
		default:
			w.Close(s.style)
		}
	}
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// rawText returns the text under n with whitespace preserved.
func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
