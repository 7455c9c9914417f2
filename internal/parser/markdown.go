package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/iccimport/internal/markup"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. ATX and setext
// headings become TOC headings, block quotes become quotations, code blocks
// become raw lines, and emphasis becomes italics or bold.
type MarkdownParser struct{}

func (p *MarkdownParser) Prepare(r io.Reader, w *Writer) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))
	mdBlocks(doc, src, w, markup.StyleParagraph)
	return w.Err()
}

// mdBlocks writes the block children of parent. para is the style used for
// paragraphs at this nesting, which differs inside block quotes.
func mdBlocks(parent ast.Node, src []byte, w *Writer, para string) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			w.BeginHeading(node.Level)
			mdInline(node, src, w)
			w.EndHeading()

		case *ast.Paragraph, *ast.TextBlock:
			w.Block(para, func() { mdInline(n, src, w) })

		case *ast.Blockquote:
			w.Block(markup.StyleQuotation, func() {
				mdBlocks(node, src, w, markup.StyleQuotedParagraph)
			})

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				line := strings.TrimRight(string(seg.Value(src)), "\r\n")
				w.Block(markup.StyleRawLine, func() { w.Text(line) })
			}

		case *ast.ThematicBreak, *ast.HTMLBlock:
			// No manuscript text.

		default:
			// Lists and list items just nest more blocks.
			mdBlocks(n, src, w, para)
		}
	}
}

func mdInline(parent ast.Node, src []byte, w *Writer) {
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			w.Text(string(node.Segment.Value(src)))
			if node.HardLineBreak() {
				w.Text("\n")
			} else if node.SoftLineBreak() {
				w.Text(" ")
			}
		case *ast.String:
			w.Text(string(node.Value))
		case *ast.Emphasis:
			style := markup.StyleItalics
			if node.Level >= 2 {
				style = markup.StyleBold
			}
			w.Open(style)
			mdInline(node, src, w)
			w.Close(style)
		case *ast.AutoLink:
			w.Text(string(node.Label(src)))
		case *ast.RawHTML:
			// Dropped.
		default:
			// Code spans, links, and images contribute their text.
			mdInline(c, src, w)
		}
	}
}
