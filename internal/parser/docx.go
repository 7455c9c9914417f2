package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/iccimport/internal/markup"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Heading styles become TOC headings, Quote
// styles become quoted paragraphs, and bold or italic runs keep their style.
type DOCXParser struct{}

func (p *DOCXParser) Prepare(r io.Reader, w *Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read docx: %w", err)
	}
	data, err = dropToggledOff(data)
	if err != nil {
		return fmt.Errorf("parse docx: %w", err)
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("parse docx: %w", err)
	}

	for _, item := range doc.Document.Body.Items {
		if para, ok := item.(*docx.Paragraph); ok {
			writeDocxParagraph(w, para)
		}
	}
	return w.Err()
}

func writeDocxParagraph(w *Writer, para *docx.Paragraph) {
	runs := docxRuns(para)
	if len(runs) == 0 {
		return
	}
	style := docxStyle(para)
	if level := docxHeadingLevel(style); level > 0 {
		w.BeginHeading(level)
		for _, run := range runs {
			w.Text(run.text)
		}
		w.EndHeading()
		return
	}

	block := markup.StyleParagraph
	if strings.Contains(strings.ToLower(style), "quote") {
		block = markup.StyleQuotedParagraph
	}
	w.Block(block, func() {
		for _, run := range runs {
			if run.bold {
				w.Open(markup.StyleBold)
			}
			if run.italic {
				w.Open(markup.StyleItalics)
			}
			w.Text(run.text)
			if run.italic {
				w.Close(markup.StyleItalics)
			}
			if run.bold {
				w.Close(markup.StyleBold)
			}
		}
	})
}

type docxRun struct {
	text   string
	bold   bool
	italic bool
}

// docxRuns returns the non-empty runs of a paragraph, trimmed at the edges.
func docxRuns(para *docx.Paragraph) []docxRun {
	var runs []docxRun
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		var buf strings.Builder
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
		if buf.Len() == 0 {
			continue
		}
		dr := docxRun{text: buf.String()}
		if props := run.RunProperties; props != nil {
			dr.bold = props.Bold != nil
			dr.italic = props.Italic != nil
		}
		runs = append(runs, dr)
	}

	if len(runs) > 0 {
		runs[0].text = strings.TrimLeft(runs[0].text, " \t")
		last := len(runs) - 1
		runs[last].text = strings.TrimRight(runs[last].text, " \t")
	}
	kept := runs[:0]
	for _, r := range runs {
		if r.text != "" {
			kept = append(kept, r)
		}
	}
	return kept
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	level, ok := strings.CutPrefix(s, "heading")
	if !ok || len(level) != 1 || level[0] < '1' || level[0] > '9' {
		return 0
	}
	return int(level[0] - '0')
}

const docxBody = "word/document.xml"

// toggledOff matches bold and italic run properties switched off by value,
// such as <w:b w:val="0"/>. go-docx keeps only the element name, so these
// would otherwise read as switched on.
var toggledOff = regexp.MustCompile(`<w:[bi]\s[^>]*?\bw:val=["'](?:0|false|off)["'][^>]*?(?:/>|>\s*</w:[bi]>)`)

// dropToggledOff removes switched-off bold and italic properties from the
// document body. The archive is returned unchanged when there are none.
func dropToggledOff(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	var body []byte
	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		body, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", docxBody, err)
		}
		break
	}
	if !toggledOff.Match(body) {
		return data, nil
	}
	body = toggledOff.ReplaceAll(body, nil)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		if f.Name != docxBody {
			if err := zw.Copy(f); err != nil {
				return nil, err
			}
			continue
		}
		hdr := f.FileHeader
		fw, err := zw.CreateHeader(&hdr)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(body); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
