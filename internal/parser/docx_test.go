package parser

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
)

func docxPara(style string, runs ...*docx.Run) *docx.Paragraph {
	p := &docx.Paragraph{}
	if style != "" {
		p.Properties = &docx.ParagraphProperties{Style: &docx.Style{Val: style}}
	}
	for _, r := range runs {
		p.Children = append(p.Children, r)
	}
	return p
}

func docxText(text string, props *docx.RunProperties) *docx.Run {
	return &docx.Run{RunProperties: props, Children: []interface{}{&docx.Text{Text: text}}}
}

func TestDOCX_Paragraphs(t *testing.T) {
	w := NewWriter(testTable(t))
	writeDocxParagraph(w, docxPara("Heading1", docxText("Part One", nil)))
	writeDocxParagraph(w, docxPara("",
		docxText(" Plain ", nil),
		docxText("strong", &docx.RunProperties{Bold: &docx.Bold{}}),
		docxText(" and ", nil),
		docxText("slanted ", &docx.RunProperties{Italic: &docx.Italic{}}),
	))
	writeDocxParagraph(w, docxPara("Quote", docxText("Cited.", nil)))
	writeDocxParagraph(w, docxPara("Heading 2", docxText("Chapter", nil)))
	writeDocxParagraph(w, docxPara("", docxText("   ", nil)))

	got, err := w.Finish()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "<h1>Part One\n" +
		"<p>Plain <b>strong</b> and <i>slanted</i></p>\n" +
		"<quotepre>Cited.</quotepre>\n" +
		"<h2>Chapter\n" +
		"</h2></h1>"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDOCXHeadingLevel(t *testing.T) {
	tests := map[string]int{
		"Heading1":  1,
		"heading 2": 2,
		"Heading9":  9,
		"Normal":    0,
		"Heading":   0,
		"Heading10": 0,
	}
	for style, want := range tests {
		if got := docxHeadingLevel(style); got != want {
			t.Errorf("%q: expected %d, got %d", style, want, got)
		}
	}
}

// rewriteDocxBody returns data with word/document.xml passed through edit.
func rewriteDocxBody(t *testing.T, data []byte, edit func(string) string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		if f.Name == docxBody {
			content = []byte(edit(string(content)))
		}
		fw, err := zw.Create(f.Name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func readDocxBody(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return string(content)
	}
	t.Fatalf("no %s in archive", docxBody)
	return ""
}

func TestDOCXParser_ToggledOffRuns(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	para := doc.AddParagraph()
	para.AddText("on").Bold()
	para.AddText("off").Bold().Italic()
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data := rewriteDocxBody(t, buf.Bytes(), func(body string) string {
		const on = `<w:b></w:b><w:i></w:i>`
		if strings.Count(body, on) != 1 {
			t.Fatalf("expected one bold italic run in %s", body)
		}
		return strings.Replace(body, on, `<w:b w:val="0"></w:b><w:i w:val="false"/>`, 1)
	})

	got, err := Prepare(&DOCXParser{}, bytes.NewReader(data), testTable(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "<p><b>on</b>off</p>\n"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDropToggledOff(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, _ := zw.Create(docxBody)
	fw.Write([]byte(`<w:r><w:rPr><w:b/><w:i w:val="0"/><w:bCs w:val="0"/></w:rPr></w:r>` +
		`<w:r><w:rPr><w:b w:val='off'/><w:i w:val="1"/></w:rPr></w:r>`))
	other, _ := zw.Create("word/styles.xml")
	other.Write([]byte(`<w:b w:val="0"/>`))
	zw.Close()

	out, err := dropToggledOff(buf.Bytes())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `<w:r><w:rPr><w:b/><w:bCs w:val="0"/></w:rPr></w:r>` +
		`<w:r><w:rPr><w:i w:val="1"/></w:rPr></w:r>`
	if got := readDocxBody(t, out); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	// Nothing to drop leaves the archive untouched.
	plain := rewriteDocxBody(t, buf.Bytes(), func(string) string { return "<w:b/>" })
	same, err := dropToggledOff(plain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(same, plain) {
		t.Error("expected unchanged archive")
	}

	if _, err := dropToggledOff([]byte("not a zip")); err == nil {
		t.Error("expected error for invalid archive")
	}
}
