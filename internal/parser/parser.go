package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/iccimport/internal/markup"
)

// Parser converts a source document into prepared manuscript markup.
type Parser interface {
	Prepare(r io.Reader, w *Writer) error
}

// Options tune individual parsers.
type Options struct {
	// Underscores treats _text_ in plain text or existing markup as italics.
	Underscores bool
	// PDFFallbackPdftotext retries failed PDF extraction with pdftotext.
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this tool can prepare.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".icc":      true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{Underscores: opts.Underscores}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".icc":
		return &MarkupParser{Underscores: opts.Underscores}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Prepare converts r into markup for the given tag table.
func Prepare(p Parser, r io.Reader, table *markup.TagTable) (string, error) {
	w := NewWriter(table)
	if err := p.Prepare(r, w); err != nil {
		return "", err
	}
	return w.Finish()
}
