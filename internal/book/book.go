// Package book loads a prepared manuscript directory: its metadata.yml and
// its marked-up text.
package book

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/iccimport/internal/markup"
	"github.com/dgallion1/iccimport/internal/toc"
)

// Metadata is the per-book record read from metadata.yml.
type Metadata struct {
	Delimiter string   `yaml:"delimiter" json:"delimiter"`
	TOC       []string `yaml:"toc" json:"toc"`
	BookID    string   `yaml:"bookid" json:"bookid"`
	Title     string   `yaml:"title" json:"title"`
	Slug      string   `yaml:"slug" json:"slug"`
	Text      string   `yaml:"text,omitempty" json:"text,omitempty"` // Text file name override
}

// Book is a loaded manuscript ready for conversion.
type Book struct {
	Dir  string
	Meta Metadata
	Raw  string
}

// ParseMetadata decodes metadata YAML. Unknown keys are rejected so typos in
// the metadata file do not silently fall back to defaults.
func ParseMetadata(data []byte) (Metadata, error) {
	var m Metadata
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// Validate checks the fields every conversion needs.
func (m Metadata) Validate() error {
	if m.Delimiter == "" {
		return &markup.ConfigError{Field: "delimiter", Message: "is required"}
	}
	if m.BookID == "" {
		return &markup.ConfigError{Field: "bookid", Message: "is required"}
	}
	if m.Text != "" && filepath.Base(m.Text) != m.Text {
		return &markup.ConfigError{Field: "text", Message: fmt.Sprintf("%q must be a file name inside the book directory", m.Text)}
	}
	return nil
}

// TagTable builds a fresh tag table for this book.
func (m Metadata) TagTable() (*markup.TagTable, error) {
	delim, err := markup.ResolveDelimiter(m.Delimiter)
	if err != nil {
		return nil, err
	}
	return markup.NewTagTable(delim, m.TOC, m.BookID)
}

// Root returns the synthetic root annotation fields.
func (m Metadata) Root() toc.Root {
	return toc.Root{BookID: m.BookID, Title: m.Title, Slug: m.Slug}
}

// LoadMetadata reads and validates a metadata file.
func LoadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	m, err := ParseMetadata(data)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Load reads the metadata and text of a book directory. textFile is used
// unless the metadata names its own text file.
func Load(dir, metadataFile, textFile string) (*Book, error) {
	meta, err := LoadMetadata(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, err
	}
	if meta.Text != "" {
		textFile = meta.Text
	}
	path := filepath.Join(dir, textFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: text is not valid UTF-8", path)
	}
	return &Book{Dir: dir, Meta: meta, Raw: string(data)}, nil
}
