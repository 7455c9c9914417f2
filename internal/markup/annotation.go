package markup

import "encoding/json"

// Annotation is one markup span in stripped-text coordinates. Open and Close
// count code points from the start of the stripped text; Close is exclusive.
type Annotation struct {
	Kind   Kind
	Style  string // KindStyle only
	Depth  int    // KindTOC only; 0 for the synthetic root
	Name   string // KindTOC only
	BookID string
	Open   int
	Close  int
	ID     int

	Parent  int    // KindTOC, depth >= 1
	Content string // KindTOC, depth >= 1
	Title   string // root only
	Slug    string // root only
}

// IsRoot reports whether a is the synthetic depth-0 book annotation.
func (a Annotation) IsRoot() bool {
	return a.Kind == KindTOC && a.Depth == 0
}

// IsHeading reports whether a is a scanned TOC heading.
func (a Annotation) IsHeading() bool {
	return a.Kind == KindTOC && a.Depth >= 1
}

type styleRecord struct {
	Type   string `json:"type"`
	Tag    string `json:"tag"`
	BookID string `json:"bookid"`
	Open   int    `json:"open"`
	Close  int    `json:"close"`
	ID     int    `json:"id"`
}

type tocRecord struct {
	styleRecord
	Depth   int    `json:"depth"`
	Name    string `json:"name"`
	Parent  int    `json:"parent"`
	Content string `json:"content"`
}

type rootRecord struct {
	Type   string `json:"type"`
	BookID string `json:"bookid"`
	Depth  int    `json:"depth"`
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
}

// MarshalJSON emits the import record for the annotation's kind.
func (a Annotation) MarshalJSON() ([]byte, error) {
	switch {
	case a.IsRoot():
		return json.Marshal(rootRecord{
			Type:   KindTOC.String(),
			BookID: a.BookID,
			Depth:  0,
			ID:     a.ID,
			Title:  a.Title,
			Slug:   a.Slug,
		})
	case a.Kind == KindTOC:
		return json.Marshal(tocRecord{
			styleRecord: styleRecord{
				Type:   KindTOC.String(),
				Tag:    TagDefinition{Kind: KindTOC, Depth: a.Depth}.Keyword(),
				BookID: a.BookID,
				Open:   a.Open,
				Close:  a.Close,
				ID:     a.ID,
			},
			Depth:   a.Depth,
			Name:    a.Name,
			Parent:  a.Parent,
			Content: a.Content,
		})
	default:
		return json.Marshal(styleRecord{
			Type:   KindStyle.String(),
			Tag:    a.Style,
			BookID: a.BookID,
			Open:   a.Open,
			Close:  a.Close,
			ID:     a.ID,
		})
	}
}
