package chunker

import (
	"unicode/utf8"

	"github.com/dgallion1/iccimport/internal/doctree"
)

// DefaultChunkSize is the default window size in code points.
const DefaultChunkSize = 100_000

// Config controls chunking behavior.
type Config struct {
	ChunkSize int // Maximum window size in code points.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{ChunkSize: DefaultChunkSize}
}

// Split partitions stripped text into consecutive windows of at most
// cfg.ChunkSize code points. Concatenating the chunk texts in sequence order
// reproduces the input exactly; only the last chunk may be shorter.
func Split(text, bookID string, cfg Config) []doctree.Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if text == "" {
		return nil
	}

	n := utf8.RuneCountInString(text)
	chunks := make([]doctree.Chunk, 0, (n+cfg.ChunkSize-1)/cfg.ChunkSize)

	start := 0  // byte offset of the current window
	offset := 0 // code point offset of the current window
	count := 0  // code points in the current window
	for i := range text {
		if count == cfg.ChunkSize {
			chunks = append(chunks, newChunk(text[start:i], offset, len(chunks), bookID))
			start = i
			offset += count
			count = 0
		}
		count++
	}
	chunks = append(chunks, newChunk(text[start:], offset, len(chunks), bookID))

	return chunks
}

func newChunk(text string, offset, seq int, bookID string) doctree.Chunk {
	return doctree.Chunk{
		Offset:   offset,
		Text:     text,
		Sequence: seq,
		BookID:   bookID,
	}
}
