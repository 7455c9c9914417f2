package pipeline

import (
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/iccimport/internal/book"
	"github.com/dgallion1/iccimport/internal/chunker"
	"github.com/dgallion1/iccimport/internal/config"
	"github.com/dgallion1/iccimport/internal/doctree"
	"github.com/dgallion1/iccimport/internal/markup"
	"github.com/dgallion1/iccimport/internal/toc"
)

// Result holds both data products of one conversion.
type Result struct {
	BookID      string
	Stripped    string
	Chunks      []doctree.Chunk
	Annotations []markup.Annotation
	Digest      string
	Literals    int
}

// CodePoints returns the length of the stripped text.
func (r *Result) CodePoints() int {
	return utf8.RuneCountInString(r.Stripped)
}

// Convert turns one book's raw markup into chunks and annotations. A fresh
// tag table is built for every call.
func Convert(meta book.Metadata, raw string, chunkCfg chunker.Config, log *slog.Logger) (*Result, error) {
	table, err := meta.TagTable()
	if err != nil {
		return nil, fmt.Errorf("tag table: %w", err)
	}
	d := table.Delimiter()
	log.Debug("built tag table", "open", d[0], "close", d[1], "headings", table.Depth())

	// Phase 1: Scan
	scanned, err := markup.Scan(raw, table)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	log.Debug("scanned markup", "annotations", len(scanned.Annotations), "literals", scanned.Literals, "removed", scanned.Removed)

	// Phase 2: Strip and cross-check the offset correction.
	stripped := markup.Strip(raw, table)
	if err := markup.CheckCorrection(raw, stripped, scanned); err != nil {
		return nil, fmt.Errorf("strip: %w", err)
	}

	// Phase 3: Link headings and fill their content.
	anns, err := toc.Resolve(scanned.Annotations, meta.Root())
	if err != nil {
		return nil, fmt.Errorf("resolve toc: %w", err)
	}
	if err := toc.FillContent(anns, stripped); err != nil {
		return nil, fmt.Errorf("slice content: %w", err)
	}

	// Phase 4: Chunk
	chunks := chunker.Split(stripped, meta.BookID, chunkCfg)
	log.Debug("chunked text", "chunks", len(chunks))

	return &Result{
		BookID:      meta.BookID,
		Stripped:    stripped,
		Chunks:      chunks,
		Annotations: anns,
		Digest:      ContentDigest(stripped),
		Literals:    scanned.Literals,
	}, nil
}

// Run converts the book in dir and writes both output files into it. Nothing
// is written unless the whole conversion succeeds.
func Run(dir string, cfg config.Config, log *slog.Logger) (*Result, error) {
	start := time.Now()
	log = log.With("dir", dir)

	b, err := book.Load(dir, cfg.MetadataFile, cfg.TextFile)
	if err != nil {
		log.Error("load failed", "error", err)
		return nil, err
	}
	log = log.With("book_id", b.Meta.BookID)

	res, err := Convert(b.Meta, b.Raw, chunker.Config{ChunkSize: cfg.ChunkSize}, log)
	if err != nil {
		log.Error("conversion failed", "error", err)
		return nil, err
	}

	if err := WriteOutputs(dir, cfg.ChunksFile, cfg.AnnotationsFile, res); err != nil {
		log.Error("write failed", "error", err)
		return nil, err
	}

	log.Info("conversion complete",
		"annotations", len(res.Annotations),
		"chunks", len(res.Chunks),
		"code_points", res.CodePoints(),
		"digest", res.Digest,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
