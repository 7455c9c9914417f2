package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgallion1/iccimport/internal/book"
	"github.com/dgallion1/iccimport/internal/chunker"
	"github.com/dgallion1/iccimport/internal/doctree"
	"github.com/dgallion1/iccimport/internal/markup"
	"github.com/dgallion1/iccimport/internal/pipeline"
)

type convertRequest struct {
	Metadata  book.Metadata `json:"metadata"`
	Text      string        `json:"text"`
	ChunkSize int           `json:"chunk_size,omitempty"`
}

type convertResponse struct {
	BookID      string              `json:"bookid"`
	Digest      string              `json:"digest"`
	Chunks      []doctree.Chunk     `json:"chunks"`
	Annotations []markup.Annotation `json:"annotations"`
}

// handleConvert runs one conversion synchronously and returns both data
// products in a single response.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonError(w, fmt.Sprintf("request exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.Metadata.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	chunkCfg := chunker.Config{ChunkSize: s.cfg.ChunkSize}
	if req.ChunkSize > 0 {
		chunkCfg.ChunkSize = req.ChunkSize
	}

	log := s.log.With("book_id", req.Metadata.BookID)
	start := time.Now()
	res, err := pipeline.Convert(req.Metadata, req.Text, chunkCfg, log)
	if err != nil {
		s.stats.Record(time.Since(start), 0, err)
		log.Warn("conversion failed", "error", err)
		conversionError(w, err)
		return
	}
	s.stats.Record(time.Since(start), res.CodePoints(), nil)

	chunks := res.Chunks
	if chunks == nil {
		chunks = []doctree.Chunk{}
	}
	data, err := pipeline.EncodeJSON(convertResponse{
		BookID:      res.BookID,
		Digest:      res.Digest,
		Chunks:      chunks,
		Annotations: res.Annotations,
	})
	if err != nil {
		jsonError(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// conversionError maps a failed conversion to a response. Markup and
// configuration problems are the caller's to fix; anything else is ours.
func conversionError(w http.ResponseWriter, err error) {
	var merr *markup.MarkupError
	switch {
	case errors.As(err, &merr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error":    err.Error(),
			"literal":  merr.Literal,
			"expected": merr.Expected,
			"line":     merr.Line,
			"pos":      merr.Pos,
		})
	case errors.Is(err, markup.ErrConfig):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"window": s.cfg.StatsWindow.String(),
		"stats":  s.stats.Snapshot(),
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
