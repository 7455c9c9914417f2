package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/iccimport/internal/book"
	"github.com/dgallion1/iccimport/internal/markup"
	"github.com/dgallion1/iccimport/internal/parser"
)

// handlePrepare converts an uploaded source document into prepared markup
// for the delimiter and heading list given in the form.
func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	meta := book.Metadata{
		Delimiter: r.FormValue("delimiter"),
		TOC:       formList(r.MultipartForm.Value["toc"]),
		BookID:    r.FormValue("bookid"),
	}
	if meta.BookID == "" {
		meta.BookID = "0"
	}
	table, err := meta.TagTable()
	if err != nil {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	// Read file data.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	p, err := parser.ForFile(filename, parser.Options{
		Underscores:          r.FormValue("underscores") == "true",
		PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext,
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	prepared, err := parser.Prepare(p, bytes.NewReader(data), table)
	if err != nil {
		s.log.Warn("prepare failed", "filename", filename, "config", errors.Is(err, markup.ErrConfig), "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	s.log.Info("prepared source", "filename", filename, "bytes", len(data), "prepared_bytes", len(prepared))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, prepared)
}

// formList accepts repeated fields and comma-separated values.
func formList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
