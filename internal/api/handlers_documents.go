package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/dgallion1/layertree/internal/doctree"
	"github.com/dgallion1/layertree/internal/metrics"
	"github.com/dgallion1/layertree/internal/parser"
	"github.com/dgallion1/layertree/internal/selection"
)

type layerSummary struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Visible  bool           `json:"visible"`
	Children []layerSummary `json:"children,omitempty"`
}

type documentSummary struct {
	ID       string         `json:"document_id"`
	Name     string         `json:"name"`
	Source   string         `json:"source"`
	Layers   int            `json:"layers"`
	LoadedAt time.Time      `json:"loaded_at"`
	Pages    []layerSummary `json:"pages,omitempty"`
}

func summarize(doc *doctree.Document, withPages bool) documentSummary {
	s := documentSummary{
		ID:       doc.ID,
		Name:     doc.Name,
		Source:   doc.Source,
		Layers:   doc.Count(),
		LoadedAt: doc.LoadedAt,
	}
	if !withPages {
		return s
	}
	for _, p := range doc.Pages() {
		page := layerSummary{ID: p.ID(), Name: p.Name(), Type: p.Type(), Visible: p.Visible()}
		for _, c := range p.Kids() {
			page.Children = append(page.Children, layerSummary{
				ID: c.ID(), Name: c.Name(), Type: c.Type(), Visible: c.Visible(),
			})
		}
		s.Pages = append(s.Pages, page)
	}
	return s
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	p, err := parser.ForFile(filename, parser.Config{PDFFallback: s.cfg.PDFFallbackPdftotext})
	if err != nil {
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

	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Warn("document rejected", "filename", filename, "error", err)
		jsonError(w, "parse: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	doc.ID = ulid.Make().String()
	if name := strings.TrimSpace(r.FormValue("name")); name != "" {
		doc.Name = name
	}

	s.workspace.Add(doc)
	metrics.SetDocumentsLoaded(len(s.workspace.List()))
	s.log.Info("document loaded", "doc_id", doc.ID, "filename", filename, "layers", doc.Count())

	writeJSON(w, http.StatusCreated, summarize(doc, true))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.workspace.List()
	out := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, summarize(d, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.workspace.Get(chi.URLParam(r, "docID"))
	if doc == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summarize(doc, true))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := s.workspace.Remove(docID); err != nil {
		if errors.Is(err, selection.ErrDocumentNotFound) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.SetDocumentsLoaded(len(s.workspace.List()))
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
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
