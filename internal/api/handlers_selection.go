package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/layertree/internal/doctree"
	"github.com/dgallion1/layertree/internal/selection"
	"github.com/dgallion1/layertree/internal/walker"
)

const maxRunWait = 30 * time.Second

type selectRequest struct {
	DocumentID string   `json:"document_id"`
	NodeIDs    []string `json:"node_ids"`
}

type selectedNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	runID, err := s.workspace.Select(req.DocumentID, req.NodeIDs)
	if err != nil {
		if errors.Is(err, selection.ErrDocumentNotFound) || errors.Is(err, selection.ErrNodeNotFound) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"selection": s.workspace.Refs(),
		"run_id":    runID,
	})
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	nodes := s.workspace.Selection()
	out := make([]selectedNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, selectedNode{ID: n.ID(), Name: n.Name(), Type: n.Type(), Path: doctree.Path(n)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"selection": s.workspace.Refs(),
		"nodes":     out,
	})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	runID := s.workspace.Clear()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"selection": []selection.Ref{},
		"run_id":    runID,
	})
}

// handleRefresh merges an options patch into the cache and re-walks the
// current selection. An empty body just re-walks.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var patch walker.Patch
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&patch); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	run := s.orchestrator.RefreshRun(r.Context(), patch)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":  run.ID,
		"options": run.Options,
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.Options())
}

// handleGetRun returns a run. With ?wait=<duration> it blocks until the run
// finishes or the wait (capped at 30s) expires.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run := s.orchestrator.GetRun(chi.URLParam(r, "runID"))
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}

	if v := r.URL.Query().Get("wait"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			jsonError(w, "invalid wait duration", http.StatusBadRequest)
			return
		}
		d = min(d, maxRunWait)
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-run.Done():
		case <-timer.C:
		case <-r.Context().Done():
			return
		}
	}

	writeJSON(w, http.StatusOK, run.Snapshot())
}
