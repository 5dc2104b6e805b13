package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docoutline/internal/store"
)

// handleListResults lists cached results in content-hash order.
func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		jsonError(w, "result store disabled", http.StatusNotFound)
		return
	}
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	recs, err := s.results.List(limit)
	if err != nil {
		jsonError(w, "failed to list results: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": recs})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		jsonError(w, "result store disabled", http.StatusNotFound)
		return
	}
	rec, err := s.results.Get(chi.URLParam(r, "hash"))
	if err != nil {
		resultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		jsonError(w, "result store disabled", http.StatusNotFound)
		return
	}
	hash := chi.URLParam(r, "hash")
	if err := s.results.Delete(hash); err != nil {
		resultError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": hash})
}

func resultError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "result not found", http.StatusNotFound)
		return
	}
	jsonError(w, err.Error(), http.StatusInternalServerError)
}
