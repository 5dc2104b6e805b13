package api

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.latency == nil {
		jsonError(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"latency":     s.latency.Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
