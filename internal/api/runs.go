package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/mapdb"
)

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no map database configured")
		return
	}

	runs, err := s.store.ListRuns()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("listing runs: %v", err))
		return
	}
	if runs == nil {
		runs = []mapdb.RunInfo{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(runs),
		"runs":  runs,
	})
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no map database configured")
		return
	}

	err := s.store.DeleteRun(r.PathValue("id"))
	if errors.Is(err, mapdb.ErrRunNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("deleting run: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
