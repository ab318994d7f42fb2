package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/mapdb"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/objmap"
)

// ObjectSummary is the listing form of a record: identity and geometry
// without the point cloud and embedding payloads.
type ObjectSummary struct {
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Center    geom.Vec3 `json:"center"`
	Size      geom.Vec3 `json:"size"`
	NumPoints int       `json:"num_points"`
	NumObs    int       `json:"num_obs"`
	LastSeen  int       `json:"last_seen_frame"`
}

func summarize(r *objmap.Record) ObjectSummary {
	return ObjectSummary{
		Key:       r.Key,
		Label:     r.Label,
		Center:    r.Center,
		Size:      r.Size,
		NumPoints: r.NumPoints,
		NumObs:    r.NumObs,
		LastSeen:  r.LastSeenFrame,
	}
}

type createSessionRequest struct {
	Path  string `json:"path,omitempty"`
	RunID string `json:"run_id,omitempty"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		m   *objmap.Map
		err error
	)
	switch {
	case req.Path != "" && req.RunID != "":
		writeJSONError(w, http.StatusBadRequest, "provide either path or run_id, not both")
		return
	case req.Path != "":
		if err := s.validateMapPath(req.Path); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		m, err = objmap.ReadJSONFile(req.Path)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("loading map: %v", err))
			return
		}
	case req.RunID != "":
		if s.store == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "no map database configured")
			return
		}
		m, err = s.store.LoadMap(req.RunID)
		if errors.Is(err, mapdb.ErrRunNotFound) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("loading run: %v", err))
			return
		}
	default:
		writeJSONError(w, http.StatusBadRequest, "provide a map path or run_id")
		return
	}

	id := uuid.NewString()
	if err := s.cache.Put(r.Context(), id, m); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("storing session: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": id,
		"objects":    m.Len(),
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("deleting session: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadSession resolves the {id} path segment to a cached map, writing the
// error response itself when the session is unknown.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*objmap.Map, bool) {
	id := r.PathValue("id")
	m, ok, err := s.cache.Get(r.Context(), id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("session lookup: %v", err))
		return nil, false
	}
	if !ok {
		writeJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown session %q", id))
		return nil, false
	}
	return m, true
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	records := m.Records()
	summaries := make([]ObjectSummary, len(records))
	for i, rec := range records {
		summaries[i] = summarize(rec)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(summaries),
		"objects": summaries,
	})
}

func (s *Server) getObject(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	key := r.PathValue("key")
	rec, err := m.Get(key)
	if errors.Is(err, objmap.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) objectsByLabel(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	label := r.PathValue("label")
	records := m.ByLabel(label)
	summaries := make([]ObjectSummary, len(records))
	for i, rec := range records {
		summaries[i] = summarize(rec)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"label":   label,
		"count":   len(summaries),
		"objects": summaries,
	})
}

func (s *Server) objectDistance(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	a := r.URL.Query().Get("a")
	b := r.URL.Query().Get("b")
	if a == "" || b == "" {
		writeJSONError(w, http.StatusBadRequest, "query parameters a and b are required")
		return
	}

	dist, err := m.Distance(a, b)
	if errors.Is(err, objmap.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"a":          a,
		"b":          b,
		"distance_m": dist,
	})
}

type matchRequest struct {
	Label     string     `json:"label"`
	Embedding []float32  `json:"embedding"`
	Center    *geom.Vec3 `json:"center,omitempty"`
}

// matchObject answers whether a fresh observation is one of the mapped
// objects, using the strict match profile rather than the build gates.
func (s *Server) matchObject(w http.ResponseWriter, r *http.Request) {
	m, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	var req matchRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Label == "" {
		writeJSONError(w, http.StatusBadRequest, "label is required")
		return
	}
	if len(req.Embedding) == 0 {
		writeJSONError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	rec, err := m.FindMatching(req.Label, req.Embedding, req.Center, s.cfg.Association.Match)
	if errors.Is(err, objmap.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"matched": false})
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"matched": true,
		"object":  summarize(rec),
	})
}
