// Package api serves object maps over HTTP. Maps are loaded into sessions
// (from JSON files or saved database runs) and queried by key, label,
// pairwise distance, or same-object matching.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/config"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/mapdb"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/timeutil"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server answers object map queries. The store is optional; without it the
// run endpoints report the database as unconfigured.
type Server struct {
	cache SessionCache
	store *mapdb.DB
	cfg   config.Config
	clock timeutil.Clock
	start time.Time
}

// NewServer wires the query layer together. A nil clock falls back to the
// wall clock; a nil cache gets an in-memory one with the configured TTL.
func NewServer(cfg config.Config, cache SessionCache, store *mapdb.DB, clock timeutil.Clock) *Server {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if cache == nil {
		ttl := time.Duration(cfg.Server.SessionTTLSeconds) * time.Second
		cache = NewMemorySessionCache(clock, ttl)
	}
	return &Server{
		cache: cache,
		store: store,
		cfg:   cfg,
		clock: clock,
		start: clock.Now(),
	}
}

// ServeMux routes every endpoint the server exposes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.deleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/objects", s.listObjects)
	mux.HandleFunc("GET /api/sessions/{id}/objects/{key}", s.getObject)
	mux.HandleFunc("GET /api/sessions/{id}/labels/{label}", s.objectsByLabel)
	mux.HandleFunc("GET /api/sessions/{id}/distance", s.objectDistance)
	mux.HandleFunc("POST /api/sessions/{id}/match", s.matchObject)
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("DELETE /api/runs/{id}", s.deleteRun)
	mux.HandleFunc("GET /debug/map/chart", s.mapChart)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"service":        "objectmap",
		"version":        version.Version,
		"uptime_seconds": int64(s.clock.Since(s.start).Seconds()),
		"database":       s.store != nil,
	}
	if sized, ok := s.cache.(interface{ Len() int }); ok {
		resp["sessions"] = sized.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
