package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/config"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/mapdb"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/objmap"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/track"
)

// scenarioMap builds a two-object map: chair_0 centered at (0,0,1.25) and
// table_1 at (2,0,5), exactly 4.25 m apart.
func scenarioMap(t *testing.T) *objmap.Map {
	t.Helper()

	cloud := []geom.Vec3{
		{X: 0, Y: 0, Z: 1},
		{X: 0, Y: 0, Z: 1.5},
		{X: 2, Y: 0, Z: 5},
	}
	reg := track.NewRegistry(cloud, track.DefaultBuildParams())

	_, out := reg.Associate(track.Observation{
		FrameIndex:   0,
		Label:        "chair",
		Embedding:    []float32{1, 0},
		Box:          [4]float64{10, 20, 110, 220},
		Image:        "frame_000000.png",
		PointIndices: []int{0, 1},
	})
	require.Equal(t, track.Created, out)

	_, out = reg.Associate(track.Observation{
		FrameIndex:   3,
		Label:        "table",
		Embedding:    []float32{0, 1},
		PointIndices: []int{2},
	})
	require.Equal(t, track.Created, out)

	return objmap.Build(reg, cloud)
}

func testConfig(mapDirs ...string) config.Config {
	cfg := config.Default()
	cfg.Server.MapDirs = mapDirs
	return cfg
}

// newTestServer returns a wired server plus a session id holding the
// scenario map.
func newTestServer(t *testing.T, store *mapdb.DB) (*Server, string) {
	t.Helper()

	srv := NewServer(testConfig(t.TempDir()), nil, store, nil)
	m := scenarioMap(t)
	require.NoError(t, srv.cache.Put(context.Background(), "test-session", m))
	return srv, "test-session"
}

func doRequest(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	rr := doRequest(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Status   string `json:"status"`
		Service  string `json:"service"`
		Sessions int    `json:"sessions"`
		Database bool   `json:"database"`
		Uptime   int64  `json:"uptime_seconds"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "objectmap", resp.Service)
	assert.Equal(t, 1, resp.Sessions)
	assert.False(t, resp.Database)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv, id := newTestServer(t, nil)
	rr := doRequest(t, srv, http.MethodPut, "/api/sessions/"+id+"/objects", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestLoggingMiddleware(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)
	handler := LoggingMiddleware(srv.ServeMux())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStatusCodeColor(t *testing.T) {
	t.Parallel()

	assert.Contains(t, statusCodeColor(200), "200")
	assert.Contains(t, statusCodeColor(200), colorBoldGreen)
	assert.Contains(t, statusCodeColor(302), colorYellow)
	assert.Contains(t, statusCodeColor(404), colorBoldRed)
	assert.Contains(t, statusCodeColor(500), colorBoldRed)
}

func TestMapChart(t *testing.T) {
	t.Parallel()

	srv, id := newTestServer(t, nil)

	rr := doRequest(t, srv, http.MethodGet, "/debug/map/chart?session="+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "chair_0")
	assert.Contains(t, rr.Body.String(), "table_1")
}

func TestMapChartErrors(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, nil)

	rr := doRequest(t, srv, http.MethodGet, "/debug/map/chart", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, srv, http.MethodGet, "/debug/map/chart?session=nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
