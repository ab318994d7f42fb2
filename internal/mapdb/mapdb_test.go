package mapdb

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/objmap"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/track"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "maps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// testMap builds a two-object map. Coordinates are float32-exact so the
// point blob round trip is bit-faithful.
func testMap(t *testing.T) *objmap.Map {
	t.Helper()

	cloud := []geom.Vec3{
		{X: 0.5, Y: -1.25, Z: 1},
		{X: 0.5, Y: -1.25, Z: 1.5},
		{X: 2, Y: 0.25, Z: 5},
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

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	m := testMap(t)

	runID, err := db.SaveMap("office scan", m)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	loaded, err := db.LoadMap(runID)
	require.NoError(t, err)

	if diff := cmp.Diff(m.Records(), loaded.Records()); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
	assert.Equal(t, m.Keys(), loaded.Keys())
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	m := testMap(t)

	id1, err := db.SaveMap("first", m)
	require.NoError(t, err)
	id2, err := db.SaveMap("second", m)
	require.NoError(t, err)

	runs, err := db.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byID := map[string]RunInfo{}
	for _, r := range runs {
		byID[r.RunID] = r
		assert.False(t, r.CreatedAt.IsZero())
	}
	require.Contains(t, byID, id1)
	require.Contains(t, byID, id2)
	assert.Equal(t, "first", byID[id1].Name)
	assert.Equal(t, 2, byID[id1].ObjectCount)
	assert.Equal(t, 3, byID[id1].PointCount)
}

func TestLoadMissingRun(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	_, err := db.LoadMap("no-such-run")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestDeleteRun(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	runID, err := db.SaveMap("to delete", testMap(t))
	require.NoError(t, err)

	require.NoError(t, db.DeleteRun(runID))

	_, err = db.LoadMap(runID)
	require.ErrorIs(t, err, ErrRunNotFound)

	// Objects cascade with the run.
	var n int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM map_objects WHERE run_id = ?`, runID).Scan(&n))
	assert.Equal(t, 0, n)

	require.ErrorIs(t, db.DeleteRun(runID), ErrRunNotFound)
}

func TestSaveEmptyMap(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	empty := objmap.FromRecords(nil)

	runID, err := db.SaveMap("empty", empty)
	require.NoError(t, err)

	loaded, err := db.LoadMap(runID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "maps.db")

	db1, err := Open(path)
	require.NoError(t, err)
	runID, err := db1.SaveMap("persisted", testMap(t))
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	// Reopening migrates nothing and keeps the data.
	db2, err := Open(path)
	require.NoError(t, err)
	defer db2.Close()

	loaded, err := db2.LoadMap(runID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
}

func TestEmbeddingBlobRoundTrip(t *testing.T) {
	t.Parallel()

	emb := []float32{0.25, -1, 3.5, 0}
	back, err := decodeEmbedding(encodeEmbedding(emb))
	require.NoError(t, err)
	assert.Equal(t, emb, back)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}
