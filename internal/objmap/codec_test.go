package objmap

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	m, _ := buildScenarioMap(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, m))

	back, err := ReadJSON(&buf)
	require.NoError(t, err)

	// Every record field must survive the trip exactly, including the
	// per-object point clouds and embeddings.
	if diff := cmp.Diff(m.Records(), back.Records()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, m.Keys(), back.Keys())
}

func TestJSONFieldNames(t *testing.T) {
	t.Parallel()

	m, _ := buildScenarioMap(t)
	data, err := json.Marshal(m)
	require.NoError(t, err)

	// The interchange format downstream viewers consume.
	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	chair, ok := raw["chair_0"]
	require.True(t, ok)

	for _, field := range []string{
		"label", "center", "bbox_min", "bbox_max", "size",
		"num_points", "num_obs", "first_frame_idx", "first_bbox",
		"first_frame_path", "point_cloud", "embedding",
	} {
		assert.Contains(t, chair, field)
	}

	// Vectors serialize as 3-arrays.
	center, ok := chair["center"].([]any)
	require.True(t, ok)
	assert.Len(t, center, 3)
}

func TestJSONFileRoundTrip(t *testing.T) {
	t.Parallel()

	m, _ := buildScenarioMap(t)
	path := filepath.Join(t.TempDir(), "map.json")

	require.NoError(t, WriteJSONFile(path, m))
	back, err := ReadJSONFile(path)
	require.NoError(t, err)
	assert.Equal(t, m.Len(), back.Len())

	key := back.Keys()[0]
	rec, err := back.Get(key)
	require.NoError(t, err)
	assert.Equal(t, key, rec.Key, "keys are restored onto records")
}

func TestReadJSONErrors(t *testing.T) {
	t.Parallel()

	t.Run("syntax error", func(t *testing.T) {
		_, err := ReadJSON(strings.NewReader(`{"chair_0": `))
		assert.Error(t, err)
	})

	t.Run("null record", func(t *testing.T) {
		_, err := ReadJSON(strings.NewReader(`{"chair_0": null}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "null record")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadJSONFile("/nonexistent/map.json")
		assert.Error(t, err)
	})

	t.Run("empty map", func(t *testing.T) {
		m, err := ReadJSON(strings.NewReader(`{}`))
		require.NoError(t, err)
		assert.Equal(t, 0, m.Len())
	})
}
