package pipeline

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/detect"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/scene"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/track"
)

// testIntrinsics is a small synthetic camera: a point at (0,0,2) lands on the
// image center (32,24).
var testIntrinsics = geom.Intrinsics{
	Fx: 100, Fy: 100,
	Cx: 32, Cy: 24,
	Width: 64, Height: 48,
}

func testRunner() Runner {
	return Runner{
		Projector: geom.NewProjector(testIntrinsics),
		Params:    track.DefaultBuildParams(),
		MinScore:  0.25,
	}
}

// testScene has two point clusters in front of an identity camera: one around
// the image center, one 20 px to the right.
func testScene(frames int) *scene.Scene {
	cloud := []geom.Vec3{
		{X: 0, Y: 0, Z: 2},
		{X: 0.02, Y: 0, Z: 2},
		{X: 0, Y: 0.02, Z: 2},
		{X: 0.4, Y: 0, Z: 2},
		{X: 0.42, Y: 0, Z: 2},
	}
	poses := make([]geom.Pose, frames)
	for i := range poses {
		poses[i] = geom.Pose{Tcw: geom.Identity(), Timestamp: float64(i) * 0.1}
	}
	return &scene.Scene{Cloud: cloud, Poses: poses}
}

func emb(dim int, lead float32) []float32 {
	e := make([]float32, dim)
	e[0] = lead
	return e
}

// centerBox covers the cluster at the image center, rightBox the one at
// u ~= 52.
var (
	centerBox = [4]float64{28, 20, 36, 28}
	rightBox  = [4]float64{48, 20, 56, 28}
)

func TestRunBuildsMap(t *testing.T) {
	t.Parallel()

	sc := testScene(2)
	frames := []detect.Frame{
		{
			Index: 0,
			Image: "frame0.png",
			Detections: []detect.Detection{
				{Label: "chair", Score: 0.9, Box: centerBox, Embedding: emb(8, 1)},
			},
		},
		{
			Index: 1,
			Image: "frame1.png",
			Detections: []detect.Detection{
				{Label: "chair", Score: 0.8, Box: centerBox, Embedding: emb(8, 1)},
				{Label: "table", Score: 0.7, Box: rightBox, Embedding: emb(8, -1)},
			},
		},
	}

	m, stats, err := testRunner().Run(context.Background(), sc, frames)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Frames)
	assert.Equal(t, 3, stats.Detections)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 1, stats.Merged)
	assert.Equal(t, 2, stats.Objects)

	assert.Equal(t, []string{"chair_0", "table_1"}, m.Keys())

	chair, err := m.Get("chair_0")
	require.NoError(t, err)
	assert.Equal(t, 2, chair.NumObs)
	assert.Equal(t, 0, chair.FirstFrame)
	assert.Equal(t, "frame0.png", chair.FirstImage)
	assert.Equal(t, 1, chair.LastSeenFrame)
	assert.Equal(t, 3, chair.NumPoints)

	table, err := m.Get("table_1")
	require.NoError(t, err)
	assert.Equal(t, 1, table.NumObs)
	assert.Equal(t, 2, table.NumPoints)
}

func TestRunConfidenceFloor(t *testing.T) {
	t.Parallel()

	sc := testScene(1)
	frames := []detect.Frame{
		{Index: 0, Detections: []detect.Detection{
			{Label: "chair", Score: 0.1, Box: centerBox, Embedding: emb(8, 1)},
			{Label: "chair", Score: 0.9, Box: centerBox, Embedding: emb(8, 1)},
		}},
	}

	m, stats, err := testRunner().Run(context.Background(), sc, frames)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.LowScore)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, m.Len())
}

func TestRunSkipCounters(t *testing.T) {
	t.Parallel()

	sc := testScene(1)
	frames := []detect.Frame{
		{Index: 0, Detections: []detect.Detection{
			// Box in a region with no projected points.
			{Label: "plant", Score: 0.9, Box: [4]float64{0, 40, 5, 47}, Embedding: emb(8, 1)},
			// No embedding at all.
			{Label: "lamp", Score: 0.9, Box: centerBox},
		}},
	}

	m, stats, err := testRunner().Run(context.Background(), sc, frames)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.NoPoints)
	assert.Equal(t, 1, stats.Malformed)
	assert.Equal(t, 0, m.Len())
}

func TestRunInputValidation(t *testing.T) {
	t.Parallel()

	det := detect.Detection{Label: "chair", Score: 0.9, Box: centerBox, Embedding: emb(8, 1)}

	cases := []struct {
		name   string
		scene  *scene.Scene
		frames []detect.Frame
	}{
		{
			name:   "frame index beyond trajectory",
			scene:  testScene(2),
			frames: []detect.Frame{{Index: 5, Detections: []detect.Detection{det}}},
		},
		{
			name:  "frames out of order",
			scene: testScene(3),
			frames: []detect.Frame{
				{Index: 2, Detections: []detect.Detection{det}},
				{Index: 0, Detections: []detect.Detection{det}},
			},
		},
		{
			name:  "embedding dimension mismatch",
			scene: testScene(2),
			frames: []detect.Frame{
				{Index: 0, Detections: []detect.Detection{det}},
				{Index: 1, Detections: []detect.Detection{
					{Label: "chair", Score: 0.9, Box: centerBox, Embedding: emb(16, 1)},
				}},
			},
		},
		{
			name:   "empty cloud",
			scene:  &scene.Scene{Poses: []geom.Pose{{Tcw: geom.Identity()}}},
			frames: []detect.Frame{{Index: 0, Detections: []detect.Detection{det}}},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, _, err := testRunner().Run(context.Background(), tc.scene, tc.frames)
			require.Error(t, err)
			assert.True(t, scene.IsInputError(err), "want InputError, got %v", err)
			assert.Nil(t, m)
		})
	}
}

func TestRunCancellationBetweenFrames(t *testing.T) {
	t.Parallel()

	sc := testScene(3)
	frames := []detect.Frame{
		{Index: 0, Detections: []detect.Detection{{Label: "chair", Score: 0.9, Box: centerBox, Embedding: emb(8, 1)}}},
		{Index: 1, Detections: []detect.Detection{{Label: "chair", Score: 0.9, Box: centerBox, Embedding: emb(8, 1)}}},
		{Index: 2, Detections: []detect.Detection{{Label: "chair", Score: 0.9, Box: centerBox, Embedding: emb(8, 1)}}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := testRunner()
	r.OnFrame = func(done, total int) {
		if done == 1 {
			cancel()
		}
	}

	m, stats, err := r.Run(ctx, sc, frames)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, m)
	assert.Equal(t, 1, stats.Frames, "only the first frame should complete")
}

func TestRunOnFrameProgress(t *testing.T) {
	t.Parallel()

	sc := testScene(2)
	frames := []detect.Frame{{Index: 0}, {Index: 1}}

	var calls [][2]int
	r := testRunner()
	r.OnFrame = func(done, total int) { calls = append(calls, [2]int{done, total}) }

	_, _, err := r.Run(context.Background(), sc, frames)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}

func TestRunNoFrames(t *testing.T) {
	t.Parallel()

	m, stats, err := testRunner().Run(context.Background(), testScene(1), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, Stats{}, stats)
}

// TestParallelProjectionDeterministic checks that chunked projection changes
// nothing about the result: a large scene folded with one worker and with
// eight produces identical maps.
func TestParallelProjectionDeterministic(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	cloud := make([]geom.Vec3, 6000)
	for i := range cloud {
		cloud[i] = geom.Vec3{
			X: rng.Float64()*2 - 1,
			Y: rng.Float64()*2 - 1,
			Z: 1 + rng.Float64()*4,
		}
	}
	sc := &scene.Scene{
		Cloud: cloud,
		Poses: []geom.Pose{{Tcw: geom.Identity(), Timestamp: 0}},
	}
	frames := []detect.Frame{
		{Index: 0, Detections: []detect.Detection{
			{Label: "sofa", Score: 0.9, Box: [4]float64{10, 10, 50, 40}, Embedding: emb(8, 1)},
		}},
	}

	serial := testRunner()
	serial.Workers = 1
	parallel := testRunner()
	parallel.Workers = 8

	m1, _, err := serial.Run(context.Background(), sc, frames)
	require.NoError(t, err)
	m2, _, err := parallel.Run(context.Background(), sc, frames)
	require.NoError(t, err)

	if diff := cmp.Diff(m1.Records(), m2.Records()); diff != "" {
		t.Errorf("parallel fold diverged from serial (-serial +parallel):\n%s", diff)
	}
}
