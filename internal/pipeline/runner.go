// Package pipeline folds per-frame detector output into an object map over a
// static SLAM scene.
//
// The fold is strictly frame-ordered: frames are consumed in input order and
// every association decision sees the registry state left by all earlier
// detections. Only the per-frame projection of the scene cloud is
// parallelized, which is safe because each worker writes a disjoint range of
// the shared projection buffer.
package pipeline

import (
	"context"
	"runtime"
	"sync"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/detect"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/monitoring"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/objmap"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/region"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/scene"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/track"
)

// minParallelPoints is the cloud size below which parallel projection is not
// worth the goroutine overhead.
const minParallelPoints = 4096

// Stats counts what happened during a run. Skips are absorbed here rather
// than surfaced as errors.
type Stats struct {
	Frames     int `json:"frames"`
	Detections int `json:"detections"`
	LowScore   int `json:"skipped_low_score"`
	NoPoints   int `json:"skipped_no_points"`
	Malformed  int `json:"skipped_malformed"`
	Created    int `json:"tracks_created"`
	Merged     int `json:"observations_merged"`
	Objects    int `json:"objects"`
}

func (s *Stats) count(o track.Outcome) {
	switch o {
	case track.Created:
		s.Created++
	case track.Merged:
		s.Merged++
	case track.SkippedNoPoints:
		s.NoPoints++
	case track.SkippedMalformed:
		s.Malformed++
	}
}

// Runner owns the per-run knobs. The zero value is not usable; populate
// Projector and Params (typically from a config.Config).
type Runner struct {
	Projector geom.Projector
	// Params is the association gate profile used while building.
	Params track.Params
	// MinScore drops detections below this confidence before assignment.
	MinScore float64
	// Workers bounds projection parallelism. Zero means GOMAXPROCS.
	Workers int
	// OnFrame, if set, is called after each frame completes with the
	// number of frames done and the total. Used for progress reporting.
	OnFrame func(done, total int)
}

// Run folds frames into a new object map over sc. The scene and the frames
// are validated up front; a *scene.InputError means nothing was processed.
// Cancellation is honored between frames, never mid-frame, so a returned map
// is always the product of whole frames.
func (r Runner) Run(ctx context.Context, sc *scene.Scene, frames []detect.Frame) (*objmap.Map, Stats, error) {
	var stats Stats

	if err := sc.Validate(); err != nil {
		return nil, stats, err
	}
	if err := validateFrames(sc, frames); err != nil {
		return nil, stats, err
	}

	assigner := region.Assigner{
		ImageWidth:  r.Projector.Intrinsics.Width,
		ImageHeight: r.Projector.Intrinsics.Height,
	}
	reg := track.NewRegistry(sc.Cloud, r.Params)

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	proj := make([]geom.Projection, len(sc.Cloud))

	for i, fr := range frames {
		select {
		case <-ctx.Done():
			return nil, stats, ctx.Err()
		default:
		}

		r.project(proj, sc.Cloud, sc.Poses[fr.Index], workers)

		for _, det := range fr.Detections {
			stats.Detections++
			if det.Score < r.MinScore {
				stats.LowScore++
				continue
			}
			obs := track.Observation{
				FrameIndex:   fr.Index,
				Label:        det.Label,
				Score:        det.Score,
				Box:          det.Box,
				Embedding:    det.Embedding,
				Image:        fr.Image,
				PointIndices: assigner.Assign(proj, det),
			}
			_, outcome := reg.Associate(obs)
			stats.count(outcome)
		}

		stats.Frames++
		if r.OnFrame != nil {
			r.OnFrame(i+1, len(frames))
		}
	}

	m := objmap.Build(reg, sc.Cloud)
	stats.Objects = m.Len()
	monitoring.Logf("pipeline: %d frames, %d detections -> %d objects (%d merged, %d created, %d low score, %d no points, %d malformed)",
		stats.Frames, stats.Detections, stats.Objects,
		stats.Merged, stats.Created, stats.LowScore, stats.NoPoints, stats.Malformed)
	return m, stats, nil
}

// project fills dst with the projection of every cloud point under pose,
// splitting the cloud into contiguous chunks across workers. The result is
// identical to a serial projection.
func (r Runner) project(dst []geom.Projection, pts []geom.Vec3, pose geom.Pose, workers int) {
	if workers <= 1 || len(pts) < minParallelPoints {
		r.Projector.ProjectInto(pts, pose, dst)
		return
	}

	chunk := (len(pts) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(pts); start += chunk {
		end := min(start+chunk, len(pts))
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			r.Projector.ProjectInto(pts[lo:hi], pose, dst[lo:hi])
		}(start, end)
	}
	wg.Wait()
}

// validateFrames rejects detector input the fold cannot interpret: frame
// indices outside the trajectory, frames out of order, or embeddings of
// inconsistent dimension.
func validateFrames(sc *scene.Scene, frames []detect.Frame) error {
	dim := 0
	last := -1
	for _, fr := range frames {
		if fr.Index < 0 || fr.Index >= sc.Frames() {
			return scene.Errorf("detection frame %d outside trajectory [0, %d)", fr.Index, sc.Frames())
		}
		if fr.Index < last {
			return scene.Errorf("detection frames out of order: %d after %d", fr.Index, last)
		}
		last = fr.Index

		for _, det := range fr.Detections {
			if len(det.Embedding) == 0 {
				continue
			}
			if dim == 0 {
				dim = len(det.Embedding)
			} else if len(det.Embedding) != dim {
				return scene.Errorf("embedding dimension mismatch: got %d, want %d (frame %d, label %q)",
					len(det.Embedding), dim, fr.Index, det.Label)
			}
		}
	}
	return nil
}
