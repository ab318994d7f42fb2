package track

import (
	"sync"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/feature"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
)

// Outcome classifies what Associate did with an observation.
type Outcome int

const (
	// SkippedNoPoints: the detection had no assignable map points.
	SkippedNoPoints Outcome = iota
	// SkippedMalformed: missing label or embedding; nothing mutated.
	SkippedMalformed
	// Created: no track survived the gates; a new one was opened.
	Created
	// Merged: the observation was fused into an existing track.
	Merged
)

func (o Outcome) String() string {
	switch o {
	case SkippedNoPoints:
		return "skipped_no_points"
	case SkippedMalformed:
		return "skipped_malformed"
	case Created:
		return "created"
	case Merged:
		return "merged"
	default:
		return "unknown"
	}
}

// Registry owns the live track set during the online phase. It is the
// only mutator of tracks; everything handed out is a deep copy.
// Associate calls are serialized, readers go through an RLock.
type Registry struct {
	mu     sync.RWMutex
	cloud  []geom.Vec3
	params Params
	tracks []*Track
	nextID int
}

// NewRegistry builds a registry over the shared world cloud. The cloud
// is read-only for the registry's whole lifetime; point indices in
// observations refer into it.
func NewRegistry(cloud []geom.Vec3, params Params) *Registry {
	return &Registry{cloud: cloud, params: params}
}

// Params returns the association parameters the registry was built with.
func (r *Registry) Params() Params {
	return r.params
}

// Len returns the number of tracks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tracks)
}

// Tracks returns deep copies of all tracks in creation (id) order.
func (r *Registry) Tracks() []Track {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Track, 0, len(r.tracks))
	for _, t := range r.tracks {
		out = append(out, t.clone())
	}
	return out
}

// Associate runs the greedy three-gate matcher for one observation and
// either fuses it into the best surviving track or opens a new one.
//
// Gate order is label (case-insensitive exact), appearance (cosine >=
// CosThreshold), geometry (distance <= DistThreshold). Survivors score
// sim - DistancePenalty*dist; the maximum wins and ties go to the
// earliest-created track. Returns the affected track id, or -1 for
// skips.
func (r *Registry) Associate(obs Observation) (int, Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(obs.PointIndices) == 0 {
		return -1, SkippedNoPoints
	}
	if normalizeLabel(obs.Label) == "" || len(obs.Embedding) == 0 {
		return -1, SkippedMalformed
	}

	centroid := r.centroidOf(obs.PointIndices)

	var best *Track
	bestScore := 0.0
	label := normalizeLabel(obs.Label)

	for _, tr := range r.tracks {
		if normalizeLabel(tr.Label) != label {
			continue
		}
		sim := feature.Cosine(obs.Embedding, tr.Embedding)
		if sim < r.params.CosThreshold {
			continue
		}
		dist := centroid.DistanceTo(tr.Centroid)
		if dist > r.params.DistThreshold {
			continue
		}
		score := sim - r.params.DistancePenalty*dist
		// Strict > keeps the earliest-created survivor on ties; tracks
		// iterate in creation order.
		if best == nil || score > bestScore {
			best = tr
			bestScore = score
		}
	}

	if best == nil {
		t := &Track{
			ID:        r.nextID,
			Label:     obs.Label,
			Centroid:  centroid,
			Embedding: append([]float32(nil), obs.Embedding...),
			NumObs:    1,
			LastSeen:  obs.FrameIndex,
			First: Snapshot{
				FrameIndex: obs.FrameIndex,
				Box:        obs.Box,
				Image:      obs.Image,
			},
			Points: NewIndexSet(obs.PointIndices...),
		}
		r.tracks = append(r.tracks, t)
		r.nextID++
		return t.ID, Created
	}

	alpha := 1.0 / float64(best.NumObs+1)
	best.Centroid = best.Centroid.Scale(1 - alpha).Add(centroid.Scale(alpha))
	best.Embedding = feature.Normalize(feature.Blend(best.Embedding, obs.Embedding, alpha))
	best.Points.AddAll(obs.PointIndices)
	best.NumObs++
	best.LastSeen = obs.FrameIndex
	return best.ID, Merged
}

// centroidOf gathers the mean world coordinate of the given cloud
// indices. Indices are trusted; the pipeline validates inputs before
// any association starts.
func (r *Registry) centroidOf(idx []int) geom.Vec3 {
	var sum geom.Vec3
	for _, i := range idx {
		sum = sum.Add(r.cloud[i])
	}
	return sum.Scale(1.0 / float64(len(idx)))
}
