// Package objmap finalizes tracks into the persistent object-level map
// and provides the read-only query operations downstream consumers use
// to answer "where is X".
package objmap

import (
	"fmt"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/track"
)

// Record is one finalized physical object. Geometry (Center, BBoxMin,
// BBoxMax, Size, NumPoints) is computed from the full aggregated point
// set at build time, not from the EMA centroid the tracker matched
// with. Records are immutable once built; consumers must not modify
// them.
type Record struct {
	// Key identifies the object as "{label}_{trackID}". It is the map
	// key in every persisted representation and is not repeated inside
	// the serialized record.
	Key string `json:"-"`

	Label   string    `json:"label"`
	TrackID int       `json:"track_id"`
	Center  geom.Vec3 `json:"center"`
	BBoxMin geom.Vec3 `json:"bbox_min"`
	BBoxMax geom.Vec3 `json:"bbox_max"`
	// Size is the axis-aligned extent (bbox_max - bbox_min) in meters.
	Size      geom.Vec3 `json:"size"`
	NumPoints int       `json:"num_points"`
	NumObs    int       `json:"num_obs"`

	// First-detection provenance, frozen when the track was created.
	FirstFrame int        `json:"first_frame_idx"`
	FirstBox   [4]float64 `json:"first_bbox"`
	FirstImage string     `json:"first_frame_path"`

	LastSeenFrame int `json:"last_seen_frame"`

	// Points is the object's aggregated world-frame point cloud, in
	// ascending cloud-index order.
	Points []geom.Vec3 `json:"point_cloud"`

	// Embedding is the track's final appearance vector, kept so a
	// reloaded map can still answer same-object queries.
	Embedding []float32 `json:"embedding"`
}

// Build finalizes every track in the registry into an immutable Map.
// Tracks whose point set came out empty are dropped. Keys are unique by
// construction: the track id is part of the key and ids never repeat.
func Build(reg *track.Registry, cloud []geom.Vec3) *Map {
	tracks := reg.Tracks()
	records := make(map[string]*Record, len(tracks))

	for _, tr := range tracks {
		idx := tr.Points.Sorted()
		if len(idx) == 0 {
			continue
		}

		pts := make([]geom.Vec3, len(idx))
		for i, ci := range idx {
			pts[i] = cloud[ci]
		}

		center := geom.Centroid(pts)
		bmin, bmax := bounds(pts)

		key := fmt.Sprintf("%s_%d", tr.Label, tr.ID)
		records[key] = &Record{
			Key:           key,
			Label:         tr.Label,
			TrackID:       tr.ID,
			Center:        center,
			BBoxMin:       bmin,
			BBoxMax:       bmax,
			Size:          bmax.Sub(bmin),
			NumPoints:     len(pts),
			NumObs:        tr.NumObs,
			FirstFrame:    tr.First.FrameIndex,
			FirstBox:      tr.First.Box,
			FirstImage:    tr.First.Image,
			LastSeenFrame: tr.LastSeen,
			Points:        pts,
			Embedding:     tr.Embedding,
		}
	}

	return FromRecords(records)
}

// bounds returns the componentwise min and max of pts, which must be
// non-empty.
func bounds(pts []geom.Vec3) (geom.Vec3, geom.Vec3) {
	bmin := pts[0]
	bmax := pts[0]
	for _, p := range pts[1:] {
		if p.X < bmin.X {
			bmin.X = p.X
		}
		if p.Y < bmin.Y {
			bmin.Y = p.Y
		}
		if p.Z < bmin.Z {
			bmin.Z = p.Z
		}
		if p.X > bmax.X {
			bmax.X = p.X
		}
		if p.Y > bmax.Y {
			bmax.Y = p.Y
		}
		if p.Z > bmax.Z {
			bmax.Z = p.Z
		}
	}
	return bmin, bmax
}
