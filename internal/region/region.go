// Package region maps a detection's pixel region to the map points that
// project into it. The output is a set of point indices into the scene
// cloud, which is what the track registry associates on.
package region

import (
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/detect"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
)

// Assigner selects the point indices whose projection falls inside a
// detection. ImageWidth/Height describe the resolution the detection
// boxes are expressed in, which is also the projector's image size.
type Assigner struct {
	ImageWidth  int
	ImageHeight int
}

// Assign returns the indices i (into proj, hence into the scene cloud)
// whose valid projection lands inside det's bounding box, intersected
// with det's mask when one is present. Box edges are inclusive. An
// empty result is a normal outcome, not an error; the caller skips the
// detection.
func (a Assigner) Assign(proj []geom.Projection, det detect.Detection) []int {
	x1, y1, x2, y2 := det.Box[0], det.Box[1], det.Box[2], det.Box[3]

	var idx []int
	for i, p := range proj {
		if !p.Valid {
			continue
		}
		if p.U < x1 || p.U > x2 || p.V < y1 || p.V > y2 {
			continue
		}
		if det.Mask != nil && !a.maskHit(det.Mask, p.U, p.V) {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

// maskHit tests pixel (u, v) against the detection mask. When the mask
// resolution differs from the image resolution the coordinates are
// mapped by nearest neighbor and clamped to the mask bounds.
func (a Assigner) maskHit(m *detect.Mask, u, v float64) bool {
	mx := int(u)
	my := int(v)
	if m.Width != a.ImageWidth || m.Height != a.ImageHeight {
		mx = clampInt(int(u/float64(a.ImageWidth)*float64(m.Width)), 0, m.Width-1)
		my = clampInt(int(v/float64(a.ImageHeight)*float64(m.Height)), 0, m.Height-1)
	}
	return m.At(mx, my)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
