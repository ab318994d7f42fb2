package track

import (
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/feature"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
)

// Candidate is one side of a pairwise same-object check: a labeled
// appearance with an optional settled center. Center may be nil when
// the caller has no geometry (the geometry gate is then skipped).
type Candidate struct {
	Label     string
	Embedding []float32
	Center    *geom.Vec3
}

// Decision is the outcome of SameObject. Dist is negative when the
// geometry gate did not run.
type Decision struct {
	Same bool
	Sim  float64
	Dist float64
}

// SameObject decides whether two instances refer to the same physical
// object, using the same gate chain as online association: label,
// cosine similarity, then center distance when both centers are known.
// The serving layer runs this with the strict profile to answer
// "is this fresh observation one of the mapped objects".
func SameObject(a, b Candidate, p Params) Decision {
	d := Decision{Dist: -1}

	if normalizeLabel(a.Label) != normalizeLabel(b.Label) {
		return d
	}

	d.Sim = feature.Cosine(a.Embedding, b.Embedding)
	if d.Sim < p.CosThreshold {
		return d
	}

	if a.Center != nil && b.Center != nil {
		d.Dist = a.Center.DistanceTo(*b.Center)
		if d.Dist > p.DistThreshold {
			return d
		}
	}

	d.Same = true
	return d
}
