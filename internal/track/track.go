// Package track implements the online multi-object association engine:
// a registry of object tracks built up frame by frame from detections
// and the map points that project into them.
//
// Association is greedy and single-pass with three hard gates (label,
// appearance, geometry) followed by a soft score. This mirrors the
// behavior the object maps in production were built with; it is not a
// globally optimal assignment and deliberately stays that way.
package track

import (
	"sort"
	"strings"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
)

// Params are the association gates and scoring weights. They are
// call-site configuration: the offline map builder and the serving
// layer's re-match check run with different values.
type Params struct {
	// CosThreshold is the minimum cosine similarity between a track's
	// embedding and a detection's embedding (appearance gate).
	CosThreshold float64 `json:"cos_threshold" yaml:"cos_threshold"`

	// DistThreshold is the maximum distance in meters between a track's
	// running centroid and a detection's centroid (geometry gate).
	DistThreshold float64 `json:"dist_threshold" yaml:"dist_threshold"`

	// DistancePenalty weights distance against similarity when scoring
	// gate survivors: score = sim - DistancePenalty*dist.
	DistancePenalty float64 `json:"distance_penalty" yaml:"distance_penalty"`
}

// DefaultBuildParams returns the loose profile the online map builder
// runs with. Wide geometry gate: while SLAM is still refining, early
// centroid estimates wander.
func DefaultBuildParams() Params {
	return Params{CosThreshold: 0.75, DistThreshold: 5.0, DistancePenalty: 0.01}
}

// DefaultMatchParams returns the strict profile used for pairwise
// same-object checks against a finished map, where centers are settled.
func DefaultMatchParams() Params {
	return Params{CosThreshold: 0.60, DistThreshold: 0.8, DistancePenalty: 0.01}
}

// Snapshot is the frozen first-detection provenance of a track. It is
// written once at track creation and never touched again, so a map
// consumer can always find the image that introduced an object.
type Snapshot struct {
	FrameIndex int
	Box        [4]float64
	Image      string
}

// Observation is one detection prepared for association: the detection
// fields the gates need plus the indices of the map points assigned to
// its pixel region.
type Observation struct {
	FrameIndex   int
	Label        string
	Score        float64
	Box          [4]float64
	Embedding    []float32
	Image        string
	PointIndices []int
}

// Track is one evolving object hypothesis. Centroid and Embedding are
// exponential moving averages that exist to drive matching decisions;
// final object geometry is recomputed from Points at build time and
// must never be read off the EMA fields.
type Track struct {
	ID        int
	Label     string
	Centroid  geom.Vec3
	Embedding []float32
	NumObs    int
	LastSeen  int
	First     Snapshot
	Points    *IndexSet
}

// clone returns a deep copy safe to hand outside the registry lock.
func (t *Track) clone() Track {
	c := *t
	c.Embedding = append([]float32(nil), t.Embedding...)
	c.Points = t.Points.Clone()
	return c
}

// normalizeLabel is the label-gate canonical form: surrounding
// whitespace stripped, lowercased.
func normalizeLabel(l string) string {
	return strings.ToLower(strings.TrimSpace(l))
}

// IndexSet is a union-only set of point indices. Tracks only ever grow
// their point sets; nothing is removed until the map is finalized.
type IndexSet struct {
	m map[int]struct{}
}

// NewIndexSet builds a set from the given indices.
func NewIndexSet(idx ...int) *IndexSet {
	s := &IndexSet{m: make(map[int]struct{}, len(idx))}
	s.AddAll(idx)
	return s
}

// AddAll unions idx into the set.
func (s *IndexSet) AddAll(idx []int) {
	for _, i := range idx {
		s.m[i] = struct{}{}
	}
}

// Len returns the number of distinct indices.
func (s *IndexSet) Len() int { return len(s.m) }

// Has reports membership.
func (s *IndexSet) Has(i int) bool {
	_, ok := s.m[i]
	return ok
}

// Sorted returns the indices in ascending order. Finalization depends
// on this ordering for deterministic output.
func (s *IndexSet) Sorted() []int {
	out := make([]int, 0, len(s.m))
	for i := range s.m {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Clone returns an independent copy.
func (s *IndexSet) Clone() *IndexSet {
	c := &IndexSet{m: make(map[int]struct{}, len(s.m))}
	for i := range s.m {
		c.m[i] = struct{}{}
	}
	return c
}
