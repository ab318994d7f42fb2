// Package cloud reads, writes and conditions sparse point clouds: the
// ASCII PLY files the static-map exporter produces, the raw float32
// buffers the SLAM connector publishes, and the downsample/outlier-trim
// pass applied before a cloud is used for mapping.
package cloud

import (
	"math/rand"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
)

// Conditioning defaults, tuned on handheld indoor sessions: cap the
// cloud at 20k points and cut the farthest 5% from the centroid, which
// removes most triangulation spray without touching room structure.
const (
	DefaultMaxPoints   = 20000
	DefaultTrimPercent = 95.0
)

// ReadFile loads a point cloud, dispatching on the file extension:
// .ply for ASCII PLY, anything else is treated as a raw little-endian
// float32 buffer (.f32/.bin dumps from the SLAM connector).
func ReadFile(path string) ([]geom.Vec3, error) {
	if strings.EqualFold(filepath.Ext(path), ".ply") {
		return ReadPLYFile(path)
	}
	return ReadF32File(path)
}

// Downsample returns at most max points drawn uniformly without
// replacement. Clouds already within the cap are returned as a copy.
// rng drives the sample; pass a seeded source for reproducible output.
func Downsample(pts []geom.Vec3, max int, rng *rand.Rand) []geom.Vec3 {
	if max <= 0 || len(pts) <= max {
		return append([]geom.Vec3(nil), pts...)
	}
	idx := rng.Perm(len(pts))[:max]
	out := make([]geom.Vec3, max)
	for i, j := range idx {
		out[i] = pts[j]
	}
	return out
}

// TrimOutliers drops points whose distance from the cloud centroid
// reaches the pct-th percentile of all such distances. Points strictly
// under the threshold survive.
func TrimOutliers(pts []geom.Vec3, pct float64) []geom.Vec3 {
	if len(pts) == 0 {
		return nil
	}

	center := geom.Centroid(pts)
	dists := make([]float64, len(pts))
	for i, p := range pts {
		dists[i] = p.DistanceTo(center)
	}

	sorted := append([]float64(nil), dists...)
	sort.Float64s(sorted)
	thr := stat.Quantile(pct/100.0, stat.LinInterp, sorted, nil)

	out := make([]geom.Vec3, 0, len(pts))
	for i, p := range pts {
		if dists[i] < thr {
			out = append(out, p)
		}
	}
	return out
}
