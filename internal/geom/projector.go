package geom

import "math"

// Intrinsics holds the pinhole camera model: focal lengths and principal
// point in pixels, plus the image size projections are checked against.
type Intrinsics struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
	// Width and Height bound the valid pixel region [0,w) x [0,h).
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Projection is the image of one world point under a camera pose.
// U/V are pixel coordinates, Depth is the camera-frame z in meters.
// Valid is false when the point is behind the camera, outside the
// depth bounds, or lands off-image.
type Projection struct {
	U     float64
	V     float64
	Depth float64
	Valid bool
}

// depthEpsilon guards the perspective division. Depths with magnitude
// under this are clamped before dividing; such points are never valid.
const depthEpsilon = 1e-6

// Default depth gates for the handheld indoor rig the system was tuned
// on. Points nearer than MinDepth sit on the camera housing or are
// triangulation noise; points past MaxDepth are unreliable for a sparse
// indoor map.
const (
	DefaultMinDepth = 0.1
	DefaultMaxDepth = 30.0
)

// Projector projects world points into a camera's pixel frame.
// It is a pure value type: Project has no side effects and the same
// inputs always produce the same output.
type Projector struct {
	Intrinsics Intrinsics
	MinDepth   float64
	MaxDepth   float64
}

// NewProjector builds a Projector with the default depth gates.
func NewProjector(in Intrinsics) Projector {
	return Projector{Intrinsics: in, MinDepth: DefaultMinDepth, MaxDepth: DefaultMaxDepth}
}

// Project projects every point through pose and returns one Projection
// per input point, index-aligned with points.
func (pr Projector) Project(points []Vec3, pose Pose) []Projection {
	out := make([]Projection, len(points))
	pr.ProjectInto(points, pose, out)
	return out
}

// ProjectInto writes projections for points[i] into out[i]. The two
// slices must have equal length. Distinct index ranges can be filled
// concurrently, which is how the pipeline parallelizes large clouds.
func (pr Projector) ProjectInto(points []Vec3, pose Pose, out []Projection) {
	in := pr.Intrinsics
	w := float64(in.Width)
	h := float64(in.Height)

	for i, p := range points {
		c := pose.ToCamera(p)

		z := c.Z
		zSafe := z
		if math.Abs(zSafe) < depthEpsilon {
			zSafe = depthEpsilon
		}

		u := in.Fx*c.X/zSafe + in.Cx
		v := in.Fy*c.Y/zSafe + in.Cy

		out[i] = Projection{
			U:     u,
			V:     v,
			Depth: z,
			Valid: z > pr.MinDepth && z < pr.MaxDepth &&
				u >= 0 && u < w && v >= 0 && v < h,
		}
	}
}
