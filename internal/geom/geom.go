// Package geom holds the shared geometric primitives of the mapping
// pipeline: world points, rigid transforms, camera poses and the pinhole
// projector that moves map points into pixel space.
package geom

import (
	"encoding/json"
	"fmt"
	"math"
)

// Vec3 is a point or vector in the shared world frame, in meters.
// It marshals as a JSON 3-array so exported maps stay compatible with
// the interchange format used by downstream consumers.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// DistanceTo returns the Euclidean distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float64 { return v.Sub(o).Norm() }

// IsFinite reports whether all three components are finite numbers.
func (v Vec3) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// MarshalJSON encodes the vector as [x, y, z].
func (v Vec3) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{v.X, v.Y, v.Z})
}

// UnmarshalJSON decodes a [x, y, z] array.
func (v *Vec3) UnmarshalJSON(data []byte) error {
	var a [3]float64
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("vec3: %w", err)
	}
	v.X, v.Y, v.Z = a[0], a[1], a[2]
	return nil
}

// Centroid returns the mean of the given points. It returns the zero
// vector for an empty slice; callers that care must check first.
func Centroid(pts []Vec3) Vec3 {
	if len(pts) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.Scale(1.0 / float64(len(pts)))
}

// Mat4 is a 4x4 rigid transform stored row-major:
// m00,m01,m02,m03, m10,... Matches the layout the SLAM connector emits.
type Mat4 [16]float64

// Identity returns the identity transform.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Apply transforms p by m.
func (m Mat4) Apply(p Vec3) Vec3 {
	return Vec3{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		Y: m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		Z: m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
	}
}

// matrixValidationTolerance bounds how far the rotation determinant may
// drift from 1 before a transform is rejected.
const matrixValidationTolerance = 0.01

// IsValidTransform checks that m is a proper rigid transform:
// orthonormal rotation submatrix (det ≈ 1) and last row [0 0 0 1].
func (m Mat4) IsValidTransform() bool {
	r00, r01, r02 := m[0], m[1], m[2]
	r10, r11, r12 := m[4], m[5], m[6]
	r20, r21, r22 := m[8], m[9], m[10]

	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	if math.Abs(det-1.0) > matrixValidationTolerance {
		return false
	}

	if m[12] != 0 || m[13] != 0 || m[14] != 0 || math.Abs(m[15]-1.0) > 0.001 {
		return false
	}
	return true
}
