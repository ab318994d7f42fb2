package geom

// Pose is a per-frame camera pose: the world→camera transform the SLAM
// front end estimated for that frame, plus its capture timestamp in unix
// seconds. Poses are immutable and frame-ordered.
type Pose struct {
	Tcw       Mat4
	Timestamp float64
}

// Rotation returns the 3x3 rotation submatrix, row-major.
func (p Pose) Rotation() [9]float64 {
	return [9]float64{
		p.Tcw[0], p.Tcw[1], p.Tcw[2],
		p.Tcw[4], p.Tcw[5], p.Tcw[6],
		p.Tcw[8], p.Tcw[9], p.Tcw[10],
	}
}

// Translation returns the translation column of the transform.
func (p Pose) Translation() Vec3 {
	return Vec3{p.Tcw[3], p.Tcw[7], p.Tcw[11]}
}

// ToCamera moves a world-frame point into this pose's camera frame.
func (p Pose) ToCamera(w Vec3) Vec3 {
	return p.Tcw.Apply(w)
}

// Valid reports whether the underlying transform is a proper rigid
// transform. SLAM occasionally emits garbage poses around tracking loss;
// the scene loader rejects those up front.
func (p Pose) Valid() bool {
	return p.Tcw.IsValidTransform()
}
