// Package feature implements the small amount of vector math the tracker
// needs for appearance embeddings: cosine similarity, L2 normalization
// and the EMA blend used when fusing a matched detection into a track.
//
// Embeddings are float32 (that is how perception front ends emit them);
// accumulation happens in float64 to keep the gates stable.
package feature

import "math"

// normEpsilon keeps divisions finite for degenerate (near-zero) vectors.
const normEpsilon = 1e-8

// Cosine returns the cosine similarity between a and b. Vectors are not
// assumed pre-normalized; both norms participate in the denominator.
// Mismatched lengths or empty inputs return 0, failing every
// appearance gate rather than panicking mid-frame.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + normEpsilon)
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

// Normalize returns a unit-norm copy of v.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v) + normEpsilon
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Blend returns (1-alpha)*a + alpha*b. Slices must be equal length;
// the tracker validates dimensions before blending.
func Blend(a, b []float32, alpha float64) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = float32((1-alpha)*float64(a[i]) + alpha*float64(b[i]))
	}
	return out
}
