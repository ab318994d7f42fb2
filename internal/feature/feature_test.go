package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	t.Parallel()

	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.6, 0.8}
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-6)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	})

	t.Run("scale invariant", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{10, 20, 30}
		assert.InDelta(t, 1.0, Cosine(a, b), 1e-6)
	})

	t.Run("degenerate inputs fail the gate", func(t *testing.T) {
		assert.Equal(t, 0.0, Cosine(nil, nil))
		assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	})
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 1.0, Norm(v), 1e-6)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	// Zero vector stays finite thanks to the epsilon guard.
	z := Normalize([]float32{0, 0, 0})
	for _, x := range z {
		assert.False(t, math.IsNaN(float64(x)))
		assert.False(t, math.IsInf(float64(x), 0))
	}
}

func TestBlend(t *testing.T) {
	t.Parallel()

	a := []float32{1, 0}
	b := []float32{0, 1}

	half := Blend(a, b, 0.5)
	assert.InDelta(t, 0.5, float64(half[0]), 1e-6)
	assert.InDelta(t, 0.5, float64(half[1]), 1e-6)

	// alpha 0 keeps a, alpha 1 takes b.
	assert.Equal(t, a, Blend(a, b, 0))
	assert.Equal(t, b, Blend(a, b, 1))
}
