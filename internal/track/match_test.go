package track

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
)

func TestSameObject(t *testing.T) {
	t.Parallel()

	p := DefaultMatchParams()
	emb := []float32{1, 0}
	near := geom.Vec3{X: 0, Y: 0, Z: 1}
	far := geom.Vec3{X: 0, Y: 0, Z: 3}

	t.Run("label mismatch", func(t *testing.T) {
		d := SameObject(
			Candidate{Label: "chair", Embedding: emb},
			Candidate{Label: "table", Embedding: emb},
			p,
		)
		assert.False(t, d.Same)
		assert.Equal(t, 0.0, d.Sim, "similarity not computed past the label gate")
	})

	t.Run("label normalization", func(t *testing.T) {
		d := SameObject(
			Candidate{Label: " Chair", Embedding: emb},
			Candidate{Label: "chair ", Embedding: emb},
			p,
		)
		assert.True(t, d.Same)
	})

	t.Run("low similarity", func(t *testing.T) {
		d := SameObject(
			Candidate{Label: "chair", Embedding: emb},
			Candidate{Label: "chair", Embedding: []float32{0, 1}},
			p,
		)
		assert.False(t, d.Same)
		assert.InDelta(t, 0, d.Sim, 1e-9)
	})

	t.Run("no centers skips geometry gate", func(t *testing.T) {
		d := SameObject(
			Candidate{Label: "chair", Embedding: emb},
			Candidate{Label: "chair", Embedding: emb},
			p,
		)
		assert.True(t, d.Same)
		assert.Less(t, d.Dist, 0.0)
	})

	t.Run("near centers pass", func(t *testing.T) {
		other := geom.Vec3{X: 0, Y: 0, Z: 1.5}
		d := SameObject(
			Candidate{Label: "chair", Embedding: emb, Center: &near},
			Candidate{Label: "chair", Embedding: emb, Center: &other},
			p,
		)
		assert.True(t, d.Same)
		assert.InDelta(t, 0.5, d.Dist, 1e-9)
	})

	t.Run("far centers fail strict gate", func(t *testing.T) {
		d := SameObject(
			Candidate{Label: "chair", Embedding: emb, Center: &near},
			Candidate{Label: "chair", Embedding: emb, Center: &far},
			p,
		)
		assert.False(t, d.Same)
		assert.InDelta(t, 2.0, d.Dist, 1e-9)
	})

	t.Run("one center known skips geometry gate", func(t *testing.T) {
		d := SameObject(
			Candidate{Label: "chair", Embedding: emb, Center: &near},
			Candidate{Label: "chair", Embedding: emb},
			p,
		)
		assert.True(t, d.Same)
	})
}

func TestDefaultParams(t *testing.T) {
	t.Parallel()

	build := DefaultBuildParams()
	assert.Equal(t, 0.75, build.CosThreshold)
	assert.Equal(t, 5.0, build.DistThreshold)
	assert.Equal(t, 0.01, build.DistancePenalty)

	match := DefaultMatchParams()
	assert.Equal(t, 0.60, match.CosThreshold)
	assert.Equal(t, 0.8, match.DistThreshold)
	assert.Equal(t, 0.01, match.DistancePenalty)
}
