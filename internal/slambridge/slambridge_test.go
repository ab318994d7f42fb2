package slambridge

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
)

func poseBuffer(m geom.Mat4) []byte {
	buf := make([]byte, 64)
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}
	return buf
}

func TestDecodePose(t *testing.T) {
	t.Parallel()

	want := geom.Identity()
	want[3] = 1.5  // tx
	want[7] = -2.0 // ty
	want[11] = 0.5 // tz

	got, err := DecodePose(poseBuffer(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.IsValidTransform())
}

func TestDecodePoseRejectsBadLength(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		size int
	}{
		{"empty", 0},
		{"truncated", 60},
		{"extra bytes", 68},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodePose(make([]byte, tc.size))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "want 64")
		})
	}
}

func TestDecodePosePreservesRowMajorOrder(t *testing.T) {
	t.Parallel()

	var m geom.Mat4
	for i := range m {
		m[i] = float64(i)
	}

	got, err := DecodePose(poseBuffer(m))
	require.NoError(t, err)

	// Element (row 1, col 3) of a row-major 4x4 is index 7.
	assert.Equal(t, 7.0, got[7])
	assert.Equal(t, m, got)
}
