package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures formatted lines so tests can see what was logged.
// Tests mutate the package-level logger, so none of them run in parallel.
type recorder struct {
	lines []string
}

func (r *recorder) logf(format string, v ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

func TestSetLoggerRedirects(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	var rec recorder
	SetLogger(rec.logf)

	Logf("projected %d points into frame %d", 42, 7)

	require.Len(t, rec.lines, 1)
	assert.Equal(t, "projected 42 points into frame 7", rec.lines[0])
}

func TestSetLoggerNilMutes(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	var rec recorder
	SetLogger(rec.logf)
	SetLogger(nil)

	assert.NotPanics(t, func() { Logf("dropped: %v", 1) })
	assert.Empty(t, rec.lines)
}

func TestMute(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	var rec recorder
	SetLogger(rec.logf)
	Mute()

	Logf("skipped %d detections", 3)

	assert.Empty(t, rec.lines)
}

func TestDefaultLoggerIsLive(t *testing.T) {
	require.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("diagnostic: %s", "ok") })
}
