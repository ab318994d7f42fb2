// Package scene holds the immutable inputs of a mapping run: the shared
// world point cloud and the frame-ordered camera poses, as the SLAM
// front end produced them. Everything here is read-only during the
// online phase; the pipeline validates a Scene once, up front, before
// any track state exists.
package scene

import (
	"errors"
	"fmt"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/cloud"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
)

// InputError is the fatal pre-processing error class: structural
// problems with the run inputs (empty cloud, mismatched counts, bad
// transforms). It is always raised before any track processing begins.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

// Errorf builds an InputError with a formatted reason.
func Errorf(format string, args ...any) *InputError {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}

// IsInputError reports whether err is (or wraps) an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// Scene is one recorded SLAM session: the sparse world cloud plus the
// per-frame camera poses. Frame indices elsewhere in the system refer
// into Poses.
type Scene struct {
	Cloud []geom.Vec3
	Poses []geom.Pose
}

// Frames returns the number of frames in the session.
func (s *Scene) Frames() int { return len(s.Poses) }

// Validate checks the structural invariants the pipeline depends on.
// All violations are InputErrors.
func (s *Scene) Validate() error {
	if len(s.Cloud) == 0 {
		return Errorf("point cloud is empty")
	}
	if len(s.Poses) == 0 {
		return Errorf("no camera poses")
	}
	for i, p := range s.Cloud {
		if !p.IsFinite() {
			return Errorf("cloud point %d is not finite", i)
		}
	}
	for i, p := range s.Poses {
		if !p.Valid() {
			return Errorf("frame %d: not a rigid transform", i)
		}
		if i > 0 && p.Timestamp < s.Poses[i-1].Timestamp {
			return Errorf("frame %d: timestamp %.6f precedes frame %d", i, p.Timestamp, i-1)
		}
	}
	return nil
}

// Load assembles a Scene from a point-cloud file (PLY or raw float32)
// and a trajectory file, then validates it.
func Load(cloudPath, trajectoryPath string) (*Scene, error) {
	pts, err := cloud.ReadFile(cloudPath)
	if err != nil {
		return nil, fmt.Errorf("load cloud: %w", err)
	}
	poses, err := ReadTrajectoryFile(trajectoryPath)
	if err != nil {
		return nil, fmt.Errorf("load trajectory: %w", err)
	}
	s := &Scene{Cloud: pts, Poses: poses}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
