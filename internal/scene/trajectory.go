package scene

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
)

// trajectoryEntry is the wire form of one pose: capture time in unix
// seconds and the row-major 4x4 world→camera transform.
type trajectoryEntry struct {
	T   float64   `json:"t"`
	Tcw []float64 `json:"t_cw"`
}

// ReadTrajectory decodes a JSON trajectory: an array of
// {"t": seconds, "t_cw": [16 floats]} entries in frame order.
func ReadTrajectory(r io.Reader) ([]geom.Pose, error) {
	var entries []trajectoryEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("trajectory: %w", err)
	}

	poses := make([]geom.Pose, len(entries))
	for i, e := range entries {
		if len(e.Tcw) != 16 {
			return nil, fmt.Errorf("trajectory entry %d: transform has %d values, want 16", i, len(e.Tcw))
		}
		var m geom.Mat4
		copy(m[:], e.Tcw)
		poses[i] = geom.Pose{Tcw: m, Timestamp: e.T}
	}
	return poses, nil
}

// ReadTrajectoryFile loads a trajectory from disk.
func ReadTrajectoryFile(path string) ([]geom.Pose, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trajectory: %w", err)
	}
	defer f.Close()

	poses, err := ReadTrajectory(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return poses, nil
}

// WriteTrajectory writes poses in the JSON trajectory format.
func WriteTrajectory(w io.Writer, poses []geom.Pose) error {
	entries := make([]trajectoryEntry, len(poses))
	for i, p := range poses {
		entries[i] = trajectoryEntry{T: p.Timestamp, Tcw: p.Tcw[:]}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode trajectory: %w", err)
	}
	return nil
}

// FrameIndexEntry pairs a capture timestamp with its image filename,
// one line of the sequence index that accompanies a recorded session.
type FrameIndexEntry struct {
	Timestamp float64
	Image     string
}

// ReadFrameIndex parses a sequence index: whitespace-separated
// "<timestamp> <image filename>" lines. Blank lines and lines starting
// with '#' are skipped.
func ReadFrameIndex(r io.Reader) ([]FrameIndexEntry, error) {
	var entries []FrameIndexEntry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("frame index line %d: want \"<timestamp> <image>\", got %q", line, text)
		}
		ts, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("frame index line %d: bad timestamp: %w", line, err)
		}
		entries = append(entries, FrameIndexEntry{Timestamp: ts, Image: fields[1]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("frame index: %w", err)
	}
	return entries, nil
}

// ReadFrameIndexFile loads a sequence index from disk.
func ReadFrameIndexFile(path string) ([]FrameIndexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame index: %w", err)
	}
	defer f.Close()

	entries, err := ReadFrameIndex(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}
