// Package detect defines the perception front end's output as this
// system consumes it: per-frame open-vocabulary detections with pixel
// boxes, optional segmentation masks and appearance embeddings.
//
// The detector itself is an external collaborator. It writes one JSON
// object per processed frame (a "detection log"); this package only
// decodes that stream.
package detect

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Detection is one detected object instance in one frame.
type Detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	// Box is x1,y1,x2,y2 in pixels of the source image. Both edges are
	// inclusive when testing point membership.
	Box       [4]float64 `json:"bbox"`
	Embedding []float32  `json:"embedding,omitempty"`
	Mask      *Mask      `json:"mask,omitempty"`
}

// Mask is an optional per-detection segmentation, a row-major byte grid
// where nonzero means inside. It does not have to match the source image
// resolution; consumers resample by nearest neighbor.
type Mask struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"` // base64 in JSON
}

// At reports whether mask cell (x, y) is inside the segment.
// Out-of-range coordinates are outside.
func (m *Mask) At(x, y int) bool {
	if m == nil || x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Data[y*m.Width+x] != 0
}

// WellFormed reports whether the mask's data length matches its
// declared dimensions.
func (m *Mask) WellFormed() bool {
	return m != nil && m.Width > 0 && m.Height > 0 && len(m.Data) == m.Width*m.Height
}

// Frame groups the detections of a single SLAM frame. Index refers into
// the pose sequence of the scene the log was recorded against.
type Frame struct {
	Index      int         `json:"frame"`
	Image      string      `json:"image,omitempty"`
	Detections []Detection `json:"detections"`
}

// ReadLog decodes a detection log: a stream of Frame objects, one per
// processed frame (JSON Lines). Blank separation is irrelevant to the
// decoder; records are validated structurally only. Ordering and
// embedding-dimension checks belong to the pipeline.
func ReadLog(r io.Reader) ([]Frame, error) {
	dec := json.NewDecoder(r)
	var frames []Frame
	for i := 0; ; i++ {
		var f Frame
		if err := dec.Decode(&f); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("detection log record %d: %w", i, err)
		}
		if f.Index < 0 {
			return nil, fmt.Errorf("detection log record %d: negative frame index %d", i, f.Index)
		}
		for j, d := range f.Detections {
			if d.Mask != nil && !d.Mask.WellFormed() {
				return nil, fmt.Errorf("detection log record %d: detection %d: mask %dx%d does not match %d data bytes",
					i, j, d.Mask.Width, d.Mask.Height, len(d.Mask.Data))
			}
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// ReadLogFile reads a detection log from disk.
func ReadLogFile(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open detection log: %w", err)
	}
	defer f.Close()

	frames, err := ReadLog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frames, nil
}
