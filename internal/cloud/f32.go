package cloud

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
)

// MinMapPoints is the smallest SLAM map worth keeping. Fewer points
// means tracking never settled; downstream mapping on such a cloud
// produces garbage, so the decoder rejects it outright.
const MinMapPoints = 50

// DecodeF32 decodes a raw little-endian float32 buffer from the SLAM
// connector into world points. The connector does not declare its
// per-point layout, so the stride is inferred the way the original
// tooling did: prefer 3 floats per point (xyz), then 4 (xyz+id), then
// 6 (xyz+normal); only the leading xyz of each record is kept.
func DecodeF32(buf []byte) ([]geom.Vec3, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("slam map buffer is empty")
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("slam map buffer is %d bytes, not a float32 array", len(buf))
	}

	floats := len(buf) / 4
	var stride int
	switch {
	case floats%3 == 0:
		stride = 3
	case floats%4 == 0:
		stride = 4
	case floats%6 == 0:
		stride = 6
	default:
		return nil, fmt.Errorf("unknown map layout: %d floats (not divisible by 3/4/6)", floats)
	}

	n := floats / stride
	pts := make([]geom.Vec3, n)
	for i := 0; i < n; i++ {
		off := i * stride * 4
		pts[i] = geom.Vec3{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:]))),
		}
	}

	if n < MinMapPoints {
		return nil, fmt.Errorf("slam map has only %d points (need at least %d); tracking likely never settled", n, MinMapPoints)
	}
	return pts, nil
}

// EncodeF32 encodes points as the 3-stride little-endian float32
// layout, the densest form DecodeF32 accepts.
func EncodeF32(pts []geom.Vec3) []byte {
	buf := make([]byte, len(pts)*12)
	for i, p := range pts {
		off := i * 12
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(p.X)))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(float32(p.Y)))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(float32(p.Z)))
	}
	return buf
}

// DecodeXYZ decodes an exact 3-stride float32 buffer with no minimum
// size. This is the storage layout for per-object clouds, which are
// legitimately small.
func DecodeXYZ(buf []byte) ([]geom.Vec3, error) {
	if len(buf)%12 != 0 {
		return nil, fmt.Errorf("xyz buffer is %d bytes, not a multiple of 12", len(buf))
	}
	n := len(buf) / 12
	pts := make([]geom.Vec3, n)
	for i := 0; i < n; i++ {
		off := i * 12
		pts[i] = geom.Vec3{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:]))),
		}
	}
	return pts, nil
}

// ReadF32File loads a raw float32 cloud dump from path.
func ReadF32File(path string) ([]geom.Vec3, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	pts, err := DecodeF32(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pts, nil
}

// WriteF32File writes a 3-stride float32 cloud dump to path.
func WriteF32File(path string, pts []geom.Vec3) error {
	if err := os.WriteFile(path, EncodeF32(pts), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
