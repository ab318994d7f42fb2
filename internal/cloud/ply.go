package cloud

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
)

// WritePLY writes pts as ASCII PLY with float x/y/z vertex properties,
// the format the rest of the tooling (and common viewers) expect.
func WritePLY(w io.Writer, pts []geom.Vec3) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "ply\n")
	fmt.Fprintf(bw, "format ascii 1.0\n")
	fmt.Fprintf(bw, "element vertex %d\n", len(pts))
	fmt.Fprintf(bw, "property float x\n")
	fmt.Fprintf(bw, "property float y\n")
	fmt.Fprintf(bw, "property float z\n")
	fmt.Fprintf(bw, "end_header\n")
	for _, p := range pts {
		fmt.Fprintf(bw, "%g %g %g\n", p.X, p.Y, p.Z)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write ply: %w", err)
	}
	return nil
}

// WritePLYFile writes pts to path as ASCII PLY.
func WritePLYFile(path string, pts []geom.Vec3) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePLY(f, pts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// ReadPLY parses an ASCII PLY vertex cloud. Only the x/y/z leading
// properties are read; extra per-vertex properties are ignored.
func ReadPLY(r io.Reader) ([]geom.Vec3, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "ply" {
		return nil, fmt.Errorf("ply: missing magic line")
	}

	vertices := -1
	ascii := false
	inHeader := true
	for inHeader && sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "end_header":
			inHeader = false
		case strings.HasPrefix(line, "format "):
			ascii = strings.HasPrefix(line, "format ascii")
		case strings.HasPrefix(line, "element vertex "):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "element vertex")))
			if err != nil {
				return nil, fmt.Errorf("ply: bad vertex count: %w", err)
			}
			vertices = n
		}
	}
	if inHeader {
		return nil, fmt.Errorf("ply: header has no end_header")
	}
	if !ascii {
		return nil, fmt.Errorf("ply: only ascii format is supported")
	}
	if vertices < 0 {
		return nil, fmt.Errorf("ply: header missing element vertex")
	}

	pts := make([]geom.Vec3, 0, vertices)
	for len(pts) < vertices && sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("ply: vertex %d: want 3 coordinates, got %d", len(pts), len(fields))
		}
		var v geom.Vec3
		var err error
		if v.X, err = strconv.ParseFloat(fields[0], 64); err != nil {
			return nil, fmt.Errorf("ply: vertex %d: %w", len(pts), err)
		}
		if v.Y, err = strconv.ParseFloat(fields[1], 64); err != nil {
			return nil, fmt.Errorf("ply: vertex %d: %w", len(pts), err)
		}
		if v.Z, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return nil, fmt.Errorf("ply: vertex %d: %w", len(pts), err)
		}
		pts = append(pts, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ply: %w", err)
	}
	if len(pts) != vertices {
		return nil, fmt.Errorf("ply: header promised %d vertices, body has %d", vertices, len(pts))
	}
	return pts, nil
}

// ReadPLYFile loads an ASCII PLY cloud from path.
func ReadPLYFile(path string) ([]geom.Vec3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	pts, err := ReadPLY(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pts, nil
}
