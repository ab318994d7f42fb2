// Package config loads and validates runtime configuration for the object
// mapping pipeline, the query server, and the SLAM bridge.
//
// Configuration lives in a single YAML file. Every field has a default, so a
// missing file or an empty document yields a fully usable Config; a file only
// overrides the fields it names. Unknown fields are rejected.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/cloud"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/geom"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/track"
)

// maxFileSize bounds how much of a config file we are willing to read.
// Config files are a few hundred bytes; anything near this limit is a
// mistake, not a configuration.
const maxFileSize = 1 << 20

// Camera holds the pinhole intrinsics of the camera the detections were
// produced from. Defaults match the EuRoC MH sequences.
type Camera struct {
	Fx     float64 `yaml:"fx" validate:"gt=0"`
	Fy     float64 `yaml:"fy" validate:"gt=0"`
	Cx     float64 `yaml:"cx" validate:"gt=0"`
	Cy     float64 `yaml:"cy" validate:"gt=0"`
	Width  int     `yaml:"width" validate:"gt=0"`
	Height int     `yaml:"height" validate:"gt=0"`
}

// Intrinsics converts the camera block to the projection type.
func (c Camera) Intrinsics() geom.Intrinsics {
	return geom.Intrinsics{
		Fx: c.Fx, Fy: c.Fy,
		Cx: c.Cx, Cy: c.Cy,
		Width: c.Width, Height: c.Height,
	}
}

// Depth bounds the depth range a projected point must fall in to count as
// visible.
type Depth struct {
	Min float64 `yaml:"min" validate:"gt=0"`
	Max float64 `yaml:"max" validate:"gtfield=Min"`
}

// Association holds the two gate profiles: Build is used while folding
// detections into the map, Match is the stricter profile used when deciding
// whether a live observation is an already-mapped object.
type Association struct {
	Build track.Params `yaml:"build"`
	Match track.Params `yaml:"match"`
}

// Detection filters incoming detector output.
type Detection struct {
	// MinScore drops detections below this confidence before they reach
	// association.
	MinScore float64 `yaml:"min_score" validate:"gte=0,lte=1"`
}

// CloudPrep controls offline point cloud conditioning.
type CloudPrep struct {
	MaxPoints   int     `yaml:"max_points" validate:"gt=0"`
	TrimPercent float64 `yaml:"trim_percent" validate:"gt=0,lte=100"`
}

// Server configures the HTTP query layer.
type Server struct {
	Addr string `yaml:"addr" validate:"required"`
	// SessionTTLSeconds expires idle sessions from the session cache.
	// Zero keeps sessions until explicitly deleted.
	SessionTTLSeconds int `yaml:"session_ttl_seconds" validate:"gte=0"`
	// MapDirs whitelists directories the sessions endpoint may load map
	// JSON files from. Empty allows only the current working directory.
	MapDirs []string `yaml:"map_dirs"`
}

// Redis configures the SLAM bridge and the optional Redis session cache.
// The key names default to the upstream SLAM publisher's contract.
type Redis struct {
	Addr           string `yaml:"addr" validate:"required"`
	MapKey         string `yaml:"map_key" validate:"required"`
	PoseKey        string `yaml:"pose_key" validate:"required"`
	RequestChannel string `yaml:"request_channel" validate:"required"`
	PollIntervalMS int    `yaml:"poll_interval_ms" validate:"gt=0"`
	FetchTimeoutMS int    `yaml:"fetch_timeout_ms" validate:"gt=0"`
	SessionPrefix  string `yaml:"session_prefix" validate:"required"`
}

// Config is the root configuration document.
type Config struct {
	Camera      Camera      `yaml:"camera"`
	Depth       Depth       `yaml:"depth"`
	Association Association `yaml:"association"`
	Detection   Detection   `yaml:"detection"`
	CloudPrep   CloudPrep   `yaml:"cloud_prep"`
	Server      Server      `yaml:"server"`
	Redis       Redis       `yaml:"redis"`
}

// Default returns the built-in configuration: EuRoC camera intrinsics, the
// standard build/match association profiles, and the upstream SLAM key names.
func Default() Config {
	return Config{
		Camera: Camera{
			Fx:    458.654,
			Fy:    457.296,
			Cx:    367.215,
			Cy:    248.375,
			Width: 752, Height: 480,
		},
		Depth: Depth{
			Min: geom.DefaultMinDepth,
			Max: geom.DefaultMaxDepth,
		},
		Association: Association{
			Build: track.DefaultBuildParams(),
			Match: track.DefaultMatchParams(),
		},
		Detection: Detection{MinScore: 0.25},
		CloudPrep: CloudPrep{
			MaxPoints:   cloud.DefaultMaxPoints,
			TrimPercent: cloud.DefaultTrimPercent,
		},
		Server: Server{
			Addr:              ":8080",
			SessionTTLSeconds: 0,
		},
		Redis: Redis{
			Addr:           "127.0.0.1:6379",
			MapKey:         "orbSlam_Map",
			PoseKey:        "orbSlam_Pose",
			RequestChannel: "orbSlam_getMap",
			PollIntervalMS: 1000,
			FetchTimeoutMS: 15000,
			SessionPrefix:  "objectmap:session:",
		},
	}
}

// Projector builds a projector from the camera and depth blocks.
func (c Config) Projector() geom.Projector {
	p := geom.NewProjector(c.Camera.Intrinsics())
	p.MinDepth = c.Depth.Min
	p.MaxDepth = c.Depth.Max
	return p
}

// Load reads a YAML config file, overlays it on Default, and validates the
// result. An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if err := checkPath(path); err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if len(data) > maxFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", len(data), maxFileSize)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", filepath.Base(path), err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Validate checks tag constraints plus the range rules the tags cannot
// express.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}
	if err := validateParams("association.build", c.Association.Build); err != nil {
		return err
	}
	if err := validateParams("association.match", c.Association.Match); err != nil {
		return err
	}
	return nil
}

func validateParams(name string, p track.Params) error {
	if p.CosThreshold < -1 || p.CosThreshold > 1 {
		return fmt.Errorf("%s: cos_threshold %v outside [-1, 1]", name, p.CosThreshold)
	}
	if p.DistThreshold <= 0 {
		return fmt.Errorf("%s: dist_threshold %v must be positive", name, p.DistThreshold)
	}
	if p.DistancePenalty < 0 {
		return fmt.Errorf("%s: distance_penalty %v must not be negative", name, p.DistancePenalty)
	}
	return nil
}

func checkPath(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must be .yaml or .yml, got %q", ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}
	return nil
}
