// Command cloudprep conditions a raw SLAM point cloud for mapping: it trims
// far outliers (triangulation spray) and caps the point count by uniform
// downsampling, then writes the result as PLY or raw float32.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/cloud"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/config"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	inPath := flag.String("in", "", "Input cloud file (.ply or raw float32)")
	outPath := flag.String("out", "", "Output cloud file (.ply or raw float32)")
	maxPoints := flag.Int("max-points", 0, "Point cap after downsampling (overrides config)")
	trimPct := flag.Float64("trim-pct", 0, "Percentile distance cutoff for outlier trim (overrides config)")
	seed := flag.Int64("seed", 1, "Downsample RNG seed")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}
	if *inPath == "" || *outPath == "" {
		log.Fatal("-in and -out are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *maxPoints > 0 {
		cfg.CloudPrep.MaxPoints = *maxPoints
	}
	if *trimPct > 0 {
		cfg.CloudPrep.TrimPercent = *trimPct
	}

	pts, err := cloud.ReadFile(*inPath)
	if err != nil {
		log.Fatalf("Failed to read cloud: %v", err)
	}
	loaded := len(pts)

	pts = cloud.TrimOutliers(pts, cfg.CloudPrep.TrimPercent)
	trimmed := len(pts)

	rng := rand.New(rand.NewSource(*seed))
	pts = cloud.Downsample(pts, cfg.CloudPrep.MaxPoints, rng)

	if strings.EqualFold(filepath.Ext(*outPath), ".ply") {
		err = cloud.WritePLYFile(*outPath, pts)
	} else {
		err = cloud.WriteF32File(*outPath, pts)
	}
	if err != nil {
		log.Fatalf("Failed to write cloud: %v", err)
	}
	log.Printf("%s: %d points -> %d after trim (p%.1f) -> %d after cap (%d) -> %s",
		*inPath, loaded, trimmed, cfg.CloudPrep.TrimPercent, len(pts), cfg.CloudPrep.MaxPoints, *outPath)
}
