// Command mapbuild folds a detection log into an object map over a static
// SLAM scene. It reads the scene (point cloud + camera trajectory) and the
// per-frame detections, runs the association pipeline, and writes the final
// map as JSON, optionally also recording the run in a SQLite database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/config"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/detect"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/mapdb"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/monitoring"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/objmap"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/pipeline"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/scene"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	cloudPath := flag.String("cloud", "", "Point cloud file (.ply or raw float32)")
	trajPath := flag.String("trajectory", "", "Camera trajectory log (one 4x4 pose per line)")
	framesPath := flag.String("frames", "", "Sequence index (timestamp + image per line) to cross-check against the trajectory")
	detPath := flag.String("detections", "", "Detection log (one frame per line)")
	outPath := flag.String("out", "map.json", "Output map JSON file")
	dbPath := flag.String("db", "", "Also record the run in this SQLite database")
	runName := flag.String("name", "", "Run name for the database (defaults to the detection log name)")
	workers := flag.Int("workers", 0, "Projection worker count (0 = all cores)")
	statsJSON := flag.Bool("stats-json", false, "Print run statistics as JSON on stdout")
	quiet := flag.Bool("quiet", false, "Suppress diagnostics and the progress bar")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}
	if *cloudPath == "" || *trajPath == "" || *detPath == "" {
		log.Fatal("-cloud, -trajectory and -detections are required")
	}
	if *quiet {
		monitoring.Mute()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sc, err := scene.Load(*cloudPath, *trajPath)
	if err != nil {
		log.Fatalf("Failed to load scene: %v", err)
	}
	if *framesPath != "" {
		idx, err := scene.ReadFrameIndexFile(*framesPath)
		if err != nil {
			log.Fatalf("Failed to read frame index: %v", err)
		}
		if len(idx) != sc.Frames() {
			log.Fatalf("Bad input: %v",
				scene.Errorf("frame index has %d entries, trajectory has %d poses", len(idx), sc.Frames()))
		}
	}
	frames, err := detect.ReadLogFile(*detPath)
	if err != nil {
		log.Fatalf("Failed to read detections: %v", err)
	}
	monitoring.Logf("scene: %d points, %d poses; detections: %d frames",
		len(sc.Cloud), sc.Frames(), len(frames))

	runner := pipeline.Runner{
		Projector: cfg.Projector(),
		Params:    cfg.Association.Build,
		MinScore:  cfg.Detection.MinScore,
		Workers:   *workers,
	}
	if !*quiet {
		bar := progressbar.NewOptions(len(frames),
			progressbar.OptionSetDescription("Folding frames"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
		runner.OnFrame = func(done, total int) {
			bar.Add(1)
			if done == total {
				bar.Finish()
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, stats, err := runner.Run(ctx, sc, frames)
	if err != nil {
		if scene.IsInputError(err) {
			log.Fatalf("Bad input: %v", err)
		}
		log.Fatalf("Pipeline failed: %v", err)
	}

	if err := objmap.WriteJSONFile(*outPath, m); err != nil {
		log.Fatalf("Failed to write map: %v", err)
	}
	log.Printf("Wrote %d objects to %s", m.Len(), *outPath)

	if *dbPath != "" {
		name := *runName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(*detPath), filepath.Ext(*detPath))
		}
		db, err := mapdb.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open map database: %v", err)
		}
		defer db.Close()
		runID, err := db.SaveMap(name, m)
		if err != nil {
			log.Fatalf("Failed to save run: %v", err)
		}
		log.Printf("Saved run %s (%q) to %s", runID, name, *dbPath)
	}

	if *statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			log.Fatalf("Failed to encode stats: %v", err)
		}
	}
}
