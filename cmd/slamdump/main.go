// Command slamdump captures the current state of a live SLAM system over
// Redis: it asks the SLAM side to republish its sparse map, waits for the
// point buffer to appear, and writes it out as a PLY or raw float32 cloud.
// With -pose it also prints the latest camera pose.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/cloud"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/config"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/slambridge"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	redisAddr := flag.String("redis", "", "Redis address (overrides config)")
	outPath := flag.String("out", "slam_map.ply", "Output cloud file (.ply or raw float32)")
	timeoutSec := flag.Int("timeout", 0, "Map fetch timeout in seconds (overrides config)")
	showPose := flag.Bool("pose", false, "Also print the latest camera pose")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *redisAddr != "" {
		cfg.Redis.Addr = *redisAddr
	}
	if *timeoutSec > 0 {
		cfg.Redis.FetchTimeoutMS = *timeoutSec * 1000
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bridge := slambridge.New(cfg.Redis)
	defer bridge.Close()
	if err := bridge.Ping(ctx); err != nil {
		log.Fatalf("Redis unreachable: %v", err)
	}

	if err := bridge.RequestMap(ctx); err != nil {
		log.Fatalf("Failed to request map: %v", err)
	}
	log.Printf("Requested map on %s, waiting up to %dms for %s",
		cfg.Redis.RequestChannel, cfg.Redis.FetchTimeoutMS, cfg.Redis.MapKey)

	pts, err := bridge.FetchMapPoints(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch map: %v", err)
	}

	if strings.EqualFold(filepath.Ext(*outPath), ".ply") {
		err = cloud.WritePLYFile(*outPath, pts)
	} else {
		err = cloud.WriteF32File(*outPath, pts)
	}
	if err != nil {
		log.Fatalf("Failed to write cloud: %v", err)
	}
	log.Printf("Wrote %d points to %s", len(pts), *outPath)

	if *showPose {
		pose, err := bridge.LatestPose(ctx)
		if err != nil {
			log.Fatalf("Failed to read pose: %v", err)
		}
		fmt.Println("Latest camera pose (T_cw, row-major):")
		for row := 0; row < 4; row++ {
			fmt.Printf("  [% .6f % .6f % .6f % .6f]\n",
				pose[4*row], pose[4*row+1], pose[4*row+2], pose[4*row+3])
		}
	}
}
