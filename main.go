// Command objectmap serves object-level SLAM maps over HTTP. Maps built by
// cmd/mapbuild are loaded into query sessions from JSON files or from the
// SQLite run database; clients then ask for objects by key or label,
// distances between objects, and same-object matches.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/api"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/config"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/mapdb"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/objmap"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/slambridge"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/timeutil"
	"github.com/niqretnuh/Spatial-SLAM-LLM/internal/version"
)

// defaultSessionID is where -map preloads land, so clients can query a
// served map without creating a session first.
const defaultSessionID = "default"

var (
	addr        = flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath  = flag.String("config", "", "Path to YAML config file")
	mapPath     = flag.String("map", "", "Map JSON to preload as the default session")
	dbPath      = flag.String("db", "", "SQLite map database (enables the run endpoints)")
	useRedis    = flag.Bool("redis", false, "Store sessions in Redis (from config) instead of memory")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store *mapdb.DB
	if *dbPath != "" {
		store, err = mapdb.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open map database: %v", err)
		}
		defer store.Close()
		log.Printf("Map database: %s", *dbPath)
	}

	ttl := time.Duration(cfg.Server.SessionTTLSeconds) * time.Second
	var cache api.SessionCache
	if *useRedis {
		redisCache := slambridge.NewSessionCache(cfg.Redis, ttl)
		defer redisCache.Close()
		cache = redisCache
		log.Printf("Session cache: redis at %s", cfg.Redis.Addr)
	} else {
		cache = api.NewMemorySessionCache(timeutil.RealClock{}, ttl)
	}

	if *mapPath != "" {
		m, err := objmap.ReadJSONFile(*mapPath)
		if err != nil {
			log.Fatalf("Failed to preload map: %v", err)
		}
		if err := cache.Put(ctx, defaultSessionID, m); err != nil {
			log.Fatalf("Failed to store preloaded map: %v", err)
		}
		log.Printf("Preloaded %s as session %q (%d objects)", *mapPath, defaultSessionID, m.Len())
	}

	srv := api.NewServer(cfg, cache, store, timeutil.RealClock{})
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.LoggingMiddleware(srv.ServeMux()),
	}

	var wg sync.WaitGroup

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("Starting HTTP server on %s", cfg.Server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
