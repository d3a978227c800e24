// Package main is the entry point for the OME-Zarr tile server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ome-tiles/server/internal/api"
	"github.com/ome-tiles/server/internal/cache"
	"github.com/ome-tiles/server/internal/config"
	"github.com/ome-tiles/server/internal/data/repo"
	"github.com/ome-tiles/server/internal/data/table"
	"github.com/ome-tiles/server/internal/render"
	"github.com/ome-tiles/server/internal/service"
	"github.com/ome-tiles/server/internal/zarr"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Log.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename: cfg.Log.File,
			MaxSize:  cfg.Log.MaxSizeMB,
			MaxAge:   cfg.Log.MaxAgeDays,
			Compress: true,
		})
	}

	log.Printf("Starting OME-Zarr tile server on port %d", cfg.Server.Port)

	ctx := context.Background()

	// Initialize cache manager
	cacheManager, err := cache.NewManager(cache.Config{
		PlaneCacheSizeMB:  cfg.Cache.PlaneCacheMB,
		PlaneTTL:          time.Duration(cfg.Cache.PlaneTTLMinutes) * time.Minute,
		DocumentCacheSize: cfg.Cache.DocumentCacheSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()
	log.Printf("Plane cache: %s, ttl=%dm; document cache: %d entries",
		humanize.IBytes(uint64(cfg.Cache.PlaneCacheMB)*humanize.MiByte),
		cfg.Cache.PlaneTTLMinutes, cfg.Cache.DocumentCacheSize)

	// Open the image repository
	store, err := repo.Open(cfg.Data.ImageRoot, cacheManager)
	if err != nil {
		log.Fatalf("Failed to open image repository: %v", err)
	}
	defer store.Close()
	log.Printf("Image repository: %s", cfg.Data.ImageRoot)

	// Open the table store
	tables, err := table.NewStore(cfg.Data.TableDB)
	if err != nil {
		log.Fatalf("Failed to open table store: %v", err)
	}
	defer tables.Close()
	if list, err := tables.List(ctx); err == nil {
		log.Printf("Table store: %s (%d tables)", cfg.Data.TableDB, len(list))
	}

	source := zarr.RepoSource(store)
	zarrService := service.NewZarrService(service.ZarrServiceConfig{
		Source: source,
		Cache:  cacheManager,
	})
	viewerService := service.NewViewerService(service.ViewerServiceConfig{
		Title:  cfg.Server.Title,
		Tables: tables,
		Zarr:   zarrService,
	})
	renderer := render.NewThumbnailRenderer(source, render.Config{
		ThumbnailSize: cfg.Render.ThumbnailSize,
	})

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Zarr:        zarrService,
		Tables:      service.NewTableService(tables),
		Viewer:      viewerService,
		Renderer:    renderer,
		CORSOrigins: cfg.Server.CORSOrigins,
		Title:       cfg.Server.Title,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	stats := cacheManager.Stats()
	log.Printf("Plane cache: %v hits, %v misses, %s allocated",
		stats["plane_cache_hits"], stats["plane_cache_misses"],
		humanize.IBytes(uint64(stats["plane_cache_cap"].(int))))
	if n := store.OpenAccessors(); n != 0 {
		log.Printf("%d pixel accessors still open", n)
	}

	log.Println("Server stopped")
}
