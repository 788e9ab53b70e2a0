package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"docbridge/api/internal/app"
	"docbridge/api/internal/archive"
	"docbridge/api/internal/config"
	"docbridge/api/internal/outline"
	"docbridge/api/internal/plane"
	"docbridge/api/internal/search"
	"docbridge/api/internal/store"
	syncsvc "docbridge/api/internal/sync"
	"docbridge/api/internal/webhook"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	mappings := store.NewPostgresStore(db)
	planeClient := plane.NewClient(cfg.PlaneURL, cfg.UpstreamTimeout)
	outlineClient := outline.NewClient(cfg.OutlineURL, cfg.UpstreamTimeout)

	pgSearch := search.NewPgSearch(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgSearch)

	syncService := syncsvc.New(mappings, planeClient, outlineClient).
		WithIndexer(searchService).
		WithEnrichConcurrency(cfg.EnrichConcurrency)

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archiveService, err := archive.New(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("minio connection failed: %v", err)
		}
		if err := archiveService.EnsureBucket(ctx); err != nil {
			log.Fatalf("minio bucket setup failed: %v", err)
		}
		syncService = syncService.WithArchiver(archiveService)
		log.Printf("Archiving unlinked collections to bucket %s", cfg.MinioBucket)
	}

	service, err := app.New(cfg, syncService, mappings)
	if err != nil {
		log.Fatalf("service setup failed: %v", err)
	}
	service = service.WithSearch(searchService)

	if strings.TrimSpace(cfg.RedisURL) != "" {
		seenStore, err := webhook.NewRedisSeenStore(cfg.RedisURL, cfg.ReplayWindow)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer seenStore.Close()
		service = service.WithSeenStore(seenStore, seenStore)
		log.Printf("Using Redis for webhook delivery tracking")
	} else {
		log.Printf("WARNING: webhook delivery replay tracking disabled (no Redis URL)")
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Docbridge API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
