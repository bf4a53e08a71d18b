package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"querydesk/internal/config"
	"querydesk/internal/db"
	"querydesk/internal/email"
	"querydesk/internal/extract"
	"querydesk/internal/jobs"
	"querydesk/internal/metrics"
	"querydesk/internal/routing"
	"querydesk/internal/server"
	"querydesk/internal/storage"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	yamlCfg, err := config.LoadYAMLConfig()
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}
	if err := cfg.ApplyYAML(yamlCfg); err != nil {
		log.Fatalf("Invalid config file: %v", err)
	}

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	if cfg.IsDev() {
		if err := database.SeedDevSubjects(ctx); err != nil {
			log.Printf("Warning: failed to seed subjects: %v", err)
		}
	}

	store, err := storage.Open(ctx, cfg.StorageBackend, cfg.UploadDir, cfg.GCSBucket)
	if err != nil {
		log.Fatalf("Failed to open upload storage: %v", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	subjects, err := database.ListSubjects(ctx)
	if err != nil {
		log.Fatalf("Failed to load subjects: %v", err)
	}
	corpus := routing.NewCorpus(subjects)
	log.Printf("Loaded %d subjects into the routing corpus", corpus.Len())

	registry := extract.NewRegistry()
	router := routing.NewRouter(registry, database, corpus, cfg.Routing.Policy())

	m := metrics.Init(database)
	m.CorpusSize(corpus.Len())

	srv := server.New(cfg)
	deps := server.Deps{
		DB:       database,
		Router:   router,
		Store:    store,
		Registry: registry,
		Notifier: email.NewNotifier(cfg, database),
		Metrics:  m,
	}
	if err := srv.RegisterRoutes(ctx, deps); err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	if cfg.CorpusRefreshInterval > 0 {
		refresher := jobs.NewCorpusRefresher(database, corpus, cfg.CorpusRefreshInterval)
		go refresher.Start(ctx)
	}

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server started on %s", cfg.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()
	if err := srv.Shutdown(); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
