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

	"retroboard/api/internal/app"
	"retroboard/api/internal/config"
	"retroboard/api/internal/events"
	"retroboard/api/internal/search"
	"retroboard/api/internal/store"
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

	dataStore := store.NewPostgresStore(db)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	searchService.ReindexAllFromPG(ctx)

	var broker events.Broker
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for event fan-out")
		redisBroker, err := events.NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisBroker.Close()
		broker = redisBroker
	} else {
		log.Printf("Using in-process event fan-out")
		broker = events.NewMemoryBroker()
	}

	service := app.NewWithStore(cfg, dataStore, broker)
	service.AddCloseListener(closeLogger{})

	httpServer := app.NewHTTPServer(service, searchService, cfg.CORSOrigin, cfg.StreamHeartbeat)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: the event stream endpoint holds its
		// response open for the life of the session.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Retroboard API listening on %s", cfg.Addr)
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

// closeLogger records board closures with their unfinished work; snapshot and
// analytics consumers hook in the same way.
type closeLogger struct{}

func (closeLogger) BoardClosed(_ context.Context, board store.Board, unfinished []store.ActionItem) {
	log.Printf("board %s (%s) closed with %d unfinished action items", board.Slug, board.Title, len(unfinished))
}
