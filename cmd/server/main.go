package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docrag/internal/api"
	"docrag/internal/app"
	"docrag/internal/config"
)

/*
LEARNING: GRACEFUL SHUTDOWN PATTERN WITH OBSERVABILITY

Start order: tracing, store + model check, hub, ingest worker, HTTP.
Stop order is the reverse, so a batch that is running when SIGTERM arrives
sees its context cancelled before the store it writes to is closed.
*/

func main() {
	log.Println("🚀 Starting docrag server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	tracingShutdown := app.InitTracing(cfg)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingShutdown(ctx); err != nil {
			log.Printf("⚠️  Failed to shutdown tracing: %v", err)
		}
	}()

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	a, err := app.New(startCtx, cfg)
	cancelStart()
	if err != nil {
		log.Fatalf("❌ Failed to start: %v", err)
	}
	defer a.Close()

	a.Hub.Start()
	a.Ingest.Start()

	handler := api.NewHandler(a.Store, a.RAG, a.Ingest, a.Hub)
	router := api.SetupRoutes(handler)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Answers from a local model can take a while
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://%s", addr)
		log.Printf("📚 API Endpoints:")
		log.Printf("   GET    /api/health")
		log.Printf("   GET    /api/documents")
		log.Printf("   GET    /api/documents/:id/chunks")
		log.Printf("   POST   /api/retrieve            - Context for a query")
		log.Printf("   POST   /api/search              - Nearest chunks")
		log.Printf("   POST   /api/ask                 - Answer from context")
		log.Printf("   POST   /api/ingest              - Queue an ingest batch")
		log.Printf("   WS     /ws/progress             - Ingest progress events")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	a.Ingest.Shutdown()
	a.Hub.Shutdown()

	log.Println("✓ Server shutdown complete")
}
