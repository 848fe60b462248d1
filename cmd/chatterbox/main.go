package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/amezzi/chatterbox/internal/auth"
	"github.com/amezzi/chatterbox/internal/chat"
	"github.com/amezzi/chatterbox/internal/config"
	"github.com/amezzi/chatterbox/internal/httpapi"
	"github.com/amezzi/chatterbox/internal/memory"
	"github.com/amezzi/chatterbox/internal/model"
	"github.com/amezzi/chatterbox/internal/observability"
	"github.com/amezzi/chatterbox/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer st.Close()

	client, err := model.NewClient(model.Config{
		Mode: cfg.ModelMode,
		URL:  cfg.ModelURL,
	})
	if err != nil {
		log.Fatalf("model client init failed: %v", err)
	}

	registry := memory.NewRegistry()
	authService := auth.NewService(st, cfg.AuthSecret, cfg.TokenTTL)

	orchestrator, err := chat.NewOrchestrator(st, registry, client, metrics, cfg.ModelWorkers, cfg.ModelTimeout)
	if err != nil {
		log.Fatalf("orchestrator init failed: %v", err)
	}
	defer orchestrator.Close()

	api := httpapi.New(cfg, st, authService, orchestrator, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
