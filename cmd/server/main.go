package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dgallion1/docloc/internal/api"
	"github.com/dgallion1/docloc/internal/config"
	"github.com/dgallion1/docloc/internal/mt"
	"github.com/dgallion1/docloc/internal/pipeline"
)

func main() {
	cfg, err := config.LoadFile(os.Getenv("DOCLOC_CONFIG"))

	level := slog.LevelInfo
	if strings.EqualFold(cfg.LogLevel, "debug") {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Machine translation is optional.
	var (
		translator mt.Translator
		claude     *mt.ClaudeClient
		stats      *mt.LLMStats
	)
	if cfg.MTEnabled {
		stats = mt.NewLLMStats(time.Hour)
		claude = mt.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, stats).WithBaseURL(cfg.AnthropicBaseURL)
		translator = claude
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, translator, stats, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if claude != nil {
			claude.Close()
		}
	}()

	log.Info("starting docloc", "port", cfg.Port, "mt_enabled", cfg.MTEnabled, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
