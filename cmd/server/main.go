package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chessica/backend/internal/analyzer"
	"github.com/chessica/backend/internal/coach"
	"github.com/chessica/backend/internal/config"
	"github.com/chessica/backend/internal/httpapi"
	"github.com/chessica/backend/internal/matchmaking"
	"github.com/chessica/backend/internal/session"
	"github.com/chessica/backend/internal/sessionstore"
	"github.com/chessica/backend/internal/stream"
	"github.com/chessica/backend/internal/telemetry"
)

func main() {
	cfg := config.Get()

	cache := sessionstore.NewCache(cfg.Redis.URL, time.Duration(cfg.Session.CacheTTLSec)*time.Second)
	repo, err := sessionstore.Open(cfg.Database.URL, cache)
	if err != nil {
		log.Fatalf("sessionstore: failed to open: %v", err)
	}

	analyzerMetrics := analyzer.NewMetrics()
	engine := analyzer.NewGateway(analyzer.Config{
		StockfishPath:   cfg.Engine.StockfishPath,
		MinElo:          cfg.Engine.MinElo,
		MaxElo:          cfg.Engine.MaxElo,
		MoveTimeLimit:   time.Duration(cfg.Engine.MoveTimeLimit * float64(time.Second)),
		RespawnAttempts: cfg.Engine.RespawnAttempts,
		Metrics:         analyzerMetrics,
	})
	if !engine.IsAvailable() {
		slog.Warn("analyzer: engine subprocess unavailable, sessions will run without live evaluation")
	}

	queue := matchmaking.NewQueue(
		cfg.Redis.URL,
		time.Duration(cfg.Session.QueueEntryTTLSec)*time.Second,
		time.Duration(cfg.Session.MatchNotificationTTLSec)*time.Second,
	)

	hub := stream.NewHub(cfg.Server.AllowOrigins)

	telemetryMetrics := telemetry.NewMetrics()
	telem := telemetry.NewLogger(repo, telemetryMetrics)

	var summarizer coach.Summarizer = coach.FallbackSummarizer{}
	if cfg.Coach.LLMURL != "" {
		summarizer = coach.NewOpenAISummarizer(cfg.Coach.LLMURL, cfg.Coach.LLMAPIKey, cfg.Coach.LLMModel)
	}
	limiter := coach.NewRateLimiter(time.Duration(cfg.Coach.RateWindowSec)*time.Second, cfg.Coach.RateMaxCalls)
	coachBuilder := coach.NewBuilder(summarizer, limiter, time.Duration(cfg.Coach.TimeoutSec)*time.Second)

	machine := session.NewMachine(repo, engine, hub, telem, telemetryMetrics, coachBuilder, session.EngineTuning{
		MinElo:        cfg.Engine.MinElo,
		MaxElo:        cfg.Engine.MaxElo,
		DefaultDepth:  cfg.Engine.DefaultDepth,
		MoveTimeLimit: time.Duration(cfg.Engine.MoveTimeLimit * float64(time.Second)),
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Config:  cfg,
		Machine: machine,
		Queue:   queue,
		Repo:    repo,
		Hub:     hub,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("received shutdown signal, shutting down gracefully")
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSec)*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("chessica session engine listening", "addr", server.Addr, "api_prefix", cfg.Server.APIPrefix)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed to start: %v", err)
	}
}
