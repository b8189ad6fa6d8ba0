package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/graphgate/graphgate/internal/config"
	"github.com/graphgate/graphgate/internal/graph"
	"github.com/graphgate/graphgate/internal/mcpserver"
	"github.com/graphgate/graphgate/internal/nl2cypher"
	"github.com/graphgate/graphgate/internal/observability"
)

func main() {
	cfg, err := config.LoadFromEnv("graphgate-mcp")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	graphClient, err := graph.NewClient(cfg.Neo4j)
	if err != nil {
		logger.Error("failed to initialize graph client", slog.Any("error", err))
		os.Exit(1)
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), time.Minute)
	if err := graphClient.Connect(connectCtx); err != nil {
		cancelConnect()
		logger.Error("failed to connect to neo4j", slog.Any("error", err))
		os.Exit(1)
	}
	cancelConnect()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = graphClient.Close(closeCtx)
	}()

	translator, err := nl2cypher.NewOpenAITranslator(nl2cypher.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.TranslateTemperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize translator", slog.Any("error", err))
		os.Exit(1)
	}

	toolServer := mcpserver.New(graphClient, translator, logger)

	mux := http.NewServeMux()
	mux.Handle("/mcp", toolServer.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting mcp server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mcp server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down mcp server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
