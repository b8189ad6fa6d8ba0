package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/graphgate/graphgate/internal/api"
	"github.com/graphgate/graphgate/internal/auth"
	"github.com/graphgate/graphgate/internal/config"
	"github.com/graphgate/graphgate/internal/gateway"
	"github.com/graphgate/graphgate/internal/mcpclient"
	"github.com/graphgate/graphgate/internal/nl2cypher"
	"github.com/graphgate/graphgate/internal/observability"
	"github.com/graphgate/graphgate/internal/summarize"
)

func main() {
	cfg, err := config.LoadFromEnv("graphgate-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	model, err := newChatModel(cfg.LLM)
	if err != nil {
		logger.Error("failed to initialize chat model", slog.Any("error", err))
		os.Exit(1)
	}

	translator := nl2cypher.NewLLMTranslator(model, nl2cypher.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.TranslateTemperature,
		Timeout:     cfg.LLM.Timeout,
	})
	summarizer := summarize.NewLLMSummarizer(model, summarize.Config{
		Temperature:       cfg.LLM.SummaryTemperature,
		Timeout:           cfg.LLM.Timeout,
		MaxGroundingChars: cfg.LLM.MaxGroundingChars,
	})

	tools, err := mcpclient.New(mcpclient.Config{
		Endpoint:           cfg.MCP.Endpoint,
		ConnectTimeout:     cfg.MCP.ConnectTimeout,
		CallTimeout:        cfg.MCP.CallTimeout,
		MaxConnectAttempts: cfg.MCP.MaxConnectAttempts,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize mcp client", slog.Any("error", err))
		os.Exit(1)
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), time.Minute)
	if err := tools.Connect(connectCtx); err != nil {
		cancelConnect()
		logger.Error("failed to connect to mcp server", slog.Any("error", err))
		os.Exit(1)
	}
	cancelConnect()
	defer func() { _ = tools.Close() }()

	service := gateway.NewService(translator, summarizer, tools, cfg.Gateway.RawDiagnostics, logger)

	deps := api.Dependencies{
		Logger:            logger,
		Gateway:           service,
		Readiness:         api.CheckToolConnection(tools.Ping),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting gateway server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down gateway server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func newChatModel(cfg config.LLMConfig) (*openai.LLM, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimSpace(cfg.APIKey)),
		openai.WithModel(cfg.Model),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, openai.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	return openai.New(opts...)
}
