package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/graphgate/graphgate/internal/config"
	"github.com/graphgate/graphgate/internal/gateway"
	"github.com/graphgate/graphgate/internal/observability"
)

type ReadinessCheck func(ctx context.Context) error

// Dispatcher is the gateway surface the handler routes into.
type Dispatcher interface {
	DirectTranslate(ctx context.Context, question string) (*gateway.Response, error)
	RetrievalAssisted(ctx context.Context, question string) (*gateway.Response, error)
	Bypass(ctx context.Context, question string) (*gateway.Response, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Gateway           Dispatcher
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /method1", func(w http.ResponseWriter, r *http.Request) {
		handleMode(deps, w, r, func(ctx context.Context, question string) (*gateway.Response, error) {
			return deps.Gateway.DirectTranslate(ctx, question)
		})
	})
	protected.HandleFunc("POST /method2", func(w http.ResponseWriter, r *http.Request) {
		handleMode(deps, w, r, func(ctx context.Context, question string) (*gateway.Response, error) {
			return deps.Gateway.RetrievalAssisted(ctx, question)
		})
	})
	protected.HandleFunc("POST /no-rag", func(w http.ResponseWriter, r *http.Request) {
		handleMode(deps, w, r, func(ctx context.Context, question string) (*gateway.Response, error) {
			return deps.Gateway.Bypass(ctx, question)
		})
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusInternalServerError, "auth middleware is required by configuration", nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /method1", protectedHandler)
	mux.Handle("POST /method2", protectedHandler)
	mux.Handle("POST /no-rag", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckToolConnection reports readiness of the shared MCP session.
func CheckToolConnection(ping func(ctx context.Context) error) ReadinessCheck {
	return func(ctx context.Context) error {
		return ping(ctx)
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string, extra map[string]any) {
	payload := map[string]any{"error": message}
	for key, value := range extra {
		payload[key] = value
	}
	writeJSON(w, status, payload)
}
