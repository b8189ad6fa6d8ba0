package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphgate/graphgate/internal/auth"
	"github.com/graphgate/graphgate/internal/config"
	"github.com/graphgate/graphgate/internal/gateway"
)

type fakeDispatcher struct {
	resp *gateway.Response
	err  error

	lastQuestion string
	calls        int
}

func (f *fakeDispatcher) run(_ context.Context, question string) (*gateway.Response, error) {
	f.calls++
	f.lastQuestion = question
	return f.resp, f.err
}

func (f *fakeDispatcher) DirectTranslate(ctx context.Context, question string) (*gateway.Response, error) {
	return f.run(ctx, question)
}

func (f *fakeDispatcher) RetrievalAssisted(ctx context.Context, question string) (*gateway.Response, error) {
	return f.run(ctx, question)
}

func (f *fakeDispatcher) Bypass(ctx context.Context, question string) (*gateway.Response, error) {
	return f.run(ctx, question)
}

func testConfig(t *testing.T, extra map[string]string) config.Config {
	t.Helper()
	env := map[string]string{"GRAPHGATE_PROFILE": "test"}
	for key, value := range extra {
		env[key] = value
	}
	cfg, err := config.Load("graphgate-api", func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	})
	require.NoError(t, err)
	return cfg
}

func postMode(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(t, nil), Dependencies{Gateway: &fakeDispatcher{}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decodeBody(t, recorder)["ok"])
}

func TestReadyEndpointReportsFailure(t *testing.T) {
	deps := Dependencies{
		Gateway: &fakeDispatcher{},
		Readiness: func(ctx context.Context) error {
			return errors.New("mcp session unavailable")
		},
	}
	handler := NewHandler(testConfig(t, nil), deps)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Equal(t, "mcp session unavailable", decodeBody(t, recorder)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(t, nil), Dependencies{Gateway: &fakeDispatcher{}})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestModeEndpointReturnsResponse(t *testing.T) {
	dispatcher := &fakeDispatcher{resp: &gateway.Response{
		Mode:           gateway.ModeDirectTranslate,
		Cypher:         "MATCH (c:Case) RETURN c",
		RawGrounding:   []map[string]any{{"title": "Smith v. Jones"}},
		GroundedAnswer: "One case was found.",
	}}
	handler := NewHandler(testConfig(t, nil), Dependencies{Gateway: dispatcher})

	recorder := postMode(t, handler, "/method1", `{"naturalLanguage":"Find list of cases"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	payload := decodeBody(t, recorder)
	assert.Equal(t, "method1", payload["mode"])
	assert.Equal(t, "MATCH (c:Case) RETURN c", payload["cypher"])
	assert.Equal(t, "One case was found.", payload["groundedAnswer"])
	assert.Equal(t, "Find list of cases", dispatcher.lastQuestion)
}

func TestModeEndpointRejectsInvalidBody(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	handler := NewHandler(testConfig(t, nil), Dependencies{Gateway: dispatcher})

	recorder := postMode(t, handler, "/method2", `{not json`)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.NotEmpty(t, decodeBody(t, recorder)["error"])
	assert.Zero(t, dispatcher.calls)
}

func TestModeEndpointRequiresQuestion(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	handler := NewHandler(testConfig(t, nil), Dependencies{Gateway: dispatcher})

	recorder := postMode(t, handler, "/no-rag", `{"naturalLanguage":"  "}`)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Zero(t, dispatcher.calls)
}

func TestModeEndpointPipelineFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{
		resp: &gateway.Response{Mode: gateway.ModeDirectTranslate},
		err:  &gateway.ToolInvocationError{Tool: gateway.ToolReadCypher, Err: errors.New("connection reset")},
	}
	handler := NewHandler(testConfig(t, nil), Dependencies{Gateway: dispatcher})

	recorder := postMode(t, handler, "/method1", `{"naturalLanguage":"Find list of cases"}`)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	payload := decodeBody(t, recorder)
	assert.Contains(t, payload["error"], "connection reset")
	assert.NotContains(t, payload, "groundedAnswer")
}

func TestModeEndpointSurfacesDiagnostic(t *testing.T) {
	dispatcher := &fakeDispatcher{
		resp: &gateway.Response{
			Mode:       gateway.ModeRetrievalAssisted,
			Diagnostic: map[string]any{"unexpected": "shape"},
		},
		err: &gateway.QueryExtractionError{Err: errors.New("no query in payload")},
	}
	handler := NewHandler(testConfig(t, nil), Dependencies{Gateway: dispatcher})

	recorder := postMode(t, handler, "/method2", `{"naturalLanguage":"odd"}`)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	payload := decodeBody(t, recorder)
	diagnostic, ok := payload["diagnostic"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "shape", diagnostic["unexpected"])
}

func TestModeEndpointsRequireAuthWhenConfigured(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"GRAPHGATE_AUTH_REQUIRED": "true",
	})
	validator, err := auth.NewStaticAPIKeyValidator("secret:analyst:reader")
	require.NoError(t, err)
	handler := NewHandler(cfg, Dependencies{
		Gateway:        &fakeDispatcher{resp: &gateway.Response{Mode: gateway.ModeBypass}},
		AuthMiddleware: auth.Middleware(nil, validator),
	})

	recorder := postMode(t, handler, "/no-rag", `{"naturalLanguage":"q"}`)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	req := httptest.NewRequest(http.MethodPost, "/no-rag", strings.NewReader(`{"naturalLanguage":"q"}`))
	req.Header.Set("X-API-Key", "secret")
	authorized := httptest.NewRecorder()
	handler.ServeHTTP(authorized, req)
	require.Equal(t, http.StatusOK, authorized.Code)

	// Health stays open regardless of auth configuration.
	healthReq := httptest.NewRequest(http.MethodGet, "/health", nil)
	healthRec := httptest.NewRecorder()
	handler.ServeHTTP(healthRec, healthReq)
	require.Equal(t, http.StatusOK, healthRec.Code)
}
