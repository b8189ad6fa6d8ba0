package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/graphgate/graphgate/internal/gateway"
)

type modeRequest struct {
	NaturalLanguage string `json:"naturalLanguage"`
}

type modeFunc func(ctx context.Context, question string) (*gateway.Response, error)

func handleMode(deps Dependencies, w http.ResponseWriter, r *http.Request, run modeFunc) {
	if deps.Gateway == nil {
		writeError(w, http.StatusNotImplemented, "gateway dependency is not configured", nil)
		return
	}

	var req modeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.NaturalLanguage) == "" {
		writeError(w, http.StatusBadRequest, "naturalLanguage is required", nil)
		return
	}

	resp, err := run(r.Context(), req.NaturalLanguage)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "mode request failed",
				"mode", modeOf(resp), "error", err)
		}
		var extra map[string]any
		if resp != nil && resp.Diagnostic != nil {
			extra = map[string]any{"diagnostic": resp.Diagnostic}
		}
		writeError(w, http.StatusInternalServerError, err.Error(), extra)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func modeOf(resp *gateway.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Mode
}
