package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/graphgate/graphgate/internal/mcpclient"
	"github.com/graphgate/graphgate/internal/nl2cypher"
	"github.com/graphgate/graphgate/internal/normalize"
	"github.com/graphgate/graphgate/internal/observability"
	"github.com/graphgate/graphgate/internal/summarize"
)

// Mode names double as route suffixes and response fields.
const (
	ModeDirectTranslate   = "method1"
	ModeRetrievalAssisted = "method2"
	ModeBypass            = "no-rag"
)

// Tool names exposed by the MCP server.
const (
	ToolReadCypher  = "read_neo4j_cypher"
	ToolText2Cypher = "text2cypher"
)

// Response is the per-mode envelope returned to callers. GroundedAnswer
// holds generated prose for the summarizing modes and the raw row set
// for bypass; RawGrounding always carries the rows the answer was
// grounded on. Diagnostic is only populated on extraction failures when
// raw diagnostics are enabled, and never carries row data.
type Response struct {
	Mode           string `json:"mode"`
	Cypher         string `json:"cypher,omitempty"`
	RawGrounding   any    `json:"rawGrounding"`
	GroundedAnswer any    `json:"groundedAnswer"`
	Diagnostic     any    `json:"diagnostic,omitempty"`
}

// Service composes the translation, tool invocation, normalization and
// summarization stages into the three request strategies. Each request
// is stateless end to end; the only shared dependency is the tool
// client, which correlates concurrent calls itself.
type Service struct {
	translator     nl2cypher.Translator
	summarizer     summarize.Summarizer
	tools          mcpclient.Caller
	rawDiagnostics bool
	logger         *slog.Logger
}

func NewService(translator nl2cypher.Translator, summarizer summarize.Summarizer, tools mcpclient.Caller, rawDiagnostics bool, logger *slog.Logger) *Service {
	return &Service{
		translator:     translator,
		summarizer:     summarizer,
		tools:          tools,
		rawDiagnostics: rawDiagnostics,
		logger:         logger,
	}
}

// DirectTranslate turns the question into Cypher locally, executes it
// through the read tool, and summarizes the rows.
func (s *Service) DirectTranslate(ctx context.Context, question string) (resp *Response, err error) {
	defer func() { observability.ObserveModeRequest(ModeDirectTranslate, err) }()

	cypher, rows, diag, err := s.translateAndExecute(ctx, question)
	if err != nil {
		return s.failed(ModeDirectTranslate, diag), err
	}

	answer, err := s.summarizeRows(ctx, question, cypher, rows)
	if err != nil {
		return s.failed(ModeDirectTranslate, nil), &SummarizationError{Err: err}
	}

	return &Response{
		Mode:           ModeDirectTranslate,
		Cypher:         cypher,
		RawGrounding:   rows,
		GroundedAnswer: answer,
	}, nil
}

// RetrievalAssisted delegates both query generation and execution to
// the text2cypher tool, then summarizes whatever came back.
func (s *Service) RetrievalAssisted(ctx context.Context, question string) (resp *Response, err error) {
	defer func() { observability.ObserveModeRequest(ModeRetrievalAssisted, err) }()

	env, err := s.tools.CallTool(ctx, ToolText2Cypher, map[string]any{"query": question})
	if err != nil {
		return s.failed(ModeRetrievalAssisted, nil), &ToolInvocationError{Tool: ToolText2Cypher, Err: err}
	}

	result, err := normalize.Normalize(env, normalize.Options{RequireCypher: true, KeepRaw: s.rawDiagnostics})
	if err != nil {
		return s.failed(ModeRetrievalAssisted, extractionDiagnostic(err, s.rawDiagnostics)), classifyNormalizeError(ToolText2Cypher, err)
	}

	answer, err := s.summarizeRows(ctx, question, result.Cypher, result.Rows)
	if err != nil {
		return s.failed(ModeRetrievalAssisted, nil), &SummarizationError{Err: err}
	}

	return &Response{
		Mode:           ModeRetrievalAssisted,
		Cypher:         result.Cypher,
		RawGrounding:   result.Rows,
		GroundedAnswer: answer,
	}, nil
}

// Bypass runs the same translate-and-execute pipeline as
// DirectTranslate but returns the raw rows without a summarization
// pass.
func (s *Service) Bypass(ctx context.Context, question string) (resp *Response, err error) {
	defer func() { observability.ObserveModeRequest(ModeBypass, err) }()

	cypher, rows, diag, err := s.translateAndExecute(ctx, question)
	if err != nil {
		return s.failed(ModeBypass, diag), err
	}

	return &Response{
		Mode:           ModeBypass,
		Cypher:         cypher,
		RawGrounding:   rows,
		GroundedAnswer: rows,
	}, nil
}

func (s *Service) summarizeRows(ctx context.Context, question, cypher string, rows []map[string]any) (string, error) {
	start := time.Now()
	answer, err := s.summarizer.Summarize(ctx, question, cypher, rows)
	observability.ObserveSummarization(time.Since(start))
	return answer, err
}

func (s *Service) translateAndExecute(ctx context.Context, question string) (string, []map[string]any, any, error) {
	start := time.Now()
	cypher, err := s.translator.Translate(ctx, question)
	observability.ObserveTranslation(time.Since(start))
	if err != nil {
		return "", nil, nil, &TranslationError{Err: err}
	}
	if s.logger != nil {
		s.logger.DebugContext(ctx, "translated question", slog.String("cypher", cypher))
	}

	env, err := s.tools.CallTool(ctx, ToolReadCypher, map[string]any{"query": cypher})
	if err != nil {
		return "", nil, nil, &ToolInvocationError{Tool: ToolReadCypher, Err: err}
	}

	result, err := normalize.Normalize(env, normalize.Options{KeepRaw: s.rawDiagnostics})
	if err != nil {
		return "", nil, extractionDiagnostic(err, s.rawDiagnostics), classifyNormalizeError(ToolReadCypher, err)
	}
	return cypher, result.Rows, nil, nil
}

// classifyNormalizeError separates errors the tool reported inside its
// payload from payloads the normalizer could not make sense of.
func classifyNormalizeError(tool string, err error) error {
	var toolErr *normalize.ToolError
	if errors.As(err, &toolErr) {
		return &ToolInvocationError{Tool: tool, Err: err}
	}
	return &QueryExtractionError{Err: err}
}

func (s *Service) failed(mode string, diagnostic any) *Response {
	return &Response{Mode: mode, Diagnostic: diagnostic}
}

// extractionDiagnostic surfaces the unparsed payload alongside a
// fail-closed extraction error. The raw payload is never returned as if
// it were row data and is withheld entirely when diagnostics are off.
func extractionDiagnostic(err error, enabled bool) any {
	if !enabled {
		return nil
	}
	var noQuery *normalize.NoQueryError
	if errors.As(err, &noQuery) {
		return noQuery.Raw
	}
	return nil
}
