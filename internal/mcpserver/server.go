package mcpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphgate/graphgate/internal/graph"
	"github.com/graphgate/graphgate/internal/nl2cypher"
)

// Server exposes the graph over MCP tools. Tool-level failures are
// reported inside the payload, not as protocol errors, so callers can
// inspect them the same way regardless of transport.
type Server struct {
	reader     graph.Reader
	translator nl2cypher.Translator
	logger     *slog.Logger
	mcp        *mcp.Server
}

type readCypherInput struct {
	Query string `json:"query" jsonschema:"read-only Cypher to execute"`
}

type readCypherOutput struct {
	OK bool `json:"ok"`
	// Rows is never omitted on success so an empty result set reaches
	// the gateway as [] rather than a missing field.
	Rows  []map[string]any `json:"rows"`
	Error string           `json:"error,omitempty"`
}

type text2cypherInput struct {
	Query string `json:"query" jsonschema:"natural-language question to answer from the graph"`
}

type text2cypherOutput struct {
	Input     string           `json:"input,omitempty"`
	Cypher    string           `json:"cypher,omitempty"`
	GraphData []map[string]any `json:"graphData"`
	Error     string           `json:"error,omitempty"`
	Raw       string           `json:"raw,omitempty"`
}

type healthInput struct{}

type healthOutput struct {
	OK    bool   `json:"ok"`
	Neo4j bool   `json:"neo4j"`
	Error string `json:"error,omitempty"`
}

func New(reader graph.Reader, translator nl2cypher.Translator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		reader:     reader,
		translator: translator,
		logger:     logger,
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "graphgate-mcp",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_neo4j_cypher",
		Description: "Execute read-only Cypher and return rows.",
	}, s.readCypher)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "text2cypher",
		Description: "Generate Cypher from a natural-language question and execute it.",
	}, s.text2cypher)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "health",
		Description: "Report whether the graph database answers.",
	}, s.health)

	s.mcp = server
	return s
}

// Handler serves the MCP server over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}

func (s *Server) readCypher(ctx context.Context, req *mcp.CallToolRequest, in readCypherInput) (*mcp.CallToolResult, readCypherOutput, error) {
	rows, err := s.reader.ReadQuery(ctx, in.Query, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "read cypher failed", "error", err)
		return nil, readCypherOutput{OK: false, Rows: []map[string]any{}, Error: err.Error()}, nil
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return nil, readCypherOutput{OK: true, Rows: rows}, nil
}

func (s *Server) text2cypher(ctx context.Context, req *mcp.CallToolRequest, in text2cypherInput) (*mcp.CallToolResult, text2cypherOutput, error) {
	cypher, err := s.translator.Translate(ctx, in.Query)
	if err != nil {
		s.logger.WarnContext(ctx, "cypher generation failed", "error", err)
		return nil, text2cypherOutput{GraphData: []map[string]any{}, Error: "No Cypher generated", Raw: err.Error()}, nil
	}

	rows, err := s.reader.ReadQuery(ctx, cypher, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "generated cypher failed", "cypher", cypher, "error", err)
		return nil, text2cypherOutput{GraphData: []map[string]any{}, Error: err.Error()}, nil
	}

	if rows == nil {
		rows = []map[string]any{}
	}
	return nil, text2cypherOutput{
		Input:     in.Query,
		Cypher:    cypher,
		GraphData: rows,
	}, nil
}

func (s *Server) health(ctx context.Context, req *mcp.CallToolRequest, in healthInput) (*mcp.CallToolResult, healthOutput, error) {
	rows, err := s.reader.ReadQuery(ctx, "RETURN 1 AS ok", nil)
	if err != nil {
		return nil, healthOutput{OK: false, Error: err.Error()}, nil
	}
	ok := len(rows) == 1
	return nil, healthOutput{OK: true, Neo4j: ok}, nil
}
