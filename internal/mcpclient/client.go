package mcpclient

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphgate/graphgate/internal/normalize"
	"github.com/graphgate/graphgate/internal/observability"
)

// Caller invokes a named tool on the remote MCP server and returns its
// reply as a normalizer envelope.
type Caller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (normalize.Envelope, error)
}

type Config struct {
	Endpoint           string
	ConnectTimeout     time.Duration
	CallTimeout        time.Duration
	MaxConnectAttempts int
}

// Client holds one long-lived MCP session shared by all in-flight
// requests. The SDK correlates concurrent calls on a single session, so
// no per-request state lives on the client. A failed call marks the
// session broken; the next call redials with exponential backoff.
type Client struct {
	endpoint           string
	connectTimeout     time.Duration
	callTimeout        time.Duration
	maxConnectAttempts int
	logger             *slog.Logger

	client *mcp.Client

	mu      sync.Mutex
	session *mcp.ClientSession
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("mcp endpoint is required")
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	attempts := cfg.MaxConnectAttempts
	if attempts <= 0 {
		attempts = 5
	}

	return &Client{
		endpoint:           cfg.Endpoint,
		connectTimeout:     connectTimeout,
		callTimeout:        callTimeout,
		maxConnectAttempts: attempts,
		logger:             logger,
		client: mcp.NewClient(&mcp.Implementation{
			Name:    "graphgate",
			Version: "0.1.0",
		}, nil),
	}, nil
}

// Connect establishes the initial session. Called once at startup, before
// the process accepts requests.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return nil
	}
	session, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.session = session
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

// Ping reports whether the session answers, for readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	session, err := c.acquireSession(ctx)
	if err != nil {
		return err
	}
	return session.Ping(ctx, nil)
}

func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (normalize.Envelope, error) {
	session, err := c.acquireSession(ctx)
	if err != nil {
		return normalize.Envelope{}, fmt.Errorf("mcp session: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	start := time.Now()
	result, err := session.CallTool(callCtx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	observability.ObserveToolCall(name, time.Since(start), err)
	if err != nil {
		c.markBroken(session)
		return normalize.Envelope{}, fmt.Errorf("call tool %s: %w", name, err)
	}
	if result.IsError {
		return normalize.Envelope{}, fmt.Errorf("tool %s failed: %s", name, firstText(result))
	}

	return toEnvelope(result)
}

// acquireSession returns the live session, redialing if the previous one
// was marked broken.
func (c *Client) acquireSession(ctx context.Context) (*mcp.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session, nil
	}

	observability.IncrementMCPReconnect()
	if c.logger != nil {
		c.logger.InfoContext(ctx, "redialing mcp server", slog.String("endpoint", c.endpoint))
	}
	session, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.session = session
	return session, nil
}

// dial connects with exponential backoff between attempts. Callers hold c.mu.
func (c *Client) dial(ctx context.Context) (*mcp.ClientSession, error) {
	var lastErr error
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < c.maxConnectAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
		session, err := c.client.Connect(dialCtx, &mcp.StreamableClientTransport{
			Endpoint: c.endpoint,
		}, nil)
		cancel()
		if err == nil {
			return session, nil
		}
		lastErr = err

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.connectTimeout {
			delay = c.connectTimeout
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("connect cancelled: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("connect to %s after %d attempts: %w", c.endpoint, c.maxConnectAttempts, lastErr)
}

// markBroken drops the session so the next call redials, but only if no
// other request replaced it already.
func (c *Client) markBroken(session *mcp.ClientSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == session {
		_ = c.session.Close()
		c.session = nil
	}
}

func toEnvelope(result *mcp.CallToolResult) (normalize.Envelope, error) {
	if structured := structuredPayload(result.StructuredContent); structured != nil {
		return normalize.StructuredEnvelope(structured), nil
	}

	blocks := make([]normalize.Block, 0, len(result.Content))
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			blocks = append(blocks, normalize.Block{Type: "text", Text: text.Text})
		}
	}
	if len(blocks) == 0 {
		return normalize.Envelope{}, fmt.Errorf("tool response has no usable payload")
	}
	return normalize.BlockEnvelope(blocks...), nil
}

func structuredPayload(value any) map[string]any {
	if value == nil {
		return nil
	}
	if payload, ok := value.(map[string]any); ok {
		return payload
	}
	return nil
}

func firstText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			return text.Text
		}
	}
	return "unknown error"
}
