package graph

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/graphgate/graphgate/internal/config"
)

// Reader executes read-only Cypher against the graph database.
type Reader interface {
	ReadQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// Client wraps the Neo4j driver. The driver pools connections itself, so
// one Client is shared by all callers.
type Client struct {
	cfg    config.Neo4jConfig
	driver neo4j.DriverWithContext
}

func NewClient(cfg config.Neo4jConfig) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j uri is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Client{cfg: cfg}, nil
}

// Connect creates the driver and verifies connectivity, retrying with
// exponential backoff. Called once at startup.
func (c *Client) Connect(ctx context.Context) error {
	auth := neo4j.BasicAuth(c.cfg.Username, c.cfg.Password, "")

	var lastErr error
	maxAttempts := 5
	baseDelay := 100 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		driver, err := neo4j.NewDriverWithContext(c.cfg.URI, auth, func(driverCfg *neo4j.Config) {
			driverCfg.ConnectionAcquisitionTimeout = c.cfg.ConnectTimeout
		})
		if err == nil {
			verifyCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
			err = driver.VerifyConnectivity(verifyCtx)
			cancel()
			if err == nil {
				c.driver = driver
				return nil
			}
			_ = driver.Close(ctx)
		}
		lastErr = err

		delay := baseDelay * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.cfg.ConnectTimeout {
			delay = c.cfg.ConnectTimeout
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("connect cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("connect to %s after %d attempts: %w", c.cfg.URI, maxAttempts, lastErr)
}

func (c *Client) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}
	err := c.driver.Close(ctx)
	c.driver = nil
	return err
}

// Verify reports whether the database answers, for readiness checks.
func (c *Client) Verify(ctx context.Context) error {
	if c.driver == nil {
		return fmt.Errorf("driver not connected")
	}
	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.driver.VerifyConnectivity(verifyCtx)
}

// ReadQuery runs cypher in a read transaction and returns the records as
// ordered key-value rows.
func (c *Client) ReadQuery(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if c.driver == nil {
		return nil, fmt.Errorf("driver not connected")
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.cfg.Database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cursor, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := cursor.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return recordsToRows(records), nil
	})
	if err != nil {
		return nil, fmt.Errorf("read query: %w", err)
	}

	return result.([]map[string]any), nil
}

// recordsToRows flattens driver records into schema-less rows, one map
// per record keyed by the query's return columns.
func recordsToRows(records []*neo4j.Record) []map[string]any {
	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = normalizeValue(record.Values[i])
		}
		rows = append(rows, row)
	}
	return rows
}

// normalizeValue converts driver graph types into plain JSON-friendly
// values so rows can cross the tool boundary untouched.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case neo4j.Node:
		return v.Props
	case neo4j.Relationship:
		return v.Props
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeValue(item)
		}
		return out
	default:
		return value
	}
}
