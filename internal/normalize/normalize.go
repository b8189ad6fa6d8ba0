package normalize

import (
	"encoding/json"
	"fmt"
)

// Result is the outcome of extracting a query and a row set from a tool
// response envelope.
type Result struct {
	Cypher string
	Rows   []map[string]any
	// Raw is the object payload extraction ran against. Populated only
	// when Options.KeepRaw is set.
	Raw map[string]any
}

type Options struct {
	// RequireCypher makes the absence of a locatable query an error
	// instead of an empty Cypher field.
	RequireCypher bool
	// KeepRaw retains the decoded payload on the Result.
	KeepRaw bool
}

// ToolError is a failure reported inside the tool payload itself, as
// opposed to a transport failure.
type ToolError struct {
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool reported error: %s", e.Message)
}

// NoQueryError is the "no query produced" condition: the payload was
// readable but held nothing recognizable as a query. Raw carries the
// payload for diagnostics; callers decide whether to expose it.
type NoQueryError struct {
	Raw map[string]any
}

func (e *NoQueryError) Error() string {
	return "no query produced"
}

// queryRules and rowRules are the extraction policy: ordered lists of
// named rules tried in sequence, first match wins. Keeping the policy in
// one table keeps it auditable and testable independent of transport.
type fieldRule struct {
	name    string
	extract func(payload map[string]any) (any, bool)
}

var queryRules = []fieldRule{
	{name: "cypher", extract: topLevel("cypher")},
	{name: "cypher_text", extract: topLevel("cypher_text")},
	{name: "query", extract: topLevel("query")},
	{name: "metadata.cypher", extract: nested("metadata", "cypher")},
	{name: "metadata.cypher_text", extract: nested("metadata", "cypher_text")},
}

var rowRules = []fieldRule{
	{name: "records", extract: topLevel("records")},
	{name: "rows", extract: topLevel("rows")},
	{name: "data", extract: topLevel("data")},
	{name: "graphData", extract: topLevel("graphData")},
}

// Normalize extracts a query string and a row set from a tool response
// envelope. A payload-level "error" field propagates as *ToolError; an
// unreadable payload or (with RequireCypher) a missing query fails closed.
func Normalize(env Envelope, opts Options) (Result, error) {
	payload, err := decodePayload(env)
	if err != nil {
		return Result{}, err
	}

	if message, ok := payload["error"].(string); ok && message != "" {
		return Result{}, &ToolError{Message: message}
	}

	result := Result{}
	if opts.KeepRaw {
		result.Raw = payload
	}
	result.Cypher = extractQuery(payload)
	result.Rows = extractRows(payload)

	if opts.RequireCypher && result.Cypher == "" {
		return Result{}, &NoQueryError{Raw: payload}
	}
	return result, nil
}

func decodePayload(env Envelope) (map[string]any, error) {
	switch env.Kind {
	case KindStructured:
		if env.Structured == nil {
			return nil, fmt.Errorf("structured envelope has no payload")
		}
		return env.Structured, nil
	case KindContentBlocks:
		for _, block := range env.Blocks {
			if block.Type != "text" {
				continue
			}
			var payload map[string]any
			if err := json.Unmarshal([]byte(block.Text), &payload); err != nil {
				return nil, fmt.Errorf("decode text block: %w", err)
			}
			return payload, nil
		}
		return nil, fmt.Errorf("no text block in content-block envelope")
	default:
		return nil, fmt.Errorf("unknown envelope kind %d", env.Kind)
	}
}

func extractQuery(payload map[string]any) string {
	for _, rule := range queryRules {
		value, ok := rule.extract(payload)
		if !ok {
			continue
		}
		if text, ok := value.(string); ok && text != "" {
			return text
		}
	}
	return ""
}

func extractRows(payload map[string]any) []map[string]any {
	for _, rule := range rowRules {
		value, ok := rule.extract(payload)
		if !ok {
			continue
		}
		if rows, ok := toRowSet(value); ok {
			return rows
		}
	}
	return nil
}

func topLevel(key string) func(map[string]any) (any, bool) {
	return func(payload map[string]any) (any, bool) {
		value, ok := payload[key]
		return value, ok
	}
}

func nested(outer, inner string) func(map[string]any) (any, bool) {
	return func(payload map[string]any) (any, bool) {
		child, ok := payload[outer].(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok := child[inner]
		return value, ok
	}
}

// toRowSet converts a decoded JSON list into an ordered row set. Rows are
// expected to be objects; scalar entries are wrapped under "value" so an
// unusual but valid result list is not dropped.
func toRowSet(value any) ([]map[string]any, bool) {
	switch typed := value.(type) {
	case []map[string]any:
		return typed, true
	case []any:
		rows := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			if row, ok := item.(map[string]any); ok {
				rows = append(rows, row)
				continue
			}
			rows = append(rows, map[string]any{"value": item})
		}
		return rows, true
	default:
		return nil, false
	}
}
