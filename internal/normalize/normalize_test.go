package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStructuredReadResult(t *testing.T) {
	env := StructuredEnvelope(map[string]any{
		"ok":   true,
		"rows": []any{map[string]any{"title": "Smith v Jones"}},
	})

	result, err := Normalize(env, Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Cypher)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Smith v Jones", result.Rows[0]["title"])
}

func TestNormalizeContentBlockRoundTrip(t *testing.T) {
	env := BlockEnvelope(Block{
		Type: "text",
		Text: `{"cypher":"MATCH (c:Case) RETURN c","rows":[{"a":1}]}`,
	})

	result, err := Normalize(env, Options{RequireCypher: true})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (c:Case) RETURN c", result.Cypher)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, float64(1), result.Rows[0]["a"])
}

func TestNormalizeGraphDataRows(t *testing.T) {
	env := BlockEnvelope(Block{
		Type: "text",
		Text: `{"cypher":"MATCH (c:Case) RETURN c","graphData":[{"c":{"title":"A"}},{"c":{"title":"B"}}]}`,
	})

	result, err := Normalize(env, Options{RequireCypher: true})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (c:Case) RETURN c", result.Cypher)
	assert.Len(t, result.Rows, 2)
}

func TestNormalizeQueryFieldPriority(t *testing.T) {
	env := StructuredEnvelope(map[string]any{
		"cypher": "MATCH (a) RETURN a",
		"query":  "MATCH (b) RETURN b",
	})

	result, err := Normalize(env, Options{RequireCypher: true})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (a) RETURN a", result.Cypher)
}

func TestNormalizeNestedMetadataQuery(t *testing.T) {
	env := StructuredEnvelope(map[string]any{
		"metadata": map[string]any{"cypher_text": "MATCH (n) RETURN n"},
		"records":  []any{},
	})

	result, err := Normalize(env, Options{RequireCypher: true})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n) RETURN n", result.Cypher)
	assert.Empty(t, result.Rows)
}

func TestNormalizeRowFieldPriority(t *testing.T) {
	env := StructuredEnvelope(map[string]any{
		"records": []any{map[string]any{"from": "records"}},
		"rows":    []any{map[string]any{"from": "rows"}},
	})

	result, err := Normalize(env, Options{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "records", result.Rows[0]["from"])
}

func TestNormalizeMissingQueryFailsClosed(t *testing.T) {
	env := StructuredEnvelope(map[string]any{
		"rows": []any{map[string]any{"a": 1}},
	})

	_, err := Normalize(env, Options{RequireCypher: true})
	var noQuery *NoQueryError
	require.ErrorAs(t, err, &noQuery)
	assert.NotNil(t, noQuery.Raw)
}

func TestNormalizePayloadErrorField(t *testing.T) {
	env := StructuredEnvelope(map[string]any{"error": "No Cypher generated"})

	_, err := Normalize(env, Options{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "No Cypher generated", toolErr.Message)
}

func TestNormalizeSkipsNonTextBlocks(t *testing.T) {
	env := BlockEnvelope(
		Block{Type: "image", Text: "ignored"},
		Block{Type: "text", Text: `{"cypher":"MATCH (n) RETURN n"}`},
	)

	result, err := Normalize(env, Options{RequireCypher: true})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n) RETURN n", result.Cypher)
}

func TestNormalizeRejectsUnparsableBlock(t *testing.T) {
	env := BlockEnvelope(Block{Type: "text", Text: "not json"})
	_, err := Normalize(env, Options{})
	require.Error(t, err)
	var noQuery *NoQueryError
	assert.False(t, errors.As(err, &noQuery), "unparsable payload is not a no-query condition")
}

func TestNormalizeRejectsEmptyEnvelope(t *testing.T) {
	_, err := Normalize(Envelope{Kind: KindContentBlocks}, Options{})
	require.Error(t, err)
}

func TestNormalizeKeepsRawWhenAsked(t *testing.T) {
	payload := map[string]any{"rows": []any{}}
	result, err := Normalize(StructuredEnvelope(payload), Options{KeepRaw: true})
	require.NoError(t, err)
	assert.Equal(t, payload, result.Raw)

	result, err = Normalize(StructuredEnvelope(payload), Options{})
	require.NoError(t, err)
	assert.Nil(t, result.Raw)
}

func TestToRowSetWrapsScalars(t *testing.T) {
	rows, ok := toRowSet([]any{"a", float64(2)})
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0]["value"])
}
