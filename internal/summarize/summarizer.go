package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
)

// Summarizer produces a natural-language answer grounded in the rows a
// Cypher query returned.
type Summarizer interface {
	Summarize(ctx context.Context, question, cypher string, rows []map[string]any) (string, error)
}

// ContentGenerator is the slice of llms.Model the summarizer needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Config struct {
	Temperature       float64
	Timeout           time.Duration
	MaxGroundingChars int
}

type LLMSummarizer struct {
	model             ContentGenerator
	temperature       float64
	timeout           time.Duration
	maxGroundingChars int
}

const systemPrompt = "You answer questions about a legal-cases graph database. " +
	"Base your answer strictly on the query results provided. If the results are empty, " +
	"say that no matching data was found. Answer in plain prose."

func NewLLMSummarizer(model ContentGenerator, cfg Config) *LLMSummarizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxChars := cfg.MaxGroundingChars
	if maxChars <= 0 {
		maxChars = 10000
	}
	return &LLMSummarizer{
		model:             model,
		temperature:       cfg.Temperature,
		timeout:           timeout,
		maxGroundingChars: maxChars,
	}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, question, cypher string, rows []map[string]any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, s.buildPrompt(question, cypher, rows)),
	}

	resp, err := s.model.GenerateContent(ctx, messages,
		llms.WithTemperature(s.temperature),
	)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion choices")
	}

	answer := strings.TrimSpace(resp.Choices[0].Content)
	if answer == "" {
		return "", fmt.Errorf("model returned empty answer")
	}
	return answer, nil
}

func (s *LLMSummarizer) buildPrompt(question, cypher string, rows []map[string]any) string {
	var b strings.Builder
	if cypher != "" {
		b.WriteString("Cypher query used:\n")
		b.WriteString(cypher)
		b.WriteString("\n\n")
	}
	b.WriteString("Query results (JSON):\n")
	b.WriteString(renderRows(rows, s.maxGroundingChars))
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}

// renderRows serializes the row set for prompt embedding, capped so one
// oversized result cannot blow the model's context window.
func renderRows(rows []map[string]any, maxChars int) string {
	if len(rows) == 0 {
		return "[] (no rows returned)"
	}
	encoded, err := json.Marshal(rows)
	if err != nil {
		return fmt.Sprintf("%v", rows)
	}
	text := string(encoded)
	if len(text) > maxChars {
		// Back up to a rune start so the cut never splits a multi-byte
		// character.
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + " …(truncated)"
	}
	return text
}
