package nl2cypher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ContentGenerator is the slice of llms.Model the translator needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type LLMTranslator struct {
	model       ContentGenerator
	modelName   string
	temperature float64
	timeout     time.Duration
}

// NewOpenAITranslator builds a translator backed by an OpenAI-compatible
// chat completion endpoint.
func NewOpenAITranslator(cfg Config) (*LLMTranslator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}

	opts := []openai.Option{
		openai.WithToken(strings.TrimSpace(cfg.APIKey)),
		openai.WithModel(model),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, openai.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("build openai client: %w", err)
	}
	cfg.Model = model
	return NewLLMTranslator(client, cfg), nil
}

// NewLLMTranslator wraps an already-constructed generation model. Used by
// tests and by callers that share one model across components.
func NewLLMTranslator(model ContentGenerator, cfg Config) *LLMTranslator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMTranslator{
		model:       model,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		timeout:     timeout,
	}
}

func (t *LLMTranslator) Translate(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question is required")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, translateSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildTranslatePrompt(question)),
	}

	resp, err := t.model.GenerateContent(ctx, messages,
		llms.WithTemperature(t.temperature),
	)
	if err != nil {
		return "", fmt.Errorf("generate cypher: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion choices")
	}

	cypher := stripCodeFence(resp.Choices[0].Content)
	if cypher == "" {
		return "", fmt.Errorf("model returned empty query")
	}
	return cypher, nil
}
