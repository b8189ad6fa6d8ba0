package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
)

type fakeGenerator struct {
	calls    int
	lastMsgs []llms.MessageContent
	content  string
	err      error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.lastMsgs = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content}}}, nil
}

func (f *fakeGenerator) userPrompt(t *testing.T) string {
	t.Helper()
	if len(f.lastMsgs) != 2 {
		t.Fatalf("message count = %d", len(f.lastMsgs))
	}
	text, ok := f.lastMsgs[1].Parts[0].(llms.TextContent)
	if !ok {
		t.Fatalf("unexpected part type %T", f.lastMsgs[1].Parts[0])
	}
	return text.Text
}

func TestSummarizeEmbedsQueryRowsAndQuestion(t *testing.T) {
	gen := &fakeGenerator{content: "  There are four cases.  "}
	summarizer := NewLLMSummarizer(gen, Config{Temperature: 0.2})

	rows := []map[string]any{{"title": "Smith v Jones"}}
	got, err := summarizer.Summarize(context.Background(), "Find list of cases", "MATCH (c:Case) RETURN c", rows)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got != "There are four cases." {
		t.Fatalf("Summarize() = %q", got)
	}

	prompt := gen.userPrompt(t)
	if !strings.Contains(prompt, "MATCH (c:Case) RETURN c") {
		t.Fatal("prompt is missing the query")
	}
	if !strings.Contains(prompt, "Smith v Jones") {
		t.Fatal("prompt is missing the rows")
	}
	if !strings.Contains(prompt, "Find list of cases") {
		t.Fatal("prompt is missing the question")
	}
}

func TestSummarizeEmptyRowSetStillAnswers(t *testing.T) {
	gen := &fakeGenerator{content: "No matching data was found."}
	summarizer := NewLLMSummarizer(gen, Config{})

	got, err := summarizer.Summarize(context.Background(), "cases in 2031?", "MATCH (c:Case) RETURN c", nil)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got == "" {
		t.Fatal("expected non-empty answer for empty row set")
	}
	if !strings.Contains(gen.userPrompt(t), "no rows returned") {
		t.Fatal("prompt should state that no rows were returned")
	}
}

func TestSummarizeSurfacesUpstreamFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	summarizer := NewLLMSummarizer(gen, Config{})
	if _, err := summarizer.Summarize(context.Background(), "q", "", nil); err == nil {
		t.Fatal("expected upstream error")
	}
}

func TestRenderRowsCapsLength(t *testing.T) {
	rows := []map[string]any{{"blob": strings.Repeat("x", 500)}}
	got := renderRows(rows, 100)
	if len(got) > 120 {
		t.Fatalf("rendered length = %d", len(got))
	}
	if !strings.HasSuffix(got, "…(truncated)") {
		t.Fatalf("missing truncation marker: %q", got)
	}
}

func TestRenderRowsTruncatesOnRuneBoundary(t *testing.T) {
	rows := []map[string]any{{"title": strings.Repeat("Müller gegen Bäcker ", 50)}}
	// Sweep the cap across several byte offsets so some cuts land inside a
	// multi-byte character.
	for maxChars := 40; maxChars < 48; maxChars++ {
		got := renderRows(rows, maxChars)
		if !utf8.ValidString(got) {
			t.Fatalf("maxChars=%d produced invalid UTF-8: %q", maxChars, got)
		}
		if !strings.HasSuffix(got, "…(truncated)") {
			t.Fatalf("maxChars=%d missing truncation marker: %q", maxChars, got)
		}
	}
}
