package gateway

import "fmt"

// Error kinds mark which pipeline stage aborted a request. Handlers use
// them for logging and metrics; the HTTP body carries only the message.
type TranslationError struct {
	Err error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed: %v", e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }

type ToolInvocationError struct {
	Tool string
	Err  error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("tool %s invocation failed: %v", e.Tool, e.Err)
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

type QueryExtractionError struct {
	Err error
}

func (e *QueryExtractionError) Error() string {
	return fmt.Sprintf("query extraction failed: %v", e.Err)
}

func (e *QueryExtractionError) Unwrap() error { return e.Err }

type SummarizationError struct {
	Err error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarization failed: %v", e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }
