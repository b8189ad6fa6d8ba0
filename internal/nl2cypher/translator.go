package nl2cypher

import "context"

// Translator turns a natural-language question into a single read-only
// Cypher query string.
type Translator interface {
	Translate(ctx context.Context, question string) (string, error)
}
