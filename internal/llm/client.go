package llm

import (
	"context"
)

// Result carries the generated text plus the usage numbers the interaction
// log records.
type Result struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

type Client interface {
	Provider() string
	Generate(ctx context.Context, prompt string, maxTokens int) (*Result, error)
}
