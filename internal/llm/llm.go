// Package llm talks to the local LLM bridge for transcript summarization.
// The bridge exposes an OpenAI-compatible chat API, so the adapter reuses the
// go-openai client pointed at the bridge's base URL.
package llm

import (
	"context"
	"fmt"
)

// Adapter summarizes transcript text.
type Adapter interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Config holds summarizer configuration.
type Config struct {
	BaseURL  string // LLM bridge endpoint, e.g. http://127.0.0.1:8081/v1
	APIKey   string // bearer token; bridges usually accept any non-empty value
	Model    string
	Template string // prompt template tag, see prompt.go
}

// NewAdapter builds the bridge-backed summarizer.
func NewAdapter(cfg Config) (Adapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("LLM bridge base URL required")
	}
	if !KnownTemplate(cfg.Template) {
		return nil, fmt.Errorf("unknown prompt template %q", cfg.Template)
	}
	return newBridgeAdapter(cfg), nil
}
