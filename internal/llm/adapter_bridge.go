package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
)

// bridgeAdapter implements Adapter against the local LLM bridge's
// OpenAI-compatible API.
type bridgeAdapter struct {
	client *openai.Client
	config Config
}

func newBridgeAdapter(cfg Config) *bridgeAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	return &bridgeAdapter{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
	}
}

func (a *bridgeAdapter) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	model := a.config.Model
	if model == "" {
		model = "llama3"
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(a.config.Template)},
			{Role: openai.ChatMessageRoleUser, Content: BuildUserPrompt(text)},
		},
		Temperature: 0.3,
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("llm-bridge: call failed after %v: %v", elapsed, err)
		return "", fmt.Errorf("llm bridge completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm bridge completion: no response choices")
	}

	result := resp.Choices[0].Message.Content
	log.Printf("llm-bridge: summarized %d chars in %v", len(text), elapsed)
	return result, nil
}
