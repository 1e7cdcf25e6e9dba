// Package coach builds the natural-language position briefing the "coach"
// endpoint returns: a pluggable Summarizer talks to an OpenAI-compatible
// endpoint when one is configured, falling back to a deterministic
// rendered summary on any error or when no endpoint is configured at all.
package coach

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Summarizer turns a structured position prompt into prose. The HTTP-backed
// implementation and the deterministic fallback both satisfy it, so the
// briefing builder never has to know which one answered.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// OpenAISummarizer calls an OpenAI-compatible chat completion endpoint.
// baseURL lets this point at a self-hosted gateway (e.g. a local Ollama or
// vLLM instance speaking the OpenAI wire format) instead of api.openai.com.
type OpenAISummarizer struct {
	client *openai.Client
	model  string
}

func NewOpenAISummarizer(baseURL, apiKey, model string) *OpenAISummarizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAISummarizer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a concise chess coach. Explain the position in three sentences or fewer."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: 200,
	})
	if err != nil {
		return "", fmt.Errorf("coach: summarizer call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("coach: summarizer returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// FallbackSummarizer renders a deterministic, structured-text summary with
// no external dependency at all, used whenever no LLM endpoint is
// configured or the configured one errors.
type FallbackSummarizer struct{}

func (FallbackSummarizer) Summarize(_ context.Context, prompt string) (string, error) {
	return "Position summary (offline): " + prompt, nil
}
