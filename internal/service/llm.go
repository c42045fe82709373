package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jhart/medialens/internal/config"
)

// AnswerProvider turns a fully built prompt into free-form answer text.
type AnswerProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLMService generates summaries and answers through an OpenAI-compatible
// chat completions API.
type LLMService struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewLLMService creates a new LLM service.
// Parameters:
//   - cfg: LLM configuration including provider, model, and API key.
//
// Returns:
//   - *LLMService: initialized LLM client wrapper.
func NewLLMService(cfg *config.LLMConfig) *LLMService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &LLMService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

// Complete sends a single-turn prompt and returns the model's reply.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - prompt: full prompt text, already assembled by the caller.
//
// Returns:
//   - string: trimmed completion text.
//   - error: non-nil if the API request fails.
func (s *LLMService) Complete(ctx context.Context, prompt string) (string, error) {
	req := openAIRequest{
		Model: s.model,
		Messages: []openAIMessage{
			{Role: "user", Content: prompt},
		},
	}

	var resp openAIResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call LLM API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != nil {
			return "", fmt.Errorf("LLM API returned error: HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("LLM API returned error: HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
	}
	if resp.Error != nil {
		return "", fmt.Errorf("LLM API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM API (status %d)", httpResp.StatusCode())
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
