package service

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/jhart/medialens/internal/config"
)

const defaultJinaBaseURL = "https://api.jina.ai/v1"

// EmbeddingProvider produces fixed-dimension embedding vectors for text.
// Passage and query embeddings are asymmetric; callers must use the right
// one for their side of the retrieval.
type EmbeddingProvider interface {
	EmbedPassage(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Dimensions() int
}

// EmbeddingService generates text embeddings through a Jina-compatible API.
type EmbeddingService struct {
	client     *resty.Client
	model      string
	dimensions int
	endpoint   string
}

// NewEmbeddingService creates a new embedding service.
// Parameters:
//   - cfg: embedding configuration including model, API key, and dimensions.
//
// Returns:
//   - *EmbeddingService: initialized embedding client.
func NewEmbeddingService(cfg *config.EmbeddingConfig) *EmbeddingService {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultJinaBaseURL
	}

	return &EmbeddingService{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		endpoint:   baseURL + "/embeddings",
	}
}

// Dimensions returns the embedding vector length this service produces.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// Jina API request/response structures
type jinaRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// EmbedPassage generates an embedding for indexed document text.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - text: document text to embed.
//
// Returns:
//   - []float32: embedding vector of Dimensions() length.
//   - error: non-nil if the API request fails.
func (s *EmbeddingService) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return s.embed(ctx, text, "retrieval.passage")
}

// EmbedQuery generates an embedding optimized for search queries.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: search query to embed.
//
// Returns:
//   - []float32: embedding vector of Dimensions() length.
//   - error: non-nil if the API request fails.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return s.embed(ctx, query, "retrieval.query")
}

func (s *EmbeddingService) embed(ctx context.Context, text, task string) ([]float32, error) {
	req := jinaRequest{
		Model:         s.model,
		Task:          task,
		Dimensions:    s.dimensions,
		Input:         []string{text},
		EmbeddingType: "float",
	}

	var resp jinaResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("embedding API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("embedding API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	if len(resp.Data[0].Embedding) != s.dimensions {
		return nil, fmt.Errorf("unexpected embedding length: got %d, expected %d",
			len(resp.Data[0].Embedding), s.dimensions)
	}

	return resp.Data[0].Embedding, nil
}
