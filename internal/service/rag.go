package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhart/medialens/internal/config"
	"github.com/jhart/medialens/internal/domain"
	"github.com/jhart/medialens/internal/logger"
	"github.com/jhart/medialens/internal/prompts"
)

// ragSearchFields are the document fields keyword retrieval matches on.
var ragSearchFields = []string{"summary", "transcript"}

// RAGRequest is one retrieval-augmented query. Zero values fall back to
// the configured defaults; FallbackToKeyword defaults to the configured
// value when nil.
type RAGRequest struct {
	Query             string  `json:"query" binding:"required"`
	TopK              int     `json:"top_k"`
	ScoreThreshold    float64 `json:"score_threshold"`
	FallbackToKeyword *bool   `json:"fallback_to_keyword"`
	Debug             bool    `json:"debug"`
}

// RAGResult is the answer to a retrieval-augmented query.
type RAGResult struct {
	Query               string                  `json:"query"`
	Answer              string                  `json:"answer"`
	SupportingDocuments []domain.ScoredDocument `json:"supporting_documents"`
	RAGPrompt           string                  `json:"rag_prompt,omitempty"`
}

// RAGService runs the retrieval pipeline: embed the query, vector search,
// threshold filter, keyword fallback, then answer synthesis over the
// surviving context.
type RAGService struct {
	index    SearchIndex
	embedder EmbeddingProvider
	llm      AnswerProvider
	cfg      config.RAGConfig
}

// NewRAGService creates a new RAG service.
// Parameters:
//   - index: search index queried for candidates.
//   - embedder: query embedding provider.
//   - llm: answer generation provider.
//   - cfg: retrieval defaults (top_k, score threshold, fallback, context cap).
//
// Returns:
//   - *RAGService: initialized service.
func NewRAGService(index SearchIndex, embedder EmbeddingProvider, llm AnswerProvider, cfg config.RAGConfig) *RAGService {
	return &RAGService{
		index:    index,
		embedder: embedder,
		llm:      llm,
		cfg:      cfg,
	}
}

// Query answers a question using retrieved media documents as context.
// Vector hits must beat the score threshold strictly; when none do and
// fallback is enabled, keyword hits are taken as-is with no threshold.
// Either way the context is capped at the configured document count.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: query and per-request overrides.
//
// Returns:
//   - *RAGResult: answer with its supporting documents; the prompt is
//     included only when req.Debug is set.
//   - error: non-nil if embedding, any index call, or answer generation
//     fails. There is no partial-result return.
func (s *RAGService) Query(ctx context.Context, req *RAGRequest) (*RAGResult, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	threshold := req.ScoreThreshold
	if threshold == 0 {
		threshold = s.cfg.ScoreThreshold
	}
	fallback := s.cfg.FallbackToKeyword
	if req.FallbackToKeyword != nil {
		fallback = *req.FallbackToKeyword
	}
	maxDocs := s.cfg.MaxContextDocs
	if maxDocs <= 0 {
		maxDocs = 2
	}

	ctx = logger.WithField(ctx, logger.FieldQuery, req.Query)

	vector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	hits, err := s.index.VectorSearch(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	logger.CtxInfo(ctx, "vector search returned %d hit(s)", len(hits))

	var docs []domain.ScoredDocument
	for _, hit := range hits {
		if hit.Score > threshold {
			docs = append(docs, hit)
		}
		if len(docs) == maxDocs {
			break
		}
	}

	if len(docs) == 0 && fallback {
		logger.CtxInfo(ctx, "no vector hit above threshold %.2f, falling back to keyword search", threshold)
		kwHits, err := s.index.KeywordSearch(ctx, req.Query, ragSearchFields, topK)
		if err != nil {
			return nil, fmt.Errorf("keyword fallback failed: %w", err)
		}
		if len(kwHits) > maxDocs {
			kwHits = kwHits[:maxDocs]
		}
		docs = kwHits
	}

	prompt := prompts.AnswerPrompt(buildContext(docs), req.Query)

	answer, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	result := &RAGResult{
		Query:               req.Query,
		Answer:              answer,
		SupportingDocuments: stripVectors(docs),
	}
	if req.Debug {
		result.RAGPrompt = prompt
	}
	return result, nil
}

// Search is the plain keyword search surface: fuzzy multi-field match with
// no score threshold and no context cap.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: free-text query.
//   - size: maximum hits; 0 uses the index default.
//
// Returns:
//   - []domain.ScoredDocument: hits ordered by relevance.
//   - error: non-nil if the search fails.
func (s *RAGService) Search(ctx context.Context, query string, size int) ([]domain.ScoredDocument, error) {
	docs, err := s.index.KeywordSearch(ctx, query, ragSearchFields, size)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	return stripVectors(docs), nil
}

// buildContext concatenates each document's summary and transcript. An
// empty set yields the placeholder so the answer model still runs and can
// acknowledge the lack of evidence.
func buildContext(docs []domain.ScoredDocument) string {
	if len(docs) == 0 {
		return prompts.NoRelevantDocuments
	}
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, strings.TrimSpace(doc.Summary+"\n"+doc.Transcript))
	}
	return strings.Join(parts, "\n\n")
}

// stripVectors drops embedding vectors from response payloads.
func stripVectors(docs []domain.ScoredDocument) []domain.ScoredDocument {
	out := make([]domain.ScoredDocument, len(docs))
	for i, doc := range docs {
		doc.Vector = nil
		out[i] = doc
	}
	return out
}
