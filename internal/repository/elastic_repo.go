package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/jhart/medialens/internal/config"
	"github.com/jhart/medialens/internal/domain"
)

// ErrVectorDimension is returned when a vector's length does not match
// the index mapping.
var ErrVectorDimension = errors.New("vector dimension mismatch")

// ElasticRepository is the search index. It talks to Elasticsearch over the
// REST API and owns both write paths (replace-by-id upsert) and the two
// query shapes the retrieval pipeline needs: fuzzy multi-field keyword
// match and script-scored vector similarity.
type ElasticRepository struct {
	client     *resty.Client
	index      string
	vectorDims int
}

// NewElasticRepository creates a new ElasticRepository.
// Parameters:
//   - cfg: Elasticsearch configuration (host, index, credentials, dims).
// Returns:
//   - *ElasticRepository: initialized repository.
func NewElasticRepository(cfg *config.ElasticConfig) *ElasticRepository {
	client := resty.New()
	client.SetBaseURL(cfg.Host)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Username != "" {
		client.SetBasicAuth(cfg.Username, cfg.Password)
	}

	return &ElasticRepository{
		client:     client,
		index:      cfg.Index,
		vectorDims: cfg.VectorDims,
	}
}

// esErrorResponse captures the error envelope Elasticsearch returns.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string               `json:"_id"`
			Score  float64              `json:"_score"`
			Source domain.MediaDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esCountResponse struct {
	Count int64 `json:"count"`
}

// EnsureIndex creates the index with the documented mapping if it does not
// exist yet. An existing index is left untouched.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - error: non-nil if the index cannot be created.
func (r *ElasticRepository) EnsureIndex(ctx context.Context) error {
	resp, err := r.client.R().SetContext(ctx).Head("/" + r.index)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", r.index, err)
	}
	if resp.StatusCode() == 200 {
		return nil
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"filename":      map[string]interface{}{"type": "keyword"},
				"media_type":    map[string]interface{}{"type": "keyword"},
				"summary":       map[string]interface{}{"type": "text"},
				"transcript":    map[string]interface{}{"type": "text"},
				"relative_path": map[string]interface{}{"type": "keyword"},
				"timestamp":     map[string]interface{}{"type": "date"},
				"vector": map[string]interface{}{
					"type": "dense_vector",
					"dims": r.vectorDims,
				},
			},
		},
	}

	var esErr esErrorResponse
	resp, err = r.client.R().
		SetContext(ctx).
		SetBody(mapping).
		SetError(&esErr).
		Put("/" + r.index)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", r.index, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to create index %s: %s", r.index, esErr.Error.Reason)
	}
	return nil
}

// Upsert writes a document under its composite id, replacing any previous
// version. No existence check is performed here; deduplication is the
// caller's responsibility and happens before any model inference.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - doc: document to index; its vector length must match the index dims.
// Returns:
//   - error: non-nil if validation or the write fails.
func (r *ElasticRepository) Upsert(ctx context.Context, doc *domain.MediaDocument) error {
	if len(doc.Vector) != r.vectorDims {
		return fmt.Errorf("%w: vector for %s has %d dimensions, index expects %d",
			ErrVectorDimension, doc.Filename, len(doc.Vector), r.vectorDims)
	}

	var esErr esErrorResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(doc).
		SetError(&esErr).
		SetQueryParam("refresh", "wait_for").
		Put("/" + r.index + "/_doc/" + doc.ID())
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID(), err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to index document %s: %s", doc.ID(), esErr.Error.Reason)
	}
	return nil
}

// Exists checks whether a document with the given identity is indexed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filename: media filename.
//   - mediaType: image or video.
// Returns:
//   - bool: true if the document exists.
//   - error: non-nil if the check fails.
func (r *ElasticRepository) Exists(ctx context.Context, filename string, mediaType domain.MediaType) (bool, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		Head("/" + r.index + "/_doc/" + domain.DocumentID(mediaType, filename))
	if err != nil {
		return false, fmt.Errorf("failed to check document existence: %w", err)
	}
	return resp.StatusCode() == 200, nil
}

// Delete removes a document by identity. Deleting a missing document is
// not an error; delete only happens as part of an overwrite rollback.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filename: media filename.
//   - mediaType: image or video.
// Returns:
//   - error: non-nil if the delete fails.
func (r *ElasticRepository) Delete(ctx context.Context, filename string, mediaType domain.MediaType) error {
	var esErr esErrorResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetError(&esErr).
		SetQueryParam("refresh", "wait_for").
		Delete("/" + r.index + "/_doc/" + domain.DocumentID(mediaType, filename))
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != 404 {
		return fmt.Errorf("failed to delete document: %s", esErr.Error.Reason)
	}
	return nil
}

// KeywordSearch performs a fuzzy multi-field match. All query terms must
// contribute to a hit ("and" semantics) and minor spelling variation is
// tolerated (fuzziness AUTO). Results are ordered by relevance descending.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: free-text query.
//   - fields: document fields to match against.
//   - size: maximum hits; 0 uses the index's default page size.
// Returns:
//   - []domain.ScoredDocument: hits with relevance scores.
//   - error: non-nil if the search fails.
func (r *ElasticRepository) KeywordSearch(ctx context.Context, query string, fields []string, size int) ([]domain.ScoredDocument, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    fields,
				"fuzziness": "AUTO",
				"operator":  "and",
			},
		},
	}
	if size > 0 {
		body["size"] = size
	}
	return r.search(ctx, body)
}

// VectorSearch scores every document by cosine similarity between the
// query vector and the stored vector, shifted by +1.0 so scores stay
// non-negative in [0, 2]; identical vectors score 2.0. Results are ordered
// by score descending, ties broken by the index.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - vector: query embedding; length must match the index dims.
//   - topK: maximum hits to return.
// Returns:
//   - []domain.ScoredDocument: hits with similarity scores.
//   - error: non-nil if validation or the search fails.
func (r *ElasticRepository) VectorSearch(ctx context.Context, vector []float32, topK int) ([]domain.ScoredDocument, error) {
	if len(vector) != r.vectorDims {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index expects %d",
			ErrVectorDimension, len(vector), r.vectorDims)
	}

	body := map[string]interface{}{
		"size": topK,
		"query": map[string]interface{}{
			"script_score": map[string]interface{}{
				"query": map[string]interface{}{"match_all": map[string]interface{}{}},
				"script": map[string]interface{}{
					"source": "cosineSimilarity(params.query_vector, 'vector') + 1.0",
					"params": map[string]interface{}{"query_vector": vector},
				},
			},
		},
	}
	return r.search(ctx, body)
}

func (r *ElasticRepository) search(ctx context.Context, body map[string]interface{}) ([]domain.ScoredDocument, error) {
	var result esSearchResponse
	var esErr esErrorResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&esErr).
		Post("/" + r.index + "/_search")
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("search failed: %s", esErr.Error.Reason)
	}

	docs := make([]domain.ScoredDocument, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		docs = append(docs, domain.ScoredDocument{
			MediaDocument: hit.Source,
			Score:         hit.Score,
		})
	}
	return docs, nil
}

// Count returns the number of indexed documents.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: document count.
//   - error: non-nil if the request fails.
func (r *ElasticRepository) Count(ctx context.Context) (int64, error) {
	var result esCountResponse
	var esErr esErrorResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&esErr).
		Get("/" + r.index + "/_count")
	if err != nil {
		return 0, fmt.Errorf("count request failed: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("count failed: %s", esErr.Error.Reason)
	}
	return result.Count, nil
}
