package service

import (
	"context"
	"errors"

	"github.com/jhart/medialens/internal/domain"
)

// ErrInvalidMediaType is returned when a document carries an unknown
// media type.
var ErrInvalidMediaType = errors.New("invalid media type")

// SearchIndex is the search backend documents are retrieved from. Writes
// are idempotent replace-by-id; deduplication happens in callers, before
// any model inference is spent.
type SearchIndex interface {
	Upsert(ctx context.Context, doc *domain.MediaDocument) error
	Exists(ctx context.Context, filename string, mediaType domain.MediaType) (bool, error)
	Delete(ctx context.Context, filename string, mediaType domain.MediaType) error
	KeywordSearch(ctx context.Context, query string, fields []string, size int) ([]domain.ScoredDocument, error)
	VectorSearch(ctx context.Context, vector []float32, topK int) ([]domain.ScoredDocument, error)
}

// DocumentStore is the relational side of the dual store.
type DocumentStore interface {
	Exists(ctx context.Context, filename string, mediaType domain.MediaType) (bool, error)
	Upsert(ctx context.Context, rec *domain.MediaAnalysis, overwrite bool) (domain.StoreOutcome, error)
}
