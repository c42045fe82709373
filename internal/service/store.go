package service

import (
	"context"
	"fmt"

	"github.com/jhart/medialens/internal/domain"
	"github.com/jhart/medialens/internal/logger"
)

// StoreService is the upload-time persistence path: one analyzed document
// written to both stores, with overwrite-or-skip semantics decided by the
// relational store.
type StoreService struct {
	index SearchIndex
	store DocumentStore
}

// NewStoreService creates a new store service.
// Parameters:
//   - index: search index.
//   - store: relational document store.
//
// Returns:
//   - *StoreService: initialized service.
func NewStoreService(index SearchIndex, store DocumentStore) *StoreService {
	return &StoreService{index: index, store: store}
}

// Store persists one analyzed document to both stores. The relational
// store decides first: a skip there short-circuits the whole operation
// with no side effects in either store. Only after the relational write
// commits is the search index written.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - doc: analyzed document including the embedding vector.
//   - overwrite: whether an existing (filename, media_type) record may be
//     replaced.
//
// Returns:
//   - domain.StoreOutcome: OutcomeStored or OutcomeSkipped.
//   - error: non-nil if validation or either write fails. A failed index
//     write after a committed relational write is surfaced as an
//     inconsistency, never silently retried.
func (s *StoreService) Store(ctx context.Context, doc *domain.MediaDocument, overwrite bool) (domain.StoreOutcome, error) {
	if !doc.MediaType.Valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidMediaType, doc.MediaType)
	}
	if doc.Filename == "" {
		return "", fmt.Errorf("document has no filename")
	}

	rec := &domain.MediaAnalysis{
		Filename:   doc.Filename,
		MediaType:  doc.MediaType,
		Summary:    doc.Summary,
		Transcript: doc.Transcript,
		Metadata:   doc.Metadata,
	}
	outcome, err := s.store.Upsert(ctx, rec, overwrite)
	if err != nil {
		return "", fmt.Errorf("store write failed for %s: %w", doc.ID(), err)
	}
	if outcome == domain.OutcomeSkipped {
		logger.CtxInfo(ctx, "skipping existing document: %s", doc.ID())
		return domain.OutcomeSkipped, nil
	}

	if err := s.index.Upsert(ctx, doc); err != nil {
		return "", fmt.Errorf("index write failed for %s after store commit, stores are inconsistent: %w", doc.ID(), err)
	}

	logger.CtxInfo(ctx, "stored document: %s", doc.ID())
	return domain.OutcomeStored, nil
}
