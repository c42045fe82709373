package service

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/jhart/medialens/internal/domain"
	"github.com/jhart/medialens/internal/logger"
	"github.com/jhart/medialens/internal/media"
)

// IngestStats summarizes one batch ingestion run.
type IngestStats struct {
	Scanned  int `json:"scanned"`
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// IngestService is the batch ingestion coordinator. It walks a media root
// sequentially, skips hidden and already-ingested files, analyzes the rest,
// and writes each resulting document to the search index and, when enabled,
// the relational store. A failure on one file never aborts the batch.
type IngestService struct {
	index        SearchIndex
	store        DocumentStore
	analyzer     Analyzer
	writeToStore bool
}

// NewIngestService creates a new ingestion coordinator.
// Parameters:
//   - index: search index writes go here unconditionally.
//   - store: relational store; written only when writeToStore is true.
//   - analyzer: media-to-document conversion.
//   - writeToStore: gates the relational write. Index-only is a valid
//     terminal state, not a failure.
//
// Returns:
//   - *IngestService: initialized coordinator.
func NewIngestService(index SearchIndex, store DocumentStore, analyzer Analyzer, writeToStore bool) *IngestService {
	return &IngestService{
		index:        index,
		store:        store,
		analyzer:     analyzer,
		writeToStore: writeToStore,
	}
}

// IngestDirectory walks mediaRoot and ingests every supported media file.
// Files are processed one at a time; there are no concurrent writers to
// the same filename.
// Parameters:
//   - ctx: context for cancellation; checked between files.
//   - mediaRoot: directory to scan recursively.
//
// Returns:
//   - *IngestStats: per-outcome counts for the run.
//   - error: non-nil only if the walk itself or the context fails;
//     per-file failures are counted, logged, and do not abort the batch.
func (s *IngestService) IngestDirectory(ctx context.Context, mediaRoot string) (*IngestStats, error) {
	stats := &IngestStats{}

	err := filepath.WalkDir(mediaRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if media.IsHidden(name) {
			logger.CtxDebug(ctx, "skipping hidden file: %s", name)
			return nil
		}
		mediaType, ok := media.TypeOf(name)
		if !ok {
			logger.CtxDebug(ctx, "skipping unsupported file: %s", name)
			return nil
		}

		stats.Scanned++
		fileCtx := logger.WithFields(ctx, logger.Fields{
			logger.FieldFilename:  name,
			logger.FieldMediaType: mediaType,
		})

		switch outcome, err := s.ingestFile(fileCtx, mediaRoot, path, mediaType); {
		case err != nil:
			stats.Failed++
			logger.CtxError(fileCtx, "failed to ingest %s: %v", name, err)
		case outcome == domain.OutcomeSkipped:
			stats.Skipped++
		default:
			stats.Ingested++
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("media root walk failed: %w", err)
	}

	logger.CtxInfo(ctx, "ingestion complete: scanned=%d ingested=%d skipped=%d failed=%d",
		stats.Scanned, stats.Ingested, stats.Skipped, stats.Failed)
	return stats, nil
}

// ingestFile handles one file: dedup check against both stores, analysis,
// then the dual-store write.
func (s *IngestService) ingestFile(ctx context.Context, mediaRoot, path string, mediaType domain.MediaType) (domain.StoreOutcome, error) {
	filename := filepath.Base(path)

	// Check both stores before spending any inference. A document present
	// in either is a duplicate.
	dup, err := s.isDuplicate(ctx, filename, mediaType)
	if err != nil {
		return "", err
	}
	if dup {
		logger.CtxInfo(ctx, "skipping already ingested file: %s", filename)
		return domain.OutcomeSkipped, nil
	}

	doc, err := s.analyzer.Analyze(ctx, path, mediaType)
	if err != nil {
		return "", err
	}

	relPath, err := filepath.Rel(mediaRoot, path)
	if err != nil {
		relPath = filename
	}
	doc.RelativePath = relPath
	doc.Timestamp = time.Now().UTC()

	if err := s.index.Upsert(ctx, doc); err != nil {
		return "", fmt.Errorf("index write failed: %w", err)
	}

	if s.writeToStore {
		rec := &domain.MediaAnalysis{
			Filename:   doc.Filename,
			MediaType:  doc.MediaType,
			Summary:    doc.Summary,
			Transcript: doc.Transcript,
			Metadata:   doc.Metadata,
		}
		if _, err := s.store.Upsert(ctx, rec, false); err != nil {
			// Roll the index write back so the document is not left
			// referenced in one store and absent from the other.
			if delErr := s.index.Delete(ctx, doc.Filename, doc.MediaType); delErr != nil {
				logger.CtxError(ctx, "rollback of index write failed for %s: %v", filename, delErr)
			}
			return "", fmt.Errorf("store write failed: %w", err)
		}
	}

	logger.CtxInfo(ctx, "ingested %s", filename)
	return domain.OutcomeStored, nil
}

func (s *IngestService) isDuplicate(ctx context.Context, filename string, mediaType domain.MediaType) (bool, error) {
	inStore, err := s.store.Exists(ctx, filename, mediaType)
	if err != nil {
		return false, fmt.Errorf("store existence check failed: %w", err)
	}
	if inStore {
		return true, nil
	}
	inIndex, err := s.index.Exists(ctx, filename, mediaType)
	if err != nil {
		return false, fmt.Errorf("index existence check failed: %w", err)
	}
	return inIndex, nil
}
