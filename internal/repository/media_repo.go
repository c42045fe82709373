package repository

import (
	"context"
	"fmt"

	"github.com/jhart/medialens/internal/domain"
	"gorm.io/gorm"
)

// MediaRepository is the relational document store for media analysis
// records. Identity is the (filename, media_type) pair.
type MediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a new MediaRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *MediaRepository: repository instance bound to db.
func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Exists checks whether a record with the given identity is stored.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filename: media filename.
//   - mediaType: image or video.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *MediaRepository) Exists(ctx context.Context, filename string, mediaType domain.MediaType) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.MediaAnalysis{}).
		Where("filename = ? AND media_type = ?", filename, mediaType).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Upsert stores a media analysis record. If a record with the same
// (filename, media_type) already exists, behavior depends on overwrite:
// false returns OutcomeSkipped without side effects; true deletes the
// existing row and inserts the new one inside a single transaction, so a
// concurrent reader never observes zero or two rows for the identity.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: record to persist.
//   - overwrite: whether an existing record may be replaced.
// Returns:
//   - domain.StoreOutcome: OutcomeStored or OutcomeSkipped.
//   - error: non-nil if persistence fails; the transaction is rolled back.
func (r *MediaRepository) Upsert(ctx context.Context, rec *domain.MediaAnalysis, overwrite bool) (domain.StoreOutcome, error) {
	outcome := domain.OutcomeStored

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.MediaAnalysis
		err := tx.Where("filename = ? AND media_type = ?", rec.Filename, rec.MediaType).
			First(&existing).Error
		switch {
		case err == nil:
			if !overwrite {
				outcome = domain.OutcomeSkipped
				return nil
			}
			if err := tx.Delete(&domain.MediaAnalysis{}, "filename = ? AND media_type = ?",
				rec.Filename, rec.MediaType).Error; err != nil {
				return fmt.Errorf("failed to delete existing record: %w", err)
			}
		case err == gorm.ErrRecordNotFound:
			// fresh insert
		default:
			return fmt.Errorf("failed to check existing record: %w", err)
		}

		rec.ID = 0
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// GetByIdentity retrieves a record by filename and media type.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filename: media filename.
//   - mediaType: image or video.
// Returns:
//   - *domain.MediaAnalysis: record if found.
//   - error: non-nil if lookup fails.
func (r *MediaRepository) GetByIdentity(ctx context.Context, filename string, mediaType domain.MediaType) (*domain.MediaAnalysis, error) {
	var rec domain.MediaAnalysis
	if err := r.db.WithContext(ctx).
		First(&rec, "filename = ? AND media_type = ?", filename, mediaType).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// List retrieves records with optional media type filter, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - mediaType: media type to filter by; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.MediaAnalysis: matching records.
//   - error: non-nil if the query fails.
func (r *MediaRepository) List(ctx context.Context, mediaType domain.MediaType, limit, offset int) ([]domain.MediaAnalysis, error) {
	var recs []domain.MediaAnalysis
	query := r.db.WithContext(ctx)
	if mediaType != "" {
		query = query.Where("media_type = ?", mediaType)
	}
	if err := query.
		Limit(limit).
		Offset(offset).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// CountByMediaType counts stored records of one media type.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - mediaType: media type to count.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *MediaRepository) CountByMediaType(ctx context.Context, mediaType domain.MediaType) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.MediaAnalysis{}).
		Where("media_type = ?", mediaType).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
