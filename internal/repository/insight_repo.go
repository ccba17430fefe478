package repository

import (
	"context"
	"fmt"

	"github.com/danylo/tubegems/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsightRepository handles persistence of enriched video records.
type InsightRepository struct {
	db *gorm.DB
}

// NewInsightRepository creates a new InsightRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *InsightRepository: repository instance bound to db.
func NewInsightRepository(db *gorm.DB) *InsightRepository {
	return &InsightRepository{db: db}
}

// Upsert creates or updates a record keyed by video_id as a single atomic
// statement. On conflict every mutable field is overwritten; video_id and
// created_at are preserved so the first-insert timestamp survives reruns.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *InsightRepository) Upsert(ctx context.Context, rec *domain.VideoInsight) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "channel_id", "channel_title",
			"views", "subs", "score", "insight", "updated_at",
		}),
	}).Create(rec).Error
}

// GetByVideoID retrieves a record by its video ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - videoID: video identifier.
// Returns:
//   - *domain.VideoInsight: record if found.
//   - error: non-nil if lookup fails (gorm.ErrRecordNotFound when absent).
func (r *InsightRepository) GetByVideoID(ctx context.Context, videoID string) (*domain.VideoInsight, error) {
	var rec domain.VideoInsight
	if err := r.db.WithContext(ctx).First(&rec, "video_id = ?", videoID).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByVideoIDs retrieves records by a list of video IDs.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: list of video IDs.
// Returns:
//   - []domain.VideoInsight: matching records (order unspecified).
//   - error: non-nil if the query fails.
func (r *InsightRepository) GetByVideoIDs(ctx context.Context, ids []string) ([]domain.VideoInsight, error) {
	if len(ids) == 0 {
		return []domain.VideoInsight{}, nil
	}
	var recs []domain.VideoInsight
	if err := r.db.WithContext(ctx).Where("video_id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to get insights by video IDs: %w", err)
	}
	return recs, nil
}

// List retrieves stored records ordered by score descending with pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.VideoInsight: page of records.
//   - error: non-nil if the query fails.
func (r *InsightRepository) List(ctx context.Context, limit, offset int) ([]domain.VideoInsight, error) {
	var recs []domain.VideoInsight
	if err := r.db.WithContext(ctx).
		Order("score DESC").
		Limit(limit).
		Offset(offset).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// ListAll retrieves every stored record ordered by score descending.
// Used by the dashboard export endpoint.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.VideoInsight: all records.
//   - error: non-nil if the query fails.
func (r *InsightRepository) ListAll(ctx context.Context) ([]domain.VideoInsight, error) {
	var recs []domain.VideoInsight
	if err := r.db.WithContext(ctx).Order("score DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// Count returns the total number of stored records.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: record count.
//   - error: non-nil if the query fails.
func (r *InsightRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.VideoInsight{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
