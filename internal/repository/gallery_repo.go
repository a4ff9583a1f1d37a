package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/ghostbooth/internal/domain"
	"gorm.io/gorm"
)

// GalleryRepository stores append-only gallery records.
type GalleryRepository struct {
	db *gorm.DB
}

// NewGalleryRepository creates a new GalleryRepository.
func NewGalleryRepository(db *gorm.DB) *GalleryRepository {
	return &GalleryRepository{db: db}
}

// Create inserts rec, assigning an ID and a UTC creation time when missing.
// Timestamps are truncated to microseconds so every driver round-trips them
// exactly, which keeps cursor comparisons stable.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - rec: record to persist; ID and CreatedAt are filled in place.
// Returns:
//   - error: non-nil if the insert fails.
func (r *GalleryRepository) Create(ctx context.Context, rec *domain.GalleryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Microsecond)
	return r.db.WithContext(ctx).Create(rec).Error
}

// ListBefore returns up to limit records newer-first. A non-zero before keeps
// only records created strictly earlier.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - before: exclusive upper bound on created_at; zero means no bound.
//   - limit: maximum number of records.
// Returns:
//   - []domain.GalleryRecord: records ordered by created_at descending.
//   - error: non-nil if the query fails.
func (r *GalleryRepository) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.GalleryRecord, error) {
	var records []domain.GalleryRecord
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if !before.IsZero() {
		q = q.Where("created_at < ?", before.UTC())
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list gallery records: %w", err)
	}
	return records, nil
}

// GetByID retrieves a record by its ID.
func (r *GalleryRepository) GetByID(ctx context.Context, id string) (*domain.GalleryRecord, error) {
	var rec domain.GalleryRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("gallery record %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &rec, nil
}

// Count returns the number of records.
func (r *GalleryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.GalleryRecord{}).Count(&n).Error
	return n, err
}

// Ping checks that the database answers.
func (r *GalleryRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
