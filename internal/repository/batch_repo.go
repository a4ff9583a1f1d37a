package repository

import (
	"context"

	"github.com/timmy/ghostbooth/internal/domain"
	"gorm.io/gorm"
)

// BatchRunRepository tracks batch command runs.
type BatchRunRepository struct {
	db *gorm.DB
}

// NewBatchRunRepository creates a new BatchRunRepository.
func NewBatchRunRepository(db *gorm.DB) *BatchRunRepository {
	return &BatchRunRepository{db: db}
}

// Create inserts a new run.
func (r *BatchRunRepository) Create(ctx context.Context, run *domain.BatchRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update saves the run's progress counters and status.
func (r *BatchRunRepository) Update(ctx context.Context, run *domain.BatchRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByID retrieves a run by its ID.
func (r *BatchRunRepository) GetByID(ctx context.Context, id string) (*domain.BatchRun, error) {
	var run domain.BatchRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
