package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/ghostbooth/internal/domain"
	"github.com/timmy/ghostbooth/internal/logger"
	"github.com/timmy/ghostbooth/internal/source"
)

// Uploader stores a photo and returns its reference.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// Transformer runs one costume transform.
type Transformer interface {
	Transform(ctx context.Context, req *domain.TransformRequest) (*domain.TransformResult, error)
}

// BatchRunRecorder persists batch progress.
type BatchRunRecorder interface {
	Create(ctx context.Context, run *domain.BatchRun) error
	Update(ctx context.Context, run *domain.BatchRun) error
}

// BatchService transforms every photo of a source with a worker pool.
type BatchService struct {
	uploads   Uploader
	transform Transformer
	runs      BatchRunRecorder
	logger    *logger.Logger
	workers   int
	batchSize int
}

// BatchConfig holds configuration for the batch service.
type BatchConfig struct {
	Workers   int
	BatchSize int
}

// NewBatchService creates a new batch service. runs may be nil.
func NewBatchService(uploads Uploader, transform Transformer, runs BatchRunRecorder, log *logger.Logger, cfg *BatchConfig) *BatchService {
	if log == nil {
		log = logger.GetDefault()
	}
	workers, batchSize := 2, 20
	if cfg != nil {
		if cfg.Workers > 0 {
			workers = cfg.Workers
		}
		if cfg.BatchSize > 0 {
			batchSize = cfg.BatchSize
		}
	}
	return &BatchService{
		uploads:   uploads,
		transform: transform,
		runs:      runs,
		logger:    log,
		workers:   workers,
		batchSize: batchSize,
	}
}

func (s *BatchService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// BatchOptions are the run-wide transform settings. Per-photo values from
// the source take precedence.
type BatchOptions struct {
	Variant            domain.Variant
	Augmentation       string
	ThematicBackground bool
	DisplayName        string
	Limit              int
}

// BatchStats holds statistics for a batch run.
type BatchStats struct {
	RunID          string
	TotalItems     int64
	ProcessedItems int64
	FailedItems    int64
	AIItems        int64
	StartTime      time.Time
	EndTime        time.Time
}

type batchResult struct {
	sourceID string
	status   domain.RecordStatus
	err      error
}

// Run transforms up to opts.Limit photos from src. Item failures are counted,
// not returned; only cancellation of ctx fails the run.
func (s *BatchService) Run(ctx context.Context, src source.Source, opts *BatchOptions) (*BatchStats, error) {
	if opts == nil {
		opts = &BatchOptions{}
	}
	if opts.Variant == "" {
		opts.Variant = domain.DefaultVariant
	}

	stats := &BatchStats{
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
	}
	ctx = logger.ForBatch(ctx, stats.RunID)

	run := &domain.BatchRun{
		ID:        stats.RunID,
		SourceDir: src.GetSourceID(),
		Variant:   string(opts.Variant),
		Status:    domain.BatchStatusRunning,
		StartedAt: stats.StartTime,
	}
	s.saveRun(ctx, run, true)

	s.log(ctx).WithFields(logger.Fields{
		"source":  src.GetSourceID(),
		"limit":   opts.Limit,
		"variant": string(opts.Variant),
	}).Info("Starting batch run")

	itemsChan := make(chan source.PhotoItem, s.workers*2)
	resultsChan := make(chan *batchResult, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, itemsChan, resultsChan, opts)
		}()
	}

	var errLog []string
	done := make(chan struct{})
	go func() {
		for result := range resultsChan {
			atomic.AddInt64(&stats.ProcessedItems, 1)
			switch {
			case result.err != nil:
				atomic.AddInt64(&stats.FailedItems, 1)
				errLog = append(errLog, fmt.Sprintf("%s: %v", result.sourceID, result.err))
				s.log(ctx).WithField("source_id", result.sourceID).WithError(result.err).Error("Failed to transform photo")
			case result.status == domain.RecordStatusGeneratedAI:
				atomic.AddInt64(&stats.AIItems, 1)
			}
		}
		close(done)
	}()

	fetchErr := s.feed(ctx, src, opts.Limit, itemsChan, stats)

	close(itemsChan)
	wg.Wait()
	close(resultsChan)
	<-done

	stats.EndTime = time.Now()

	run.TotalItems = int(stats.TotalItems)
	run.ProcessedItems = int(stats.ProcessedItems)
	run.FailedItems = int(stats.FailedItems)
	run.AIItems = int(stats.AIItems)
	run.CompletedAt = &stats.EndTime
	run.Status = domain.BatchStatusCompleted
	if fetchErr != nil {
		errLog = append(errLog, fetchErr.Error())
		run.Status = domain.BatchStatusFailed
	}
	if ctx.Err() != nil {
		run.Status = domain.BatchStatusFailed
	}
	run.ErrorLog = strings.Join(errLog, "\n")
	s.saveRun(context.WithoutCancel(ctx), run, false)

	logger.With(logger.Fields{
		"processed": stats.ProcessedItems,
		"failed":    stats.FailedItems,
		"ai":        stats.AIItems,
	}).WithCount(stats.TotalItems).
		WithStatus(string(run.Status)).
		WithElapsed(stats.EndTime.Sub(stats.StartTime)).
		Info(ctx, "Batch run completed")

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// feed pages src into items until limit photos are queued. limit <= 0 means
// no limit.
func (s *BatchService) feed(ctx context.Context, src source.Source, limit int, items chan<- source.PhotoItem, stats *BatchStats) error {
	cursor := ""
	fetched := 0
	for ctx.Err() == nil {
		batchLimit := s.batchSize
		if limit > 0 {
			remaining := limit - fetched
			if remaining <= 0 {
				return nil
			}
			if batchLimit > remaining {
				batchLimit = remaining
			}
		}

		batch, next, err := src.FetchBatch(ctx, cursor, batchLimit)
		if err != nil {
			s.log(ctx).WithError(err).Error("Failed to fetch batch")
			return fmt.Errorf("fetch batch: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		atomic.AddInt64(&stats.TotalItems, int64(len(batch)))
		fetched += len(batch)

		for _, item := range batch {
			select {
			case items <- item:
			case <-ctx.Done():
				return nil
			}
		}

		if next == "" {
			return nil
		}
		cursor = next
	}
	return nil
}

func (s *BatchService) worker(ctx context.Context, items <-chan source.PhotoItem, results chan<- *batchResult, opts *BatchOptions) {
	for item := range items {
		if ctx.Err() != nil {
			results <- &batchResult{sourceID: item.SourceID, err: ctx.Err()}
			continue
		}
		status, err := s.processItem(ctx, &item, opts)
		results <- &batchResult{sourceID: item.SourceID, status: status, err: err}
	}
}

func (s *BatchService) processItem(ctx context.Context, item *source.PhotoItem, opts *BatchOptions) (domain.RecordStatus, error) {
	data, err := os.ReadFile(item.LocalPath)
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}

	ref, err := s.uploads.Upload(ctx, filepath.Base(item.LocalPath), data)
	if err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	req := &domain.TransformRequest{
		ImageRef:           ref,
		Variant:            opts.Variant,
		Augmentation:       opts.Augmentation,
		ThematicBackground: opts.ThematicBackground,
		DisplayName:        opts.DisplayName,
	}
	if item.Variant != "" {
		req.Variant = domain.ParseVariant(item.Variant)
	}
	if item.Augmentation != "" {
		req.Augmentation = item.Augmentation
	}
	if item.DisplayName != "" {
		req.DisplayName = item.DisplayName
	}

	res, err := s.transform.Transform(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to transform photo: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		"source_id":          item.SourceID,
		logger.FieldStatus:   string(res.Status),
		logger.FieldArtifact: res.ArtifactRef,
	}).Debug("Photo transformed")
	return res.Status, nil
}

func (s *BatchService) saveRun(ctx context.Context, run *domain.BatchRun, create bool) {
	if s.runs == nil {
		return
	}
	var err error
	if create {
		err = s.runs.Create(ctx, run)
	} else {
		err = s.runs.Update(ctx, run)
	}
	if err != nil {
		s.log(ctx).WithField(logger.FieldBatchID, run.ID).
			WithError(fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)).
			Warn("Failed to save batch run")
	}
}
