// Package app wires configuration into the storage, persistence, image
// service and orchestration components shared by the server and batch commands.
package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/timmy/ghostbooth/internal/cache"
	"github.com/timmy/ghostbooth/internal/config"
	"github.com/timmy/ghostbooth/internal/gemini"
	"github.com/timmy/ghostbooth/internal/imageproc"
	"github.com/timmy/ghostbooth/internal/logger"
	"github.com/timmy/ghostbooth/internal/metrics"
	"github.com/timmy/ghostbooth/internal/repository"
	"github.com/timmy/ghostbooth/internal/retry"
	"github.com/timmy/ghostbooth/internal/service"
	"github.com/timmy/ghostbooth/internal/storage"
)

// Components holds everything a command needs. Records, Runs and DB are nil
// when the database is disabled or unreachable. Metrics is nil when disabled.
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	Storage   storage.ObjectStorage
	Artifacts *storage.ArtifactStore
	DB        *gorm.DB
	Records   *repository.GalleryRepository
	Runs      *repository.BatchRunRepository
	Gemini    *gemini.Client
	Metrics   *metrics.Provider

	Transform *service.TransformService
	Uploads   *service.UploadService
	Gallery   *service.GalleryService
}

// Build initializes all components from cfg. Only storage failures are fatal;
// a database that cannot be opened is logged and the service runs without one.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Components, error) {
	c := &Components{Config: cfg, Logger: log}

	objectStorage, err := storage.NewStorage(&storage.Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		BaseDir:   cfg.Storage.BaseDir,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
	}
	c.Storage = objectStorage
	c.Artifacts = storage.NewArtifactStore(objectStorage)

	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			log.WithError(err).Warn("Database unavailable, running without gallery records")
		} else {
			c.DB = db
			c.Records = repository.NewGalleryRepository(db)
			c.Runs = repository.NewBatchRunRepository(db)
		}
	}

	if cfg.Metrics.Enabled {
		provider, err := metrics.NewPrometheusProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		c.Metrics = provider
	}

	c.Gemini = gemini.NewClient(&cfg.Gemini)
	if !c.Gemini.Enabled() {
		log.Warn("GEMINI_API_KEY not set, transforms will return the source photo")
	}

	resultCache, err := cache.NewResultCache(cfg.Cache.MaxEntries, c.Artifacts)
	if err != nil {
		return nil, err
	}

	ctrl := retry.New(cfg.Transform.MaxAttempts, cfg.Transform.FirstBackoffCap, cfg.Transform.SecondBackoff)

	deps := service.TransformDeps{
		Artifacts:  c.Artifacts,
		Cache:      resultCache,
		Images:     c.Gemini,
		Narrative:  service.NewNarrativeService(c.Gemini, log),
		Normalizer: imageproc.NewNormalizer(cfg.Transform.MaxSide, cfg.Transform.ByteBudget, cfg.Transform.Qualities),
		Retry:      ctrl,
		Logger:     log,
	}
	if c.Metrics != nil {
		deps.Metrics = c.Metrics.Recorder
	}

	var primary service.GallerySource
	if c.Records != nil {
		// nil *GalleryRepository must not end up inside a non-nil interface
		deps.Records = c.Records
		primary = service.NewRecordSource(c.Records, c.Artifacts)
		c.Uploads = service.NewUploadService(c.Artifacts, c.Records, log)
	} else {
		c.Uploads = service.NewUploadService(c.Artifacts, nil, log)
	}

	c.Transform = service.NewTransformService(deps, service.TransformConfig{
		RequireDisplayName: cfg.Transform.RequireDisplayName,
		MinDisplayNameLen:  cfg.Transform.MinDisplayNameLen,
	})
	c.Gallery = service.NewGalleryService(primary, service.NewFileSource(c.Artifacts),
		cfg.Gallery.DefaultLimit, cfg.Gallery.MaxLimit, log)

	log.WithFields(logger.Fields{
		"storage":  cfg.Storage.Type,
		"database": c.DB != nil,
		"gemini":   c.Gemini.Enabled(),
		"model":    c.Gemini.Model(),
		"metrics":  c.Metrics != nil,
	}).Info("Components initialized")

	return c, nil
}

// Close releases the database and flushes metrics.
func (c *Components) Close(ctx context.Context) {
	if c.Metrics != nil {
		if err := c.Metrics.Shutdown(ctx); err != nil {
			c.Logger.WithError(err).Warn("Failed to shut down metrics")
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
