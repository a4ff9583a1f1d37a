package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/ghostbooth/internal/domain"
	"github.com/timmy/ghostbooth/internal/imageproc"
	"github.com/timmy/ghostbooth/internal/logger"
	"github.com/timmy/ghostbooth/internal/storage"
)

// allowedUploadExts are the accepted photo extensions.
var allowedUploadExts = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// UploadService stores user photos under the uploads namespace.
type UploadService struct {
	artifacts Artifacts
	records   RecordWriter
	logger    *logger.Logger
	now       func() time.Time
}

// NewUploadService creates an UploadService. records may be nil.
func NewUploadService(artifacts Artifacts, records RecordWriter, log *logger.Logger) *UploadService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &UploadService{artifacts: artifacts, records: records, logger: log, now: time.Now}
}

func (s *UploadService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Upload stores data as "<uuid>.<ext>" and returns its reference. The
// extension comes from filename and must be one of png, jpg, jpeg, gif, webp.
// An "uploaded" gallery record is appended on a best-effort basis.
func (s *UploadService) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", domain.NewValidationError("image", "empty file name")
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	contentType, ok := allowedUploadExts[ext]
	if !ok {
		return "", domain.NewValidationError("image", "format not allowed")
	}
	if len(data) == 0 {
		return "", domain.NewValidationError("image", "empty file")
	}
	if sniffed := imageproc.Sniff(data); sniffed != "" {
		contentType = sniffed
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
	ref, err := s.artifacts.Write(ctx, storage.NamespaceUploads, name, data, contentType)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	if s.records != nil {
		rec := &domain.GalleryRecord{
			CreatedAt:        s.now(),
			OriginalImageURL: ref,
			Status:           domain.RecordStatusUploaded,
		}
		if err := s.records.Create(ctx, rec); err != nil {
			s.log(ctx).WithField(logger.FieldArtifact, ref).
				WithError(fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)).
				Warn("Failed to persist upload record")
		}
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldArtifact: ref,
		logger.FieldSize:     len(data),
	}).Info("Photo uploaded")
	return ref, nil
}
