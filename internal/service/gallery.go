package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/timmy/ghostbooth/internal/domain"
	"github.com/timmy/ghostbooth/internal/imageproc"
	"github.com/timmy/ghostbooth/internal/logger"
	"github.com/timmy/ghostbooth/internal/prompts"
	"github.com/timmy/ghostbooth/internal/storage"
)

const (
	GallerySourceRecords = "records"
	GallerySourceFiles   = "files"
)

// GalleryQuery selects one gallery page. Cursor pages records, Offset pages files.
type GalleryQuery struct {
	Limit     int
	Cursor    string
	Offset    int
	HasOffset bool
}

// GallerySource is one way of listing the gallery.
type GallerySource interface {
	Name() string
	List(ctx context.Context, q GalleryQuery) (*domain.GalleryPage, error)
}

// RecordLister queries persisted gallery records.
type RecordLister interface {
	ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.GalleryRecord, error)
}

// ArtifactLister enumerates and reads stored artifacts.
type ArtifactLister interface {
	Read(ctx context.Context, ref string) ([]byte, error)
	List(ctx context.Context, namespace string) ([]storage.ObjectInfo, error)
}

// ============================================
// Record-backed source
// ============================================

// RecordSource pages persisted records by a creation-time cursor.
type RecordSource struct {
	records   RecordLister
	artifacts ArtifactLister
}

// NewRecordSource creates a RecordSource. artifacts may be nil, in which case
// records without inline bytes are served by URL.
func NewRecordSource(records RecordLister, artifacts ArtifactLister) *RecordSource {
	return &RecordSource{records: records, artifacts: artifacts}
}

func (s *RecordSource) Name() string { return GallerySourceRecords }

const maxScanRounds = 8

// List returns records strictly older than q.Cursor. Records with nothing
// renderable are skipped, but still advance the cursor.
func (s *RecordSource) List(ctx context.Context, q GalleryQuery) (*domain.GalleryPage, error) {
	var before time.Time
	if q.Cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, q.Cursor)
		if err != nil {
			return nil, domain.NewValidationError("cursor", "must be an RFC3339 timestamp")
		}
		before = t
	}

	// upload-only records render nothing; keep reading until the page fills
	// or the rows run out
	page := &domain.GalleryPage{Items: []domain.GalleryItem{}, Source: GallerySourceRecords}
	want := q.Limit
	for round := 0; round < maxScanRounds; round++ {
		records, err := s.records.ListBefore(ctx, before, want)
		if err != nil {
			return nil, err
		}
		for i := range records {
			if item, ok := s.item(ctx, &records[i]); ok {
				page.Items = append(page.Items, item)
			}
		}
		if len(records) < want {
			page.NextCursor = ""
			break
		}
		before = records[len(records)-1].CreatedAt
		page.NextCursor = before.UTC().Format(time.RFC3339Nano)
		if len(page.Items) >= q.Limit {
			break
		}
		want = q.Limit - len(page.Items)
	}
	return page, nil
}

func (s *RecordSource) item(ctx context.Context, rec *domain.GalleryRecord) (domain.GalleryItem, bool) {
	item := domain.GalleryItem{
		ID:          rec.ID,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		DisplayName: rec.DisplayName,
		Variant:     rec.Variant,
	}

	mime := rec.TransformedMime
	switch {
	case rec.TransformedB64 != "":
		if mime == "" {
			mime = "image/jpeg"
		}
		item.DataURL = "data:" + mime + ";base64," + rec.TransformedB64
	case rec.TransformedImageURL != "":
		item.ImageURL = rec.TransformedImageURL
		if s.artifacts != nil {
			if _, _, err := storage.ParseRef(rec.TransformedImageURL); err == nil {
				if data, err := s.artifacts.Read(ctx, rec.TransformedImageURL); err == nil {
					if sniffed := imageproc.Sniff(data); sniffed != "" {
						mime = sniffed
					}
					if mime == "" {
						mime = "image/jpeg"
					}
					item.DataURL = dataURL(mime, data)
					item.ImageURL = ""
				}
			}
		}
		if mime == "" {
			mime = mimeFromExt(rec.TransformedImageURL)
		}
	default:
		return item, false
	}

	if len(rec.NarrativeLines) > 0 {
		item.PoemLines = normalizeLines(rec.NarrativeLines, prompts.FallbackNarrative(rec.DisplayName, rec.Variant))
	}
	item.SuggestedName = suggestedName(rec.DisplayName, imageproc.Extension(mime))
	return item, true
}

func mimeFromExt(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// ============================================
// File-backed source
// ============================================

var galleryExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// FileSource lists the results namespace newest-first and pages by offset.
// It carries no display name, variant or narrative.
type FileSource struct {
	artifacts ArtifactLister
}

// NewFileSource creates a FileSource.
func NewFileSource(artifacts ArtifactLister) *FileSource {
	return &FileSource{artifacts: artifacts}
}

func (s *FileSource) Name() string { return GallerySourceFiles }

func (s *FileSource) List(ctx context.Context, q GalleryQuery) (*domain.GalleryPage, error) {
	objects, err := s.artifacts.List(ctx, storage.NamespaceResults)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	files := objects[:0]
	for _, obj := range objects {
		if galleryExts[strings.ToLower(path.Ext(obj.Key))] {
			files = append(files, obj)
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Key > files[j].Key
		}
		return files[i].ModTime.After(files[j].ModTime)
	})

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	end := offset + q.Limit
	if end > len(files) {
		end = len(files)
	}

	page := &domain.GalleryPage{Items: []domain.GalleryItem{}, Source: GallerySourceFiles}
	if offset < len(files) {
		for _, obj := range files[offset:end] {
			page.Items = append(page.Items, domain.GalleryItem{
				ImageURL:      obj.Key,
				SuggestedName: path.Base(obj.Key),
			})
		}
	}
	if offset+q.Limit < len(files) {
		next := offset + q.Limit
		page.NextOffset = &next
	}
	return page, nil
}

// ============================================
// Gallery service
// ============================================

// GalleryService reads the primary source and falls back to files when the
// primary fails or has nothing on its first page.
type GalleryService struct {
	primary      GallerySource
	fallback     GallerySource
	defaultLimit int
	maxLimit     int
	logger       *logger.Logger
}

// NewGalleryService creates a GalleryService. primary may be nil when no
// record store is configured.
func NewGalleryService(primary, fallback GallerySource, defaultLimit, maxLimit int, log *logger.Logger) *GalleryService {
	if defaultLimit <= 0 {
		defaultLimit = 24
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &GalleryService{
		primary:      primary,
		fallback:     fallback,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       log,
	}
}

func (s *GalleryService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// List returns one gallery page. Offset queries go straight to the file
// source so "load more" stays on the source that produced the first page.
func (s *GalleryService) List(ctx context.Context, q GalleryQuery) (*domain.GalleryPage, error) {
	if q.Limit <= 0 {
		q.Limit = s.defaultLimit
	}
	if q.Limit > s.maxLimit {
		q.Limit = s.maxLimit
	}

	if s.primary != nil && !(q.HasOffset && q.Cursor == "") {
		page, err := s.primary.List(ctx, q)
		if err == nil && (len(page.Items) > 0 || q.Cursor != "") {
			return page, nil
		}
		if err != nil {
			if isValidation(err) {
				return nil, err
			}
			s.log(ctx).WithError(err).Warn("Gallery records unavailable, listing result files")
		}
	}

	if s.fallback == nil {
		return &domain.GalleryPage{Items: []domain.GalleryItem{}, Source: GallerySourceFiles}, nil
	}
	return s.fallback.List(ctx, q)
}

func isValidation(err error) bool {
	return errors.Is(err, domain.ErrValidation)
}
