package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/timmy/ghostbooth/internal/cache"
	"github.com/timmy/ghostbooth/internal/domain"
	"github.com/timmy/ghostbooth/internal/gemini"
	"github.com/timmy/ghostbooth/internal/imageproc"
	"github.com/timmy/ghostbooth/internal/logger"
	"github.com/timmy/ghostbooth/internal/metrics"
	"github.com/timmy/ghostbooth/internal/prompts"
	"github.com/timmy/ghostbooth/internal/retry"
	"github.com/timmy/ghostbooth/internal/storage"
)

// ImageGenerator is the external image service.
type ImageGenerator interface {
	Enabled() bool
	Model() string
	Mode() domain.TransformMode
	GenerateImage(ctx context.Context, prompt string) (*gemini.Image, error)
	EditImage(ctx context.Context, prompt string, src []byte, srcMime string) (*gemini.Image, error)
}

// Artifacts reads and writes images by reference.
type Artifacts interface {
	Read(ctx context.Context, ref string) ([]byte, error)
	Write(ctx context.Context, namespace, name string, data []byte, contentType string) (string, error)
	Exists(ctx context.Context, ref string) (bool, error)
}

// RecordWriter appends gallery records.
type RecordWriter interface {
	Create(ctx context.Context, rec *domain.GalleryRecord) error
}

// TransformConfig holds the request policy of the orchestrator.
type TransformConfig struct {
	RequireDisplayName bool
	MinDisplayNameLen  int
}

// TransformService runs the costume pipeline: cache lookup, image service
// call under the retry controller, local fallback, normalization and
// best-effort persistence.
type TransformService struct {
	artifacts  Artifacts
	cache      *cache.ResultCache
	images     ImageGenerator
	narrative  *NarrativeService
	records    RecordWriter
	normalizer *imageproc.Normalizer
	retry      *retry.Controller
	metrics    *metrics.Recorder
	logger     *logger.Logger
	cfg        TransformConfig

	flight singleflight.Group
	now    func() time.Time
}

// TransformDeps groups the collaborators of a TransformService.
// Images, Narrative, Records and Metrics may be nil.
type TransformDeps struct {
	Artifacts  Artifacts
	Cache      *cache.ResultCache
	Images     ImageGenerator
	Narrative  *NarrativeService
	Records    RecordWriter
	Normalizer *imageproc.Normalizer
	Retry      *retry.Controller
	Metrics    *metrics.Recorder
	Logger     *logger.Logger
}

// NewTransformService creates a TransformService.
// Parameters:
//   - deps: collaborators; nil Normalizer and Retry get defaults.
//   - cfg: display name policy.
//
// Returns:
//   - *TransformService: ready to serve requests.
func NewTransformService(deps TransformDeps, cfg TransformConfig) *TransformService {
	if deps.Normalizer == nil {
		deps.Normalizer = imageproc.NewNormalizer(0, 0, nil)
	}
	if deps.Retry == nil {
		deps.Retry = retry.New(0, 0, 0)
	}
	if deps.Logger == nil {
		deps.Logger = logger.GetDefault()
	}
	return &TransformService{
		artifacts:  deps.Artifacts,
		cache:      deps.Cache,
		images:     deps.Images,
		narrative:  deps.Narrative,
		records:    deps.Records,
		normalizer: deps.Normalizer,
		retry:      deps.Retry,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (s *TransformService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// CacheSize returns the number of cached results.
func (s *TransformService) CacheSize() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

// outcome is what the produce step hands back to every singleflight caller.
type outcome struct {
	data        []byte
	mime        string
	artifactRef string
	status      domain.RecordStatus
	cacheHit    bool
	attempts    int
}

// Transform applies req. Only invalid input and a missing or unreadable
// source fail the call; image service problems degrade to the source photo.
// Parameters:
//   - ctx: request context; cancelling it stops waiting and returns the source photo.
//   - req: transform inputs.
//
// Returns:
//   - *domain.TransformResult: final artifact, inline data and debug metadata.
//   - error: domain.ErrValidation or domain.ErrNotFound wrapped.
func (s *TransformService) Transform(ctx context.Context, req *domain.TransformRequest) (*domain.TransformResult, error) {
	start := s.now()

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Augmentation = strings.TrimSpace(req.Augmentation)
	if req.Variant == "" {
		req.Variant = domain.DefaultVariant
	}
	if err := s.validate(req); err != nil {
		return nil, err
	}

	src, err := s.artifacts.Read(ctx, req.ImageRef)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", req.ImageRef, err)
	}
	srcMime := imageproc.Sniff(src)
	if srcMime == "" {
		return nil, domain.NewValidationError("image_url", "is not a supported image")
	}

	fp := cache.Derive(src, string(req.Variant), req.Augmentation, domain.BackgroundMode(req.ThematicBackground))
	ctx = logger.ForTransform(ctx, fp, string(req.Variant))

	// narrative and image run side by side; neither returns an error
	var lines []string
	var out *outcome
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lines = s.narrative.Lines(gctx, req.DisplayName, string(req.Variant))
		return nil
	})
	g.Go(func() error {
		// the shared production outlives any single caller
		ch := s.flight.DoChan(fp, func() (interface{}, error) {
			return s.produce(context.WithoutCancel(gctx), req, fp, src, srcMime), nil
		})
		select {
		case r := <-ch:
			out = r.Val.(*outcome)
		case <-gctx.Done():
			s.log(ctx).WithError(gctx.Err()).Warn("Request cancelled while waiting for image service, using source photo")
			out = s.fallback(context.WithoutCancel(gctx), req, src, srcMime, 0)
		}
		return nil
	})
	_ = g.Wait()

	rec := &domain.GalleryRecord{
		CreatedAt:           s.now(),
		OriginalImageURL:    req.ImageRef,
		TransformedImageURL: out.artifactRef,
		Variant:             string(req.Variant),
		DisplayName:         req.DisplayName,
		Status:              out.status,
		TransformedB64:      base64.StdEncoding.EncodeToString(out.data),
		TransformedMime:     out.mime,
		NarrativeLines:      lines,
		Fingerprint:         fp,
	}
	s.persist(ctx, rec)

	elapsed := s.now().Sub(start)
	s.metrics.Transform(ctx, string(out.status), out.cacheHit, elapsed)
	logger.With(nil).
		WithStatus(string(out.status)).
		WithAttempts(out.attempts).
		WithCacheHit(out.cacheHit).
		WithBytes(len(out.data)).
		WithElapsed(elapsed).
		Info(ctx, "Transform completed")

	model := ""
	mode := domain.TransformModeEdit
	if s.images != nil {
		model = s.images.Model()
		mode = s.images.Mode()
	}

	return &domain.TransformResult{
		ArtifactRef: out.artifactRef,
		DataURL:     dataURL(out.mime, out.data),
		MimeType:    out.mime,
		Data:        out.data,
		PoemLines:   lines,
		Status:      out.status,
		Variant:     req.Variant,
		DisplayName: req.DisplayName,
		Fingerprint: fp,
		Debug: domain.TransformDebug{
			Model:         model,
			Changed:       out.status == domain.RecordStatusGeneratedAI,
			Mode:          mode,
			UseThematicBG: req.ThematicBackground,
			CacheHit:      out.cacheHit,
			Attempts:      out.attempts,
		},
	}, nil
}

func (s *TransformService) validate(req *domain.TransformRequest) error {
	if strings.TrimSpace(req.ImageRef) == "" {
		return domain.NewValidationError("image_url", "is required, upload a photo first")
	}
	if _, _, err := storage.ParseRef(req.ImageRef); err != nil {
		return err
	}
	if s.cfg.RequireDisplayName && utf8.RuneCountInString(req.DisplayName) < s.cfg.MinDisplayNameLen {
		return domain.NewValidationError("display_name",
			fmt.Sprintf("is required and must have at least %d characters", s.cfg.MinDisplayNameLen))
	}
	return nil
}

// produce resolves the output image for fp. At most one produce runs per
// fingerprint at a time.
func (s *TransformService) produce(ctx context.Context, req *domain.TransformRequest, fp string, src []byte, srcMime string) *outcome {
	if out := s.fromCache(ctx, fp); out != nil {
		return out
	}

	if s.images == nil || !s.images.Enabled() {
		s.log(ctx).Debug("Image service disabled, using source photo")
		return s.fallback(ctx, req, src, srcMime, 0)
	}

	img, attempts, err := s.generate(ctx, req, src, srcMime)
	if err != nil {
		s.log(ctx).WithFields(logger.Fields{
			logger.FieldAttempt: attempts,
		}).WithError(err).Warn("Image service failed, using source photo")
		return s.fallback(ctx, req, src, srcMime, attempts)
	}

	norm, err := s.normalizer.Normalize(img.Data)
	if err != nil {
		s.log(ctx).WithError(err).Warn("Image service returned an unusable image, using source photo")
		return s.fallback(ctx, req, src, srcMime, attempts)
	}

	ref := s.writeResult(ctx, req.DisplayName, norm)
	if ref != "" && s.cache != nil {
		s.cache.Store(fp, ref)
	}
	return &outcome{
		data:        norm.Data,
		mime:        norm.MimeType,
		artifactRef: ref,
		status:      domain.RecordStatusGeneratedAI,
		attempts:    attempts,
	}
}

// fromCache returns the cached result for fp, or nil on a miss. A cached
// artifact that can no longer be read counts as a miss.
func (s *TransformService) fromCache(ctx context.Context, fp string) *outcome {
	if s.cache == nil {
		return nil
	}
	ref, ok := s.cache.Lookup(ctx, fp)
	if ok {
		data, err := s.artifacts.Read(ctx, ref)
		if err == nil {
			if mime := imageproc.Sniff(data); mime != "" {
				s.metrics.CacheLookup(ctx, true)
				s.log(ctx).WithField(logger.FieldArtifact, ref).Info("Serving cached result")
				return &outcome{
					data:        data,
					mime:        mime,
					artifactRef: ref,
					status:      domain.RecordStatusGeneratedAI,
					cacheHit:    true,
				}
			}
		}
		s.log(ctx).WithField(logger.FieldArtifact, ref).WithError(err).Warn("Cached result unreadable, regenerating")
	}
	s.metrics.CacheLookup(ctx, false)
	return nil
}

// generate calls the image service through the retry controller.
func (s *TransformService) generate(ctx context.Context, req *domain.TransformRequest, src []byte, srcMime string) (*gemini.Image, int, error) {
	prompt := prompts.Costume(req.Variant, req.ThematicBackground, req.Augmentation)
	mode := s.images.Mode()

	ctrl := *s.retry
	userHook := ctrl.OnRetry
	ctrl.OnRetry = func(attempt int, err error, delay time.Duration) {
		s.metrics.BackoffSleep(ctx, attempt, delay)
		s.log(ctx).WithFields(logger.Fields{
			logger.FieldAttempt:    attempt,
			logger.FieldDurationMs: delay.Milliseconds(),
		}).WithError(err).Warn("Image service throttled, backing off")
		if userHook != nil {
			userHook(attempt, err, delay)
		}
	}

	var img *gemini.Image
	attempts, err := ctrl.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		if mode == domain.TransformModeGenerate {
			img, callErr = s.images.GenerateImage(ctx, prompt)
		} else {
			img, callErr = s.images.EditImage(ctx, prompt, src, srcMime)
		}
		s.metrics.UpstreamCall(ctx, string(mode), callOutcome(callErr))
		if callErr == nil && (img == nil || len(img.Data) == 0) {
			callErr = gemini.ErrEmptyResponse
		}
		return callErr
	})
	if err != nil {
		return nil, attempts, err
	}
	return img, attempts, nil
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case retry.IsRateLimited(err):
		return "rate_limited"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// fallback keeps the source photo. It is still normalized and stored so
// gallery and download behave the same as for generated results.
func (s *TransformService) fallback(ctx context.Context, req *domain.TransformRequest, src []byte, srcMime string, attempts int) *outcome {
	out := &outcome{
		data:     src,
		mime:     srcMime,
		status:   domain.RecordStatusThemedLocal,
		attempts: attempts,
	}
	norm, err := s.normalizer.Normalize(src)
	if err != nil {
		s.log(ctx).WithError(err).Warn("Could not normalize source photo, keeping it as is")
		out.artifactRef = req.ImageRef
		return out
	}
	out.data = norm.Data
	out.mime = norm.MimeType
	out.artifactRef = s.writeResult(ctx, req.DisplayName, norm)
	return out
}

// writeResult stores a normalized image under results. Failures are logged
// and yield an empty reference.
func (s *TransformService) writeResult(ctx context.Context, displayName string, img *imageproc.Result) string {
	name := resultFileName(displayName, imageproc.Extension(img.MimeType))
	ref, err := s.artifacts.Write(ctx, storage.NamespaceResults, name, img.Data, img.MimeType)
	if err != nil {
		s.log(ctx).WithField(logger.FieldArtifact, name).
			WithError(fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)).
			Warn("Failed to store result artifact")
		return ""
	}
	return ref
}

// persist appends rec. Failures are logged, never returned.
func (s *TransformService) persist(ctx context.Context, rec *domain.GalleryRecord) {
	if s.records == nil {
		return
	}
	if err := s.records.Create(ctx, rec); err != nil {
		s.log(ctx).WithField(logger.FieldStatus, string(rec.Status)).
			WithError(fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)).
			Warn("Failed to persist gallery record")
	}
}
