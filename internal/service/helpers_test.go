package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timmy/ghostbooth/internal/cache"
	"github.com/timmy/ghostbooth/internal/domain"
	"github.com/timmy/ghostbooth/internal/gemini"
	"github.com/timmy/ghostbooth/internal/retry"
	"github.com/timmy/ghostbooth/internal/storage"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeGenerator replays scripted errors before answering with img.
type fakeGenerator struct {
	mu      sync.Mutex
	enabled bool
	mode    domain.TransformMode
	errs    []error
	img     []byte
	calls   int
	prompts []string

	generateCalls int
	editCalls     int
	editSrc       []byte
	editMime      string
}

func (g *fakeGenerator) Enabled() bool              { return g.enabled }
func (g *fakeGenerator) Model() string              { return "fake-image-model" }
func (g *fakeGenerator) Mode() domain.TransformMode { return g.mode }

func (g *fakeGenerator) GenerateImage(ctx context.Context, prompt string) (*gemini.Image, error) {
	g.mu.Lock()
	g.generateCalls++
	g.mu.Unlock()
	return g.next(prompt)
}

func (g *fakeGenerator) EditImage(ctx context.Context, prompt string, src []byte, srcMime string) (*gemini.Image, error) {
	g.mu.Lock()
	g.editCalls++
	g.editSrc = append([]byte(nil), src...)
	g.editMime = srcMime
	g.mu.Unlock()
	return g.next(prompt)
}

func (g *fakeGenerator) next(prompt string) (*gemini.Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		return nil, err
	}
	return &gemini.Image{Data: g.img, MimeType: "image/png"}, nil
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeText struct {
	text string
	err  error
}

func (f *fakeText) Enabled() bool { return true }

func (f *fakeText) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f.text, f.err
}

type memRecords struct {
	mu      sync.Mutex
	records []domain.GalleryRecord
	err     error
}

func (m *memRecords) Create(ctx context.Context, rec *domain.GalleryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *memRecords) byStatus(status domain.RecordStatus) []domain.GalleryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GalleryRecord
	for _, r := range m.records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

type transformEnv struct {
	store   *storage.ArtifactStore
	local   *storage.LocalStorage
	gen     *fakeGenerator
	records *memRecords
	sleeps  *recordedSleeps
	svc     *TransformService
}

func newTransformEnv(t *testing.T, gen *fakeGenerator) *transformEnv {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := storage.NewArtifactStore(local)

	rc, err := cache.NewResultCache(16, store)
	require.NoError(t, err)

	env := &transformEnv{
		store:   store,
		local:   local,
		gen:     gen,
		records: &memRecords{},
		sleeps:  &recordedSleeps{},
	}
	ctrl := retry.New(3, 300*time.Second, 180*time.Second)
	ctrl.Sleep = env.sleeps.sleep

	deps := TransformDeps{
		Artifacts: store,
		Cache:     rc,
		Records:   env.records,
		Retry:     ctrl,
	}
	if gen != nil {
		deps.Images = gen
	}
	env.svc = NewTransformService(deps, TransformConfig{})
	return env
}

func (e *transformEnv) upload(t *testing.T, data []byte) string {
	t.Helper()
	ref, err := e.store.Write(context.Background(), storage.NamespaceUploads, "src.png", data, "image/png")
	require.NoError(t, err)
	return ref
}

var errBoom = errors.New("boom")
