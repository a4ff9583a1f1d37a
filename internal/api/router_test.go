package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/timmy/ghostbooth/internal/api/handler"
	"github.com/timmy/ghostbooth/internal/api/middleware"
	"github.com/timmy/ghostbooth/internal/cache"
	"github.com/timmy/ghostbooth/internal/domain"
	"github.com/timmy/ghostbooth/internal/metrics"
	"github.com/timmy/ghostbooth/internal/service"
	"github.com/timmy/ghostbooth/internal/storage"
)

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 20, B: 140, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := storage.NewArtifactStore(local)

	rc, err := cache.NewResultCache(8, store)
	require.NoError(t, err)

	recorder, err := metrics.NewRecorder(sdkmetric.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	transform := service.NewTransformService(service.TransformDeps{
		Artifacts: store,
		Cache:     rc,
		Metrics:   recorder,
	}, service.TransformConfig{})
	uploads := service.NewUploadService(store, nil, nil)
	gallery := service.NewGalleryService(nil, service.NewFileSource(store), 24, 100, nil)

	h := &Handlers{
		Health:    handler.NewHealthHandler(nil, handler.HealthInfo{StorageType: "local"}, transform.CacheSize),
		Upload:    handler.NewUploadHandler(uploads, 1<<20),
		Transform: handler.NewTransformHandler(transform),
		Gallery:   handler.NewGalleryHandler(gallery),
		Artifacts: handler.NewArtifactHandler(store),
	}
	return SetupRouter(h, RouterConfig{
		Mode:           "test",
		CORS:           middleware.CORSConfig{AllowedOrigins: []string{"https://booth.example"}},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) }),
	}, nil)
}

func uploadPhoto(t *testing.T, r *gin.Engine, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postTransform(r *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/transform", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadTransformGalleryFlow(t *testing.T) {
	r := newTestRouter(t)
	src := solidPNG(t, 500, 500)

	w := uploadPhoto(t, r, "photo.png", src)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var up struct {
		ImageURL string `json:"image_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &up))
	assert.True(t, strings.HasPrefix(up.ImageURL, "/uploads/"))

	w = postTransform(r, url.Values{
		"disfraz":         {"ghost"},
		"image_url":       {up.ImageURL},
		"use_thematic_bg": {"0"},
		"display_name":    {"<b>Casper</b>"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res domain.TransformResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, domain.RecordStatusThemedLocal, res.Status)
	assert.False(t, res.Debug.Changed)
	assert.False(t, res.Debug.UseThematicBG)
	assert.Equal(t, "Casper", res.DisplayName)
	assert.Len(t, res.PoemLines, 3)

	prefix := "data:image/png;base64,"
	require.True(t, strings.HasPrefix(res.DataURL, prefix))
	out, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(res.DataURL, prefix))
	require.NoError(t, err)
	assert.Equal(t, src, out)

	// the stored result is served back unchanged
	req := httptest.NewRequest(http.MethodGet, res.ArtifactRef, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, src, w.Body.Bytes())

	req = httptest.NewRequest(http.MethodGet, "/api/gallery?limit=5", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var page domain.GalleryPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, service.GallerySourceFiles, page.Source)
	require.Len(t, page.Items, 1)
	assert.Equal(t, res.ArtifactRef, page.Items[0].ImageURL)
}

func TestTransformErrors(t *testing.T) {
	r := newTestRouter(t)

	w := postTransform(r, url.Values{"disfraz": {"witch"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postTransform(r, url.Values{"image_url": {"/uploads/nothing-here.png"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = postTransform(r, url.Values{"image_url": {"/etc/passwd"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsBadFiles(t *testing.T) {
	r := newTestRouter(t)

	w := uploadPhoto(t, r, "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMissingArtifact(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/results/none.jpg", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndHeaders(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	req.Header.Set("Origin", "https://booth.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "https://booth.example", w.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["database"])
	assert.Equal(t, "local", body["storage_type"])
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/transform", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRoute(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
