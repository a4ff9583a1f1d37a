package service

import (
	"context"
	"errors"
	"image/color"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/ghostbooth/internal/domain"
)

func TestUploadStoresUnderUUIDName(t *testing.T) {
	store := newGalleryStore(t)
	records := &memRecords{}
	svc := NewUploadService(store, records, nil)
	data := solidPNG(t, 10, 10, color.White)

	ref, err := svc.Upload(context.Background(), "My Photo.PNG", data)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^/uploads/[0-9a-f]{32}\.png$`), ref)

	got, err := store.Read(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	recs := records.byStatus(domain.RecordStatusUploaded)
	require.Len(t, recs, 1)
	assert.Equal(t, ref, recs[0].OriginalImageURL)
}

func TestUploadRejectsBadInput(t *testing.T) {
	svc := NewUploadService(newGalleryStore(t), nil, nil)
	ctx := context.Background()

	for _, tc := range []struct {
		name     string
		filename string
		data     []byte
	}{
		{"no name", "", []byte("x")},
		{"bad extension", "photo.bmp", []byte("x")},
		{"no extension", "photo", []byte("x")},
		{"empty", "photo.jpg", nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tc.filename, tc.data)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}

func TestUploadRecordFailureIsNotFatal(t *testing.T) {
	svc := NewUploadService(newGalleryStore(t), &memRecords{err: errBoom}, nil)
	ref, err := svc.Upload(context.Background(), "a.jpeg", []byte("jpeg-ish"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".jpeg"))
}

func TestNarrativeLines(t *testing.T) {
	ctx := context.Background()

	var nilSvc *NarrativeService
	assert.Len(t, nilSvc.Lines(ctx, "Ana", "witch"), 3)

	failing := NewNarrativeService(&fakeText{err: errBoom}, nil)
	lines := failing.Lines(ctx, "Ana", "witch")
	assert.Len(t, lines, 3)

	short := NewNarrativeService(&fakeText{text: "  only one  \n"}, nil)
	lines = short.Lines(ctx, "Ana", "witch")
	require.Len(t, lines, 3)
	assert.Equal(t, "only one", lines[0])
	assert.NotEmpty(t, lines[2])
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"Ana María": "ana-mar-a",
		"  ":        "fallback",
		"../etc":    "etc",
		"Vlad_III":  "vlad_iii",
		"!!!":       "fallback",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeName(in, "fallback"), in)
	}

	name := resultFileName("", "jpg")
	assert.Regexp(t, regexp.MustCompile(`^costume-[0-9a-f]{12}\.jpg$`), name)
	assert.Equal(t, "image.png", suggestedName("", "png"))
}
