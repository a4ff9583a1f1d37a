package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/ghostbooth/internal/config"
	"github.com/timmy/ghostbooth/internal/domain"
)

func newTestRepo(t *testing.T) *GalleryRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Enabled:     true,
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "gallery.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewGalleryRepository(db)
}

func TestGalleryRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	rec := &domain.GalleryRecord{
		OriginalImageURL: "/uploads/a.png",
		Variant:          "ghost",
		Status:           domain.RecordStatusThemedLocal,
		NarrativeLines:   domain.StringArray{"one", "two", "three"},
	}
	require.NoError(t, repo.Create(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.NarrativeLines, got.NarrativeLines)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, repo.Ping(ctx))
}

func TestGalleryRepository_ListBeforePages(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Date(2025, 10, 31, 20, 0, 0, 0, time.UTC)
	const total = 7
	for i := 0; i < total; i++ {
		require.NoError(t, repo.Create(ctx, &domain.GalleryRecord{
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			Status:    domain.RecordStatusGeneratedAI,
		}))
	}

	var seen []time.Time
	var cursor time.Time
	for {
		page, err := repo.ListBefore(ctx, cursor, 3)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, rec := range page {
			seen = append(seen, rec.CreatedAt)
		}
		cursor = page[len(page)-1].CreatedAt
	}

	require.Len(t, seen, total)
	for i := 1; i < len(seen); i++ {
		assert.True(t, seen[i].Before(seen[i-1]), "records must be strictly descending")
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(total), n)
}
