package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RecordStore is the database view used by the health report.
type RecordStore interface {
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// HealthInfo is the static part of the health report.
type HealthInfo struct {
	StorageType   string
	GeminiEnabled bool
	ImageModel    string
	TextModel     string
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db        RecordStore
	info      HealthInfo
	cacheSize func() int
}

// NewHealthHandler creates a new health handler. db and cacheSize may be nil.
func NewHealthHandler(db RecordStore, info HealthInfo, cacheSize func() int) *HealthHandler {
	return &HealthHandler{db: db, info: info, cacheSize: cacheSize}
}

// Health returns the health status of the service. The service stays "ok"
// without a database because transforms do not need one.
func (h *HealthHandler) Health(c *gin.Context) {
	dbUp := false
	var records int64
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		dbUp = h.db.Ping(ctx) == nil
		if dbUp {
			if n, err := h.db.Count(ctx); err == nil {
				records = n
			}
		}
		cancel()
	}

	size := 0
	if h.cacheSize != nil {
		size = h.cacheSize()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"database":       dbUp,
		"storage_type":   h.info.StorageType,
		"gemini_enabled": h.info.GeminiEnabled,
		"gemini_model":   h.info.ImageModel,
		"text_model":     h.info.TextModel,
		"cache_size":     size,
		"record_count":   records,
	})
}
