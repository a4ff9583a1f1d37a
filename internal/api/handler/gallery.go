package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/ghostbooth/internal/domain"
	"github.com/timmy/ghostbooth/internal/service"
)

// GalleryLister returns gallery pages.
type GalleryLister interface {
	List(ctx context.Context, q service.GalleryQuery) (*domain.GalleryPage, error)
}

// GalleryHandler handles gallery listing.
type GalleryHandler struct {
	gallery GalleryLister
}

// NewGalleryHandler creates a new gallery handler.
func NewGalleryHandler(gallery GalleryLister) *GalleryHandler {
	return &GalleryHandler{gallery: gallery}
}

// List handles GET /api/gallery?limit=&cursor=&offset=.
// A malformed limit or offset is ignored.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes a gallery page).
func (h *GalleryHandler) List(c *gin.Context) {
	q := service.GalleryQuery{Cursor: c.Query("cursor")}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		q.Limit = v
	}
	if raw, ok := c.GetQuery("offset"); ok {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			q.Offset = v
			q.HasOffset = true
		}
	}

	page, err := h.gallery.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
