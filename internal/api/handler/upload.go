package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/ghostbooth/internal/domain"
)

// Uploader stores an uploaded photo.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// UploadHandler handles photo uploads.
type UploadHandler struct {
	uploads  Uploader
	maxBytes int64
}

// NewUploadHandler creates a new upload handler. maxBytes <= 0 disables the
// size check.
func NewUploadHandler(uploads Uploader, maxBytes int64) *UploadHandler {
	return &UploadHandler{uploads: uploads, maxBytes: maxBytes}
}

// Upload handles POST /upload with a multipart "image" file.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes {"image_url": ...}).
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		respondError(c, domain.NewValidationError("image", "missing file"))
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, err)
		return
	}

	ref, err := h.uploads.Upload(c.Request.Context(), fh.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"image_url": ref})
}
