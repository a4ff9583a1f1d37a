package handler

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timmy/ghostbooth/internal/imageproc"
	"github.com/timmy/ghostbooth/internal/storage"
)

// ArtifactReader reads stored artifacts by reference.
type ArtifactReader interface {
	Read(ctx context.Context, ref string) ([]byte, error)
}

// ArtifactHandler serves stored uploads and results.
type ArtifactHandler struct {
	artifacts ArtifactReader
}

// NewArtifactHandler creates a new artifact handler.
func NewArtifactHandler(artifacts ArtifactReader) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts}
}

// Uploads handles GET /uploads/:name.
func (h *ArtifactHandler) Uploads(c *gin.Context) {
	h.serve(c, storage.NamespaceUploads)
}

// Results handles GET /results/:name.
func (h *ArtifactHandler) Results(c *gin.Context) {
	h.serve(c, storage.NamespaceResults)
}

func (h *ArtifactHandler) serve(c *gin.Context, namespace string) {
	data, err := h.artifacts.Read(c.Request.Context(), storage.Ref(namespace, c.Param("name")))
	if err != nil {
		respondError(c, err)
		return
	}

	contentType := imageproc.Sniff(data)
	if contentType == "" {
		contentType = contentTypeByExt(c.Param("name"))
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, contentType, data)
}

func contentTypeByExt(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
