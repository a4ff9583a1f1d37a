package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timmy/ghostbooth/internal/domain"
)

// Transformer runs a costume transform.
type Transformer interface {
	Transform(ctx context.Context, req *domain.TransformRequest) (*domain.TransformResult, error)
}

// TransformHandler handles costume transforms.
type TransformHandler struct {
	transform Transformer
}

// NewTransformHandler creates a new transform handler.
func NewTransformHandler(transform Transformer) *TransformHandler {
	return &TransformHandler{transform: transform}
}

// Transform handles POST /transform.
// Form fields: disfraz (or variant), image_url, extra_prompt,
// use_thematic_bg (default on) and display_name.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes the transform result as JSON).
func (h *TransformHandler) Transform(c *gin.Context) {
	variant := c.PostForm("disfraz")
	if variant == "" {
		variant = c.PostForm("variant")
	}

	req := &domain.TransformRequest{
		ImageRef:           strings.TrimSpace(c.PostForm("image_url")),
		Variant:            domain.ParseVariant(variant),
		Augmentation:       cleanText(c.PostForm("extra_prompt")),
		ThematicBackground: parseFlag(c.DefaultPostForm("use_thematic_bg", "1")),
		DisplayName:        cleanText(c.PostForm("display_name")),
	}

	res, err := h.transform.Transform(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func parseFlag(v string) bool {
	switch strings.TrimSpace(v) {
	case "1", "true", "True", "yes":
		return true
	}
	return false
}
