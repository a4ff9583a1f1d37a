package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/ghostbooth/internal/api/handler"
	"github.com/timmy/ghostbooth/internal/api/middleware"
	"github.com/timmy/ghostbooth/internal/logger"
)

// Handlers groups the endpoint handlers mounted by SetupRouter.
type Handlers struct {
	Health    *handler.HealthHandler
	Upload    *handler.UploadHandler
	Transform *handler.TransformHandler
	Gallery   *handler.GalleryHandler
	Artifacts *handler.ArtifactHandler
}

// RouterConfig holds router level settings.
type RouterConfig struct {
	Mode           string
	CORS           middleware.CORSConfig
	MaxUploadBytes int64
	MetricsPath    string
	MetricsHandler http.Handler // nil disables the metrics route
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(h *Handlers, cfg RouterConfig, log *logger.Logger) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	if cfg.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORS))

	r.GET("/health", h.Health.Health)

	r.POST("/upload", h.Upload.Upload)
	r.POST("/transform", h.Transform.Transform)
	r.GET("/api/gallery", h.Gallery.List)

	r.GET("/uploads/:name", h.Artifacts.Uploads)
	r.GET("/results/:name", h.Artifacts.Results)

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	return r
}
