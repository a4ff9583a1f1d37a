package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/ghostbooth/internal/api"
	"github.com/timmy/ghostbooth/internal/api/handler"
	"github.com/timmy/ghostbooth/internal/api/middleware"
	"github.com/timmy/ghostbooth/internal/app"
	"github.com/timmy/ghostbooth/internal/config"
	"github.com/timmy/ghostbooth/internal/logger"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := context.Background()
	components, err := app.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize components")
	}

	handlers := &api.Handlers{
		Upload:    handler.NewUploadHandler(components.Uploads, int64(cfg.Server.MaxUploadMB)<<20),
		Transform: handler.NewTransformHandler(components.Transform),
		Gallery:   handler.NewGalleryHandler(components.Gallery),
		Artifacts: handler.NewArtifactHandler(components.Artifacts),
	}
	info := handler.HealthInfo{
		StorageType:   cfg.Storage.Type,
		GeminiEnabled: components.Gemini.Enabled(),
		ImageModel:    components.Gemini.Model(),
		TextModel:     components.Gemini.TextModel(),
	}
	if components.Records != nil {
		handlers.Health = handler.NewHealthHandler(components.Records, info, components.Transform.CacheSize)
	} else {
		handlers.Health = handler.NewHealthHandler(nil, info, components.Transform.CacheSize)
	}

	routerCfg := api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		MetricsPath:    cfg.Metrics.Path,
	}
	if components.Metrics != nil {
		routerCfg.MetricsHandler = components.Metrics.Handler()
	}
	router := api.SetupRouter(handlers, routerCfg, appLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	components.Close(shutdownCtx)

	appLogger.Info("Server exited")
}
