package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/ghostbooth/internal/app"
	"github.com/timmy/ghostbooth/internal/config"
	"github.com/timmy/ghostbooth/internal/domain"
	"github.com/timmy/ghostbooth/internal/logger"
	"github.com/timmy/ghostbooth/internal/service"
	"github.com/timmy/ghostbooth/internal/source/photodir"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "ghostbooth-batch",
	})
	logger.SetDefaultLogger(appLogger)

	dir := flag.String("dir", "", "Directory of photos to transform")
	variant := flag.String("variant", string(domain.DefaultVariant), "Costume: ghost, vampire, witch, zombie or werewolf")
	extra := flag.String("extra", "", "Extra prompt details applied to every photo")
	name := flag.String("name", "", "Display name applied to photos without one in the manifest")
	plainBG := flag.Bool("plain-bg", false, "Keep the original background")
	limit := flag.Int("limit", 0, "Maximum number of photos, 0 for all")
	workers := flag.Int("workers", 0, "Worker count, overrides batch.workers")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *dir == "" {
		appLogger.Fatal("-dir is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	// photos in a batch usually have no display name
	cfg.Transform.RequireDisplayName = false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := app.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize components")
	}

	batchCfg := &service.BatchConfig{Workers: cfg.Batch.Workers}
	if *workers > 0 {
		batchCfg.Workers = *workers
	}

	var runs service.BatchRunRecorder
	if components.Runs != nil {
		runs = components.Runs
	}
	batchService := service.NewBatchService(components.Uploads, components.Transform, runs, appLogger, batchCfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	v := domain.ParseVariant(*variant)
	if !v.Known() {
		appLogger.WithField("variant", *variant).Warn("Unknown variant, ghost prompts will be used")
	}

	stats, err := batchService.Run(ctx, photodir.NewAdapter(*dir), &service.BatchOptions{
		Variant:            v,
		Augmentation:       *extra,
		ThematicBackground: !*plainBG,
		DisplayName:        *name,
		Limit:              *limit,
	})
	if err != nil {
		appLogger.WithError(err).Error("Batch run interrupted")
	}

	appLogger.WithFields(logger.Fields{
		"run_id":    stats.RunID,
		"total":     stats.TotalItems,
		"processed": stats.ProcessedItems,
		"failed":    stats.FailedItems,
		"ai":        stats.AIItems,
	}).Info("Batch completed")

	components.Close(context.Background())
	if stats.FailedItems > 0 {
		os.Exit(1)
	}
}
