package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jhart/medialens/internal/config"
	"github.com/jhart/medialens/internal/logger"
	"github.com/jhart/medialens/internal/repository"
	"github.com/jhart/medialens/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "medialens-ingest",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	mediaRoot := flag.String("root", "", "Media root directory to scan (overrides config)")
	writeStore := flag.Bool("write-store", false, "Also write records to the relational store")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	root := cfg.Ingest.MediaRoot
	if *mediaRoot != "" {
		root = *mediaRoot
	}
	writeToStore := cfg.Ingest.WriteToStore || *writeStore

	appLogger.WithFields(logger.Fields{
		"media_root":     root,
		"write_to_store": writeToStore,
	}).Info("Starting ingestion")

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	mediaRepo := repository.NewMediaRepository(db)

	elasticRepo := repository.NewElasticRepository(&cfg.Elastic)

	// Cancel the batch on SIGINT/SIGTERM; the coordinator checks the
	// context between files.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldIngestID:  uuid.New().String(),
		logger.FieldComponent: "ingest",
	})
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		appLogger.Warn("Received shutdown signal, stopping after current file")
		cancel()
	}()

	if err := elasticRepo.EnsureIndex(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure search index")
	}

	embeddingService := service.NewEmbeddingService(&cfg.Embedding)
	vlmService := service.NewVLMService(&cfg.VLM)
	llmService := service.NewLLMService(&cfg.LLM)
	transcriptionService := service.NewTranscriptionService(&cfg.Whisper)

	analysisService := service.NewAnalysisService(
		vlmService,
		llmService,
		transcriptionService,
		embeddingService,
		cfg.Ingest.TempDir,
		cfg.Ingest.MaxFrames,
	)

	ingestService := service.NewIngestService(elasticRepo, mediaRepo, analysisService, writeToStore)

	stats, err := ingestService.IngestDirectory(ctx, root)
	if err != nil {
		appLogger.WithError(err).WithFields(logger.Fields{
			"scanned":  stats.Scanned,
			"ingested": stats.Ingested,
			"skipped":  stats.Skipped,
			"failed":   stats.Failed,
		}).Fatal("Ingestion aborted")
	}

	appLogger.WithFields(logger.Fields{
		"scanned":  stats.Scanned,
		"ingested": stats.Ingested,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
	}).Info("Ingestion finished")

	if stats.Failed > 0 {
		os.Exit(1)
	}
}
