package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhart/medialens/internal/api"
	"github.com/jhart/medialens/internal/api/handler"
	"github.com/jhart/medialens/internal/config"
	"github.com/jhart/medialens/internal/logger"
	"github.com/jhart/medialens/internal/repository"
	"github.com/jhart/medialens/internal/service"
	"github.com/jhart/medialens/internal/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := logger.DefaultConfig()
	appLogger := logger.New(logCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	mediaRepo := repository.NewMediaRepository(db)

	elasticRepo := repository.NewElasticRepository(&cfg.Elastic)
	ctx := context.Background()
	if err := elasticRepo.EnsureIndex(ctx); err != nil {
		appLogger.Fatalf("Failed to ensure search index: %v", err)
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
	storeService := service.NewStoreService(elasticRepo, mediaRepo)
	ragService := service.NewRAGService(elasticRepo, embeddingService, llmService, cfg.RAG)

	var archive storage.MediaArchive
	if cfg.Archive.Enabled {
		s3Archive, err := storage.NewS3Archive(&cfg.Archive)
		if err != nil {
			appLogger.Fatalf("Failed to initialize media archive: %v", err)
		}
		if err := s3Archive.EnsureBucket(ctx); err != nil {
			appLogger.Fatalf("Failed to ensure archive bucket: %v", err)
		}
		archive = s3Archive
	}

	uploadHandler := handler.NewUploadHandler(analysisService, storeService, archive, cfg.Ingest.TempDir)
	searchHandler := handler.NewSearchHandler(ragService)
	mediaHandler := handler.NewMediaHandler(mediaRepo, elasticRepo)

	router := api.SetupRouter(uploadHandler, searchHandler, mediaHandler, &cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting API server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}
