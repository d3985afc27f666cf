package main

import (
	"fmt"
	"os"

	"github.com/abdel7517/ragdocs/internal/broker"
	"github.com/abdel7517/ragdocs/internal/config"
	"github.com/abdel7517/ragdocs/internal/db"
	"github.com/abdel7517/ragdocs/internal/http/handlers"
	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/pdf"
	"github.com/abdel7517/ragdocs/internal/platform/gcp"
	"github.com/abdel7517/ragdocs/internal/platform/openai"
	"github.com/abdel7517/ragdocs/internal/queue"
	"github.com/abdel7517/ragdocs/internal/repos"
	"github.com/abdel7517/ragdocs/internal/server"
	"github.com/abdel7517/ragdocs/internal/services"
	"github.com/abdel7517/ragdocs/internal/utils"
	"github.com/abdel7517/ragdocs/internal/vectorstore"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	uploadCfg := config.LoadUpload(log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	documentRepo := repos.NewDocumentRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	jobQueue, err := queue.NewRedisQueue(log)
	if err != nil {
		log.Error("Could not init job queue", "error", err)
		os.Exit(1)
	}
	defer jobQueue.Close()
	progressBroker, err := broker.FromEnv(log)
	if err != nil {
		log.Error("Could not init progress broker", "error", err)
		os.Exit(1)
	}
	defer progressBroker.Close()

	embedderService, err := openai.NewEmbedder(log)
	if err != nil {
		log.Error("Could not init embedder", "error", err)
		os.Exit(1)
	}
	vectorStore, err := vectorstore.NewQdrantStore(log, embedderService, vectorstore.LoadQdrantConfig(log))
	if err != nil {
		log.Error("Could not init vector store", "error", err)
		os.Exit(1)
	}

	analyzer := pdf.NewAnalyzer(log)
	uploadService := services.NewUploadService(log, documentRepo, bucketService, jobQueue, analyzer, uploadCfg)
	documentService := services.NewDocumentService(log, documentRepo, bucketService, vectorStore)

	// Handlers
	log.Info("Setting up Handlers from main...")
	documentHandler := handlers.NewDocumentHandler(log, uploadService, documentService)
	progressHandler := handlers.NewProgressHandler(log, documentRepo, progressBroker)
	healthHandler := handlers.NewHealthHandler()

	// Router
	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: documentHandler,
		ProgressHandler: progressHandler,
		HealthHandler:   healthHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Starting HTTP server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("HTTP server exited", "error", err)
	}
}
