package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdel7517/ragdocs/internal/broker"
	"github.com/abdel7517/ragdocs/internal/config"
	"github.com/abdel7517/ragdocs/internal/db"
	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/pdf"
	"github.com/abdel7517/ragdocs/internal/platform/gcp"
	"github.com/abdel7517/ragdocs/internal/platform/openai"
	"github.com/abdel7517/ragdocs/internal/queue"
	"github.com/abdel7517/ragdocs/internal/repos"
	"github.com/abdel7517/ragdocs/internal/services"
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
	chunkingCfg := config.LoadChunking(log)
	workerCfg := config.LoadWorker(log)

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
	documentRepo := repos.NewDocumentRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
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
	chunker := services.NewChunker(chunkingCfg)
	processService := services.NewProcessService(
		log,
		documentRepo,
		bucketService,
		progressBroker,
		vectorStore,
		analyzer,
		chunker,
		chunkingCfg.BatchSize,
	)

	// Consumer
	registry := queue.NewRegistry()
	registry.Register(domain.ProcessDocumentJob, processService.HandleJob)

	consumer, err := queue.NewConsumer(log, registry, workerCfg)
	if err != nil {
		log.Error("Could not init job consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer.Run(ctx)
	log.Info("Worker shut down")
}
