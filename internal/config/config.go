package config

import (
	"time"

	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/utils"
)

// Upload holds the limits enforced by the upload pipeline.
type Upload struct {
	MaxUploadSizeBytes int64
	MaxPagesPerCompany int
}

// Chunking holds the splitter parameters used by the worker.
type Chunking struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

// Worker holds queue-consumer tuning.
type Worker struct {
	Concurrency int
	JobTimeout  time.Duration
}

func LoadUpload(log *logger.Logger) Upload {
	return Upload{
		MaxUploadSizeBytes: int64(utils.GetEnvAsInt("MAX_UPLOAD_SIZE_BYTES", 20<<20, log)),
		MaxPagesPerCompany: utils.GetEnvAsInt("MAX_PAGES_PER_COMPANY", 500, log),
	}
}

func LoadChunking(log *logger.Logger) Chunking {
	return Chunking{
		ChunkSize:    utils.GetEnvAsInt("CHUNK_SIZE", 1000, log),
		ChunkOverlap: utils.GetEnvAsInt("CHUNK_OVERLAP", 200, log),
		BatchSize:    utils.GetEnvAsInt("EMBED_BATCH_SIZE", 10, log),
	}
}

func LoadWorker(log *logger.Logger) Worker {
	return Worker{
		Concurrency: utils.GetEnvAsInt("WORKER_CONCURRENCY", 5, log),
		JobTimeout:  time.Duration(utils.GetEnvAsInt("JOB_TIMEOUT_SECONDS", 600, log)) * time.Second,
	}
}
