package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/abdel7517/ragdocs/internal/broker"
	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/pdf"
	"github.com/abdel7517/ragdocs/internal/platform/gcp"
	"github.com/abdel7517/ragdocs/internal/repos"
	"github.com/abdel7517/ragdocs/internal/vectorstore"
)

// ProcessService drives a document from queued to completed or failed:
// download, chunk, embed-and-index in batches, finalize. Progress events are
// published on the document's channel at every stage; the status column stays
// the single source of truth. Status writes are plain idempotent updates, so
// a redelivered job converges on the same terminal state.
type ProcessService struct {
	log       *logger.Logger
	repo      repos.DocumentRepo
	bucket    gcp.BucketService
	broker    broker.Broker
	vectors   vectorstore.VectorStore
	analyzer  pdf.Analyzer
	chunker   *Chunker
	batchSize int
}

func NewProcessService(
	log *logger.Logger,
	repo repos.DocumentRepo,
	bucket gcp.BucketService,
	progressBroker broker.Broker,
	vectors vectorstore.VectorStore,
	analyzer pdf.Analyzer,
	chunker *Chunker,
	batchSize int,
) *ProcessService {
	if batchSize < 1 {
		batchSize = 10
	}
	return &ProcessService{
		log:       log.With("service", "ProcessService"),
		repo:      repo,
		bucket:    bucket,
		broker:    progressBroker,
		vectors:   vectors,
		analyzer:  analyzer,
		chunker:   chunker,
		batchSize: batchSize,
	}
}

// HandleJob adapts Process to the queue handler signature.
func (s *ProcessService) HandleJob(ctx context.Context, raw []byte) error {
	var payload domain.JobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode job payload: %w", err)
	}
	return s.Process(ctx, payload)
}

// Process runs one attempt. The returned error is informational; the failure
// handler has already recorded a terminal state by the time it is returned.
// That includes panics: PDF parsing panics on some malformed content streams
// that pass the upload-side page count, and those attempts must still end in
// status=failed rather than unwinding past the terminal writes.
func (s *ProcessService) Process(ctx context.Context, payload domain.JobPayload) (err error) {
	channel := domain.ProgressChannel(payload.DocumentID)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing document: %v", r)
			s.fail(ctx, payload.DocumentID, channel, err)
		}
	}()
	s.log.Info("Processing document", "document_id", payload.DocumentID, "company_id", payload.CompanyID)

	content, err := s.download(ctx, payload, channel)
	if err != nil {
		s.fail(ctx, payload.DocumentID, channel, err)
		return err
	}
	chunks, err := s.chunk(ctx, payload, content, channel)
	if err != nil {
		s.fail(ctx, payload.DocumentID, channel, err)
		return err
	}
	if err := s.embed(ctx, payload.DocumentID, chunks, channel); err != nil {
		s.fail(ctx, payload.DocumentID, channel, err)
		return err
	}
	if err := s.complete(ctx, payload, len(chunks), channel); err != nil {
		s.fail(ctx, payload.DocumentID, channel, err)
		return err
	}
	return nil
}

// download fetches the raw bytes from the blob store (0% -> 10%).
func (s *ProcessService) download(ctx context.Context, payload domain.JobPayload, channel string) ([]byte, error) {
	s.publish(ctx, channel, payload.DocumentID, domain.StepDownloading, 0, "Downloading file...", false)
	content, err := s.bucket.Download(ctx, payload.GCSPath)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, channel, payload.DocumentID, domain.StepDownloading, 10, "File downloaded", false)
	return content, nil
}

// chunk marks the document vectorizing and splits it (10% -> 20%). The
// status write is the first durable evidence that processing started.
func (s *ProcessService) chunk(ctx context.Context, payload domain.JobPayload, content []byte, channel string) ([]vectorstore.Chunk, error) {
	if err := s.repo.UpdateStatus(ctx, payload.DocumentID, domain.DocumentStatusVectorizing, ""); err != nil {
		return nil, err
	}
	s.publish(ctx, channel, payload.DocumentID, domain.StepVectorizing, 10, "Splitting document into chunks...", false)

	// Re-fetch for the canonical filename; queue data may be stale.
	filename := "unknown.pdf"
	if doc, err := s.repo.GetAnyByID(ctx, payload.DocumentID); err == nil {
		filename = doc.Filename
	}

	pages, err := s.analyzer.ExtractPageTexts(content)
	if err != nil {
		return nil, err
	}
	chunks, err := s.chunker.Chunk(pages, payload.CompanyID, payload.DocumentID, filename)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, channel, payload.DocumentID, domain.StepVectorizing, 20,
		fmt.Sprintf("%d chunk(s) created", len(chunks)), false)
	return chunks, nil
}

// embed indexes chunks in fixed-size batches (20% -> 95%). A failing batch
// aborts the attempt; batches already indexed are not rolled back.
func (s *ProcessService) embed(ctx context.Context, documentID string, chunks []vectorstore.Chunk, channel string) error {
	total := len(chunks)
	if total == 0 {
		return nil
	}

	totalBatches := (total + s.batchSize - 1) / s.batchSize
	for batchIdx := 0; batchIdx < totalBatches; batchIdx++ {
		start := batchIdx * s.batchSize
		end := start + s.batchSize
		if end > total {
			end = total
		}
		if err := s.vectors.AddDocuments(ctx, chunks[start:end]); err != nil {
			return fmt.Errorf("index batch %d/%d: %w", batchIdx+1, totalBatches, err)
		}

		progress := 20 + int(math.Round(float64(batchIdx+1)/float64(totalBatches)*75))
		s.publish(ctx, channel, documentID, domain.StepVectorizing, progress,
			fmt.Sprintf("Indexing: %d/%d chunks", end, total), false)
	}
	return nil
}

// complete finalizes the attempt (100%) and drops the now-unneeded blob.
func (s *ProcessService) complete(ctx context.Context, payload domain.JobPayload, totalChunks int, channel string) error {
	if err := s.repo.UpdateStatus(ctx, payload.DocumentID, domain.DocumentStatusCompleted, ""); err != nil {
		return err
	}
	if err := s.bucket.Delete(ctx, payload.GCSPath); err != nil {
		s.log.Warn("Failed to delete source blob after completion",
			"document_id", payload.DocumentID,
			"gcs_path", payload.GCSPath,
			"error", err,
		)
	}
	s.publish(ctx, channel, payload.DocumentID, domain.StepCompleted, 100, "Processing complete", true)
	s.log.Info("Document vectorized", "document_id", payload.DocumentID, "chunks", totalChunks)
	return nil
}

// fail is the attempt's last line of defense: it records the terminal failed
// state and publishes the terminal event, and never raises itself. It runs on
// a detached context so the terminal writes still land when the attempt died
// of a deadline or cancellation.
func (s *ProcessService) fail(_ context.Context, documentID, channel string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.log.Error("Error processing document", "document_id", documentID, "error", cause)
	if err := s.repo.UpdateStatus(ctx, documentID, domain.DocumentStatusFailed, cause.Error()); err != nil {
		s.log.Error("Failed to record failed status", "document_id", documentID, "error", err)
	}
	s.publish(ctx, channel, documentID, domain.StepFailed, 0, cause.Error(), true)
}

func (s *ProcessService) publish(ctx context.Context, channel, documentID, step string, progress int, message string, done bool) {
	event := domain.ProgressEvent{
		DocumentID: documentID,
		Step:       step,
		Progress:   progress,
		Message:    message,
		Done:       done,
	}
	if err := s.broker.Publish(ctx, channel, event); err != nil {
		s.log.Warn("Failed to publish progress event",
			"document_id", documentID,
			"step", step,
			"error", err,
		)
	}
}
