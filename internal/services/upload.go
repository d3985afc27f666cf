package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/abdel7517/ragdocs/internal/config"
	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/pdf"
	"github.com/abdel7517/ragdocs/internal/platform/gcp"
	"github.com/abdel7517/ragdocs/internal/queue"
	"github.com/abdel7517/ragdocs/internal/repos"
)

// UploadService validates an incoming PDF, enforces the tenant page quota,
// persists it and hands it off to the worker. Every step is a hard
// precondition for the next: a failure before persistence leaves no partial
// state behind.
type UploadService struct {
	log      *logger.Logger
	repo     repos.DocumentRepo
	bucket   gcp.BucketService
	queue    queue.JobQueue
	analyzer pdf.Analyzer
	cfg      config.Upload
}

func NewUploadService(
	log *logger.Logger,
	repo repos.DocumentRepo,
	bucket gcp.BucketService,
	jobQueue queue.JobQueue,
	analyzer pdf.Analyzer,
	cfg config.Upload,
) *UploadService {
	return &UploadService{
		log:      log.With("service", "UploadService"),
		repo:     repo,
		bucket:   bucket,
		queue:    jobQueue,
		analyzer: analyzer,
		cfg:      cfg,
	}
}

func (s *UploadService) Submit(ctx context.Context, companyID, filename string, content []byte, contentType string) (*domain.Document, error) {
	// 1. Type + size validation. Nothing is persisted or uploaded before
	// this passes.
	doc, err := domain.NewDocument(companyID, filename, contentType, int64(len(content)), s.cfg.MaxUploadSizeBytes)
	if err != nil {
		return nil, err
	}

	// 2. Page count.
	numPages, err := s.analyzer.CountPages(content)
	if err != nil {
		return nil, fmt.Errorf("analyze pdf: %w", err)
	}
	doc.NumPages = numPages

	// 3. Tenant quota. Check-then-act; concurrent uploads for the same
	// tenant can race past the boundary (no row lock or atomic counter).
	currentTotal, err := s.repo.TotalPages(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("read page quota: %w", err)
	}
	if currentTotal+numPages > s.cfg.MaxPagesPerCompany {
		return nil, &domain.PageLimitExceededError{
			Current:  currentTotal,
			Incoming: numPages,
			Max:      s.cfg.MaxPagesPerCompany,
		}
	}

	// 4. Blob upload. On failure, no Document row exists yet.
	key := gcp.ObjectKey(companyID, doc.DocumentID)
	if err := s.bucket.Upload(ctx, key, bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	doc.GCSPath = key

	// 5. Persist with status=queued.
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("persist document: %w", err)
	}

	// 6. Enqueue. A failure here leaves an orphaned queued row that is
	// reconciled out-of-band; it is never silently retried from this path.
	if err := s.queue.Enqueue(ctx, domain.ProcessDocumentJob, domain.JobPayload{
		DocumentID: doc.DocumentID,
		CompanyID:  companyID,
		GCSPath:    key,
	}); err != nil {
		return nil, fmt.Errorf("enqueue processing job: %w", err)
	}

	s.log.Info("Document uploaded and queued for vectorization",
		"document_id", doc.DocumentID,
		"company_id", companyID,
		"filename", filename,
		"pages", numPages,
	)
	return doc, nil
}
