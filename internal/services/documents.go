package services

import (
	"context"
	"fmt"

	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/platform/gcp"
	"github.com/abdel7517/ragdocs/internal/repos"
	"github.com/abdel7517/ragdocs/internal/vectorstore"
)

// DocumentService covers the read and delete side of the document lifecycle.
type DocumentService struct {
	log     *logger.Logger
	repo    repos.DocumentRepo
	bucket  gcp.BucketService
	vectors vectorstore.VectorStore
}

func NewDocumentService(
	log *logger.Logger,
	repo repos.DocumentRepo,
	bucket gcp.BucketService,
	vectors vectorstore.VectorStore,
) *DocumentService {
	return &DocumentService{
		log:     log.With("service", "DocumentService"),
		repo:    repo,
		bucket:  bucket,
		vectors: vectors,
	}
}

// List returns the tenant's documents, newest first.
func (s *DocumentService) List(ctx context.Context, companyID string) ([]*domain.Document, error) {
	return s.repo.ListByCompany(ctx, companyID)
}

// Delete removes a document and everything derived from it: indexed vectors,
// the stored blob (when it still exists) and the row itself, in that order.
// Vector and blob cleanup come first so a retried delete never leaves
// unreachable vectors behind a missing row. Returns domain.ErrNotFound when
// the document does not exist or belongs to another tenant.
func (s *DocumentService) Delete(ctx context.Context, documentID, companyID string) error {
	doc, err := s.repo.GetByID(ctx, documentID, companyID)
	if err != nil {
		return err
	}

	if err := s.vectors.DeleteByDocumentID(ctx, documentID); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}

	// Completed documents have no blob anymore; the worker deletes it after
	// indexing. Treat storage errors as non-fatal either way.
	if doc.GCSPath != "" {
		if err := s.bucket.Delete(ctx, doc.GCSPath); err != nil {
			s.log.Warn("Failed to delete blob during document deletion",
				"document_id", documentID,
				"gcs_path", doc.GCSPath,
				"error", err,
			)
		}
	}

	deleted, err := s.repo.Delete(ctx, documentID, companyID)
	if err != nil {
		return fmt.Errorf("delete document row: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}
