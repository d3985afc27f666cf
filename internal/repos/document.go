package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/logger"
)

type DocumentRepo interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, documentID, companyID string) (*domain.Document, error)
	// GetAnyByID looks a document up without the tenant filter. The worker
	// uses it because the job payload's company id may be stale.
	GetAnyByID(ctx context.Context, documentID string) (*domain.Document, error)
	ListByCompany(ctx context.Context, companyID string) ([]*domain.Document, error)
	TotalPages(ctx context.Context, companyID string) (int, error)
	UpdateStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errorMessage string) error
	Delete(ctx context.Context, documentID, companyID string) (bool, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(ctx context.Context, doc *domain.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return err
	}
	r.log.Info("Document saved",
		"document_id", doc.DocumentID,
		"company_id", doc.CompanyID,
		"filename", doc.Filename,
	)
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, documentID, companyID string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND company_id = ?", documentID, companyID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetAnyByID(ctx context.Context, documentID string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) ListByCompany(ctx context.Context, companyID string) ([]*domain.Document, error) {
	var docs []*domain.Document
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("uploaded_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *documentRepo) TotalPages(ctx context.Context, companyID string) (int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("company_id = ?", companyID).
		Select("COALESCE(SUM(num_pages), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errorMessage string) error {
	if err := r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("document_id = ?", documentID).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
		}).Error; err != nil {
		return err
	}
	r.log.Debug("Document status updated", "document_id", documentID, "status", status)
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, documentID, companyID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("document_id = ? AND company_id = ?", documentID, companyID).
		Delete(&domain.Document{})
	if res.Error != nil {
		return false, res.Error
	}
	deleted := res.RowsAffected > 0
	if deleted {
		r.log.Info("Document deleted", "document_id", documentID, "company_id", companyID)
	}
	return deleted, nil
}
