package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/abdel7517/ragdocs/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Document{},
	)
}

func EnsureDocumentIndexes(db *gorm.DB) error {
	// Tenant listing is always newest-first.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_document_company_uploaded
		ON document (company_id, uploaded_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_document_company_uploaded: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if s.db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := EnsureDocumentIndexes(s.db); err != nil {
		s.log.Error("Document index migration failed", "error", err)
		return err
	}
	return nil
}
