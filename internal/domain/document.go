package domain

import (
	"time"

	"github.com/google/uuid"
)

// PDFContentType is the only media type accepted for upload.
const PDFContentType = "application/pdf"

type DocumentStatus string

const (
	DocumentStatusQueued      DocumentStatus = "queued"
	DocumentStatusVectorizing DocumentStatus = "vectorizing"
	DocumentStatusCompleted   DocumentStatus = "completed"
	DocumentStatusFailed      DocumentStatus = "failed"
)

// Terminal reports whether no further status transitions occur.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentStatusCompleted || s == DocumentStatusFailed
}

// Document is the durable record of one uploaded PDF. The status column is
// the single source of truth for terminal state; progress events are
// best-effort notifications on top of it.
type Document struct {
	DocumentID  string         `gorm:"column:document_id;type:uuid;primaryKey" json:"document_id"`
	CompanyID   string         `gorm:"column:company_id;not null;index" json:"company_id"`
	Filename    string         `gorm:"column:filename;not null" json:"filename"`
	ContentType string         `gorm:"column:content_type;not null" json:"content_type"`
	SizeBytes   int64          `gorm:"column:size_bytes;not null" json:"size_bytes"`
	NumPages    int            `gorm:"column:num_pages;not null;default:0" json:"num_pages"`
	Status      DocumentStatus `gorm:"column:status;not null;default:'queued';index" json:"status"`
	ErrorMsg    string         `gorm:"column:error_message;not null;default:''" json:"error_message"`
	GCSPath     string         `gorm:"column:gcs_path;not null;default:''" json:"gcs_path"`
	UploadedAt  time.Time      `gorm:"column:uploaded_at;not null;default:CURRENT_TIMESTAMP;index" json:"uploaded_at"`
}

func (Document) TableName() string { return "document" }

// NewDocument validates the upload basics and returns a queued Document.
// Page count and storage path are filled in by the upload pipeline once
// known; nothing is persisted here.
func NewDocument(companyID, filename, contentType string, sizeBytes, maxUploadSizeBytes int64) (*Document, error) {
	if contentType != PDFContentType {
		return nil, &InvalidFileTypeError{ContentType: contentType}
	}
	if sizeBytes > maxUploadSizeBytes {
		return nil, &FileTooLargeError{Size: sizeBytes, MaxSize: maxUploadSizeBytes}
	}
	return &Document{
		DocumentID:  uuid.NewString(),
		CompanyID:   companyID,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		Status:      DocumentStatusQueued,
		UploadedAt:  time.Now().UTC(),
	}, nil
}
