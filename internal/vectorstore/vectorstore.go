package vectorstore

import (
	"context"
)

// Chunk is a bounded span of document text tagged with tenant and document
// metadata. It is the unit of embedding and indexing and never exists outside
// the vector index.
type Chunk struct {
	Text       string
	CompanyID  string
	DocumentID string
	Source     string
	Page       int
	// Ordinal is the chunk's position within its document. Point ids are
	// derived from (document_id, ordinal), so redelivering a job overwrites
	// the same points instead of duplicating them.
	Ordinal int
}

// VectorStore is the tenant-filterable similarity index.
type VectorStore interface {
	AddDocuments(ctx context.Context, chunks []Chunk) error
	DeleteByDocumentID(ctx context.Context, documentID string) error
	SimilaritySearch(ctx context.Context, query string, k int, companyID string) ([]Chunk, error)
}

// Embedder is the opaque text→vector collaborator.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
