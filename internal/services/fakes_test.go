package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/vectorstore"
)

type fakeRepo struct {
	mu         sync.Mutex
	docs       map[string]*domain.Document
	totalPages int
	createErr  error
	statusErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: make(map[string]*domain.Document)}
}

func (r *fakeRepo) Create(ctx context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	copied := *doc
	r.docs[doc.DocumentID] = &copied
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, documentID, companyID string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeRepo) GetAnyByID(ctx context.Context, documentID string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeRepo) ListByCompany(ctx context.Context, companyID string) ([]*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Document
	for _, doc := range r.docs {
		if doc.CompanyID == companyID {
			copied := *doc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRepo) TotalPages(ctx context.Context, companyID string) (int, error) {
	return r.totalPages, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statusErr != nil {
		return r.statusErr
	}
	if doc, ok := r.docs[documentID]; ok {
		doc.Status = status
		doc.ErrorMsg = errorMessage
	} else {
		r.docs[documentID] = &domain.Document{
			DocumentID: documentID,
			Status:     status,
			ErrorMsg:   errorMessage,
		}
	}
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, documentID, companyID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.CompanyID != companyID {
		return false, nil
	}
	delete(r.docs, documentID)
	return true, nil
}

func (r *fakeRepo) statusOf(documentID string) (domain.DocumentStatus, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[documentID]; ok {
		return doc.Status, doc.ErrorMsg
	}
	return "", ""
}

type fakeBucket struct {
	mu          sync.Mutex
	objects     map[string][]byte
	uploadErr   error
	downloadErr error
	deleteErr   error
	deleted     []string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte)}
}

func (b *fakeBucket) Upload(ctx context.Context, key string, r io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return b.uploadErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	b.objects[key] = buf.Bytes()
	return nil
}

func (b *fakeBucket) Download(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.downloadErr != nil {
		return nil, b.downloadErr
	}
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return data, nil
}

func (b *fakeBucket) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, key)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.objects, key)
	return nil
}

type fakeQueue struct {
	mu         sync.Mutex
	enqueued   []string
	enqueueErr error
}

func (q *fakeQueue) Enqueue(ctx context.Context, jobName string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued = append(q.enqueued, jobName)
	return nil
}

func (q *fakeQueue) Close() error { return nil }

type fakeAnalyzer struct {
	pages          int
	texts          []string
	countErr       error
	textErr        error
	panicOnExtract bool
}

func (a *fakeAnalyzer) CountPages(data []byte) (int, error) {
	if a.countErr != nil {
		return 0, a.countErr
	}
	return a.pages, nil
}

func (a *fakeAnalyzer) ExtractPageTexts(data []byte) ([]string, error) {
	if a.panicOnExtract {
		panic("malformed content stream")
	}
	if a.textErr != nil {
		return nil, a.textErr
	}
	return a.texts, nil
}

type fakeVectorStore struct {
	mu        sync.Mutex
	batches   [][]vectorstore.Chunk
	deleted   []string
	addErr    error
	deleteErr error
	// failAfter fails AddDocuments once batches has this many entries;
	// negative means never.
	failAfter int
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{failAfter: -1}
}

func (v *fakeVectorStore) AddDocuments(ctx context.Context, chunks []vectorstore.Chunk) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.addErr != nil {
		return v.addErr
	}
	if v.failAfter >= 0 && len(v.batches) >= v.failAfter {
		return fmt.Errorf("vector store unavailable")
	}
	v.batches = append(v.batches, chunks)
	return nil
}

func (v *fakeVectorStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.deleteErr != nil {
		return v.deleteErr
	}
	v.deleted = append(v.deleted, documentID)
	return nil
}

func (v *fakeVectorStore) SimilaritySearch(ctx context.Context, query string, k int, companyID string) ([]vectorstore.Chunk, error) {
	return nil, nil
}
