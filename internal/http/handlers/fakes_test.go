package handlers_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/abdel7517/ragdocs/internal/broker"
	"github.com/abdel7517/ragdocs/internal/config"
	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/http/handlers"
	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/server"
	"github.com/abdel7517/ragdocs/internal/services"
	"github.com/abdel7517/ragdocs/internal/vectorstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRepo struct {
	mu         sync.Mutex
	docs       map[string]*domain.Document
	totalPages int
}

func newStubRepo() *stubRepo {
	return &stubRepo{docs: make(map[string]*domain.Document)}
}

func (r *stubRepo) Create(ctx context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *doc
	r.docs[doc.DocumentID] = &copied
	return nil
}

func (r *stubRepo) GetByID(ctx context.Context, documentID, companyID string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.CompanyID != companyID {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *stubRepo) GetAnyByID(ctx context.Context, documentID string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (r *stubRepo) ListByCompany(ctx context.Context, companyID string) ([]*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Document
	for _, doc := range r.docs {
		if doc.CompanyID == companyID {
			copied := *doc
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

func (r *stubRepo) TotalPages(ctx context.Context, companyID string) (int, error) {
	return r.totalPages, nil
}

func (r *stubRepo) UpdateStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[documentID]; ok {
		doc.Status = status
		doc.ErrorMsg = errorMessage
	}
	return nil
}

func (r *stubRepo) Delete(ctx context.Context, documentID, companyID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[documentID]
	if !ok || doc.CompanyID != companyID {
		return false, nil
	}
	delete(r.docs, documentID)
	return true, nil
}

type stubBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newStubBucket() *stubBucket {
	return &stubBucket{objects: make(map[string][]byte)}
}

func (b *stubBucket) Upload(ctx context.Context, key string, r io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *stubBucket) Download(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return data, nil
}

func (b *stubBucket) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

type stubQueue struct {
	mu       sync.Mutex
	enqueued []string
}

func (q *stubQueue) Enqueue(ctx context.Context, jobName string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, jobName)
	return nil
}

func (q *stubQueue) Close() error { return nil }

type stubAnalyzer struct {
	pages int
}

func (a *stubAnalyzer) CountPages(data []byte) (int, error) { return a.pages, nil }

func (a *stubAnalyzer) ExtractPageTexts(data []byte) ([]string, error) { return nil, nil }

type stubVectorStore struct {
	mu      sync.Mutex
	deleted []string
}

func (v *stubVectorStore) AddDocuments(ctx context.Context, chunks []vectorstore.Chunk) error {
	return nil
}

func (v *stubVectorStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deleted = append(v.deleted, documentID)
	return nil
}

func (v *stubVectorStore) SimilaritySearch(ctx context.Context, query string, k int, companyID string) ([]vectorstore.Chunk, error) {
	return nil, nil
}

type apiFixture struct {
	repo    *stubRepo
	bucket  *stubBucket
	queue   *stubQueue
	vectors *stubVectorStore
	broker  *broker.MemoryBroker
	router  *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := logger.NewNop()
	repo := newStubRepo()
	bucket := newStubBucket()
	q := &stubQueue{}
	vectors := &stubVectorStore{}
	memBroker := broker.NewMemoryBroker(log)

	uploadService := services.NewUploadService(log, repo, bucket, q, &stubAnalyzer{pages: 3}, config.Upload{
		MaxUploadSizeBytes: 1 << 20,
		MaxPagesPerCompany: 10,
	})
	documentService := services.NewDocumentService(log, repo, bucket, vectors)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(log, uploadService, documentService),
		ProgressHandler: handlers.NewProgressHandler(log, repo, memBroker),
		HealthHandler:   handlers.NewHealthHandler(),
	})

	return &apiFixture{
		repo:    repo,
		bucket:  bucket,
		queue:   q,
		vectors: vectors,
		broker:  memBroker,
		router:  router,
	}
}

func multipartPDF(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func (fx *apiFixture) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}
