package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/utils"
)

const maxErrorBodyBytes = 1024

var pointIDNamespaceUUID = uuid.MustParse("7c9e2f60-5b1d-4a83-9f27-3d41c0a6e9b4")

// QdrantConfig holds connection settings for the qdrant HTTP API.
type QdrantConfig struct {
	URL        string
	Collection string
	VectorDim  int
}

func LoadQdrantConfig(log *logger.Logger) QdrantConfig {
	return QdrantConfig{
		URL:        utils.GetEnv("QDRANT_URL", "http://localhost:6333", log),
		Collection: utils.GetEnv("QDRANT_COLLECTION", "documents", log),
		VectorDim:  utils.GetEnvAsInt("QDRANT_VECTOR_DIM", 1536, log),
	}
}

type qdrantStore struct {
	log      *logger.Logger
	cfg      QdrantConfig
	baseURL  string
	embedder Embedder
	http     *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func NewQdrantStore(log *logger.Logger, embedder Embedder, cfg QdrantConfig) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("qdrant url required")
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return nil, fmt.Errorf("qdrant collection required")
	}

	s := &qdrantStore{
		log:      log.With("service", "QdrantVectorStore"),
		cfg:      cfg,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		embedder: embedder,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	if err := s.ensureCollection(context.Background()); err != nil {
		return nil, err
	}

	s.log.Info("Qdrant vector store ready",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

// newQdrantStoreWithClient is the test seam; it skips the readiness check.
func newQdrantStoreWithClient(log *logger.Logger, embedder Embedder, cfg QdrantConfig, client *http.Client) *qdrantStore {
	return &qdrantStore{
		log:      log.With("service", "QdrantVectorStore"),
		cfg:      cfg,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		embedder: embedder,
		http:     client,
	}
}

func (s *qdrantStore) ensureCollection(ctx context.Context) error {
	err := s.doJSON(ctx, http.MethodGet, s.collectionPath(""), nil, nil)
	if err == nil {
		return nil
	}
	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.cfg.VectorDim,
			"distance": "Cosine",
		},
	}
	if err := s.doJSON(ctx, http.MethodPut, s.collectionPath(""), req, nil); err != nil {
		return fmt.Errorf("create collection %q: %w", s.cfg.Collection, err)
	}
	s.log.Info("Created qdrant collection", "collection", s.cfg.Collection)
	return nil
}

func (s *qdrantStore) AddDocuments(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]map[string]any, 0, len(chunks))
	for i, c := range chunks {
		if s.cfg.VectorDim > 0 && len(vectors[i]) != s.cfg.VectorDim {
			return fmt.Errorf(
				"vector dimension mismatch: expected=%d got=%d",
				s.cfg.VectorDim,
				len(vectors[i]),
			)
		}
		points = append(points, map[string]any{
			"id":     s.pointID(c.DocumentID, c.Ordinal),
			"vector": vectors[i],
			"payload": map[string]any{
				"company_id":  c.CompanyID,
				"document_id": c.DocumentID,
				"source":      c.Source,
				"page":        c.Page,
				"ordinal":     c.Ordinal,
				"text":        c.Text,
			},
		})
	}

	req := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), req, nil)
}

func (s *qdrantStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	req := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": documentID}},
			},
		},
	}
	return s.doJSON(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), req, nil)
}

func (s *qdrantStore) SimilaritySearch(ctx context.Context, query string, k int, companyID string) ([]Chunk, error) {
	if k <= 0 {
		k = 3
	}
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "company_id", "match": map[string]any{"value": companyID}},
			},
		},
	}

	var items []qdrantSearchResultItem
	if err := s.doJSON(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &items); err != nil {
		return nil, err
	}

	out := make([]Chunk, 0, len(items))
	for _, item := range items {
		out = append(out, chunkFromPayload(item.Payload))
	}
	return out, nil
}

func chunkFromPayload(payload map[string]any) Chunk {
	var c Chunk
	if v, ok := payload["text"].(string); ok {
		c.Text = v
	}
	if v, ok := payload["company_id"].(string); ok {
		c.CompanyID = v
	}
	if v, ok := payload["document_id"].(string); ok {
		c.DocumentID = v
	}
	if v, ok := payload["source"].(string); ok {
		c.Source = v
	}
	if v, ok := payload["page"].(float64); ok {
		c.Page = int(v)
	}
	if v, ok := payload["ordinal"].(float64); ok {
		c.Ordinal = int(v)
	}
	return c
}

func (s *qdrantStore) pointID(documentID string, ordinal int) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(fmt.Sprintf("%s:%d", documentID, ordinal))).String()
}

func (s *qdrantStore) collectionPath(suffix string) string {
	return fmt.Sprintf("/collections/%s%s", s.cfg.Collection, suffix)
}

func (s *qdrantStore) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("qdrant %s %s: status=%d body=%s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	var env qdrantEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode qdrant response: %w", err)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode qdrant result: %w", err)
	}
	return nil
}
