package openai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/utils"
	"github.com/abdel7517/ragdocs/internal/vectorstore"
)

type embedder struct {
	log      *logger.Logger
	embedder embeddings.Embedder
}

// NewEmbedder builds a vectorstore.Embedder backed by an OpenAI-compatible
// embeddings endpoint. EMBEDDING_BASE_URL may point at a local service
// (e.g. Ollama's OpenAI-compatible API); "none" is accepted as a token for
// services without auth.
func NewEmbedder(log *logger.Logger) (vectorstore.Embedder, error) {
	baseURL := utils.GetEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1", log)
	token := utils.GetEnv("EMBEDDING_API_KEY", "none", log)
	model := utils.GetEnv("EMBEDDING_MODEL", "text-embedding-3-small", log)

	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	log.Info("Embedder initialized", "base_url", baseURL, "model", model)

	return &embedder{
		log:      log.With("service", "OpenAIEmbedder"),
		embedder: emb,
	}, nil
}

func (e *embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.log.Error("Failed to generate embeddings", "count", len(texts), "error", err)
		return nil, err
	}
	return vectors, nil
}

func (e *embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.log.Error("Failed to generate embedding", "error", err)
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned empty result")
	}
	return vectors[0], nil
}
