package services

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/abdel7517/ragdocs/internal/config"
	"github.com/abdel7517/ragdocs/internal/vectorstore"
)

// Chunker splits per-page text into tagged chunks. The separator hierarchy is
// paragraph, line, space, character; chunk size and overlap come from config.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

func NewChunker(cfg config.Chunking) *Chunker {
	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

// Chunk splits pages in order and tags every chunk with tenant, document and
// source metadata. Pages with no extractable text are skipped. Ordinals are
// assigned across the whole document so point ids stay stable on redelivery.
func (c *Chunker) Chunk(pages []string, companyID, documentID, source string) ([]vectorstore.Chunk, error) {
	var chunks []vectorstore.Chunk
	ordinal := 0
	for pageIdx, pageText := range pages {
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		parts, err := c.splitter.SplitText(pageText)
		if err != nil {
			return nil, fmt.Errorf("split page %d: %w", pageIdx+1, err)
		}
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, vectorstore.Chunk{
				Text:       part,
				CompanyID:  companyID,
				DocumentID: documentID,
				Source:     source,
				Page:       pageIdx + 1,
				Ordinal:    ordinal,
			})
			ordinal++
		}
	}
	return chunks, nil
}
