package retrieve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/core"
	"github.com/poiesic/graphhelper/storage"
)

// Hit is one match returned by an EvidenceStore.
type Hit struct {
	ID     core.ID
	Text   string
	Source string
	Score  float32 // higher = more relevant
}

// EvidenceStore finds the stored passages most relevant to a text.
// Identical index contents, text and k must produce identical hits.
type EvidenceStore interface {
	Search(ctx context.Context, text string, k int) ([]Hit, error)
}

// VectorStore is an EvidenceStore that embeds the search text and ranks
// indexed chunks by cosine similarity.
type VectorStore struct {
	chunks   storage.ChunkRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

var _ EvidenceStore = (*VectorStore)(nil)

// NewVectorStore creates a VectorStore over chunks, embedding queries with embedder.
func NewVectorStore(chunks storage.ChunkRepository, embedder ai.Embedder) (*VectorStore, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	return &VectorStore{
		chunks:   chunks,
		embedder: embedder,
		logger:   slog.Default().With("component", "vector-store"),
	}, nil
}

// Search returns up to k chunks, best first. Scores are raw cosine
// similarities; filtering is left to the caller.
func (s *VectorStore) Search(ctx context.Context, text string, k int) ([]Hit, error) {
	vector, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty vector", core.ErrMalformedResponse)
	}

	matches, err := s.chunks.FindSimilar(ctx, vector, -1, k)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{ID: m.Chunk.Id, Text: m.Chunk.Text, Source: m.Chunk.Source, Score: m.Score}
	}
	return hits, nil
}
