package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/core"
	"github.com/poiesic/graphhelper/storage"
)

// embeddingProcessor embeds batches of chunks and stores them.
type embeddingProcessor struct {
	chunks         storage.ChunkRepository
	embedder       ai.Embedder
	maxAttempts    int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

func newEmbeddingProcessor(chunks storage.ChunkRepository, embedder ai.Embedder, maxAttempts int, retryBaseDelay time.Duration, logger *slog.Logger) *embeddingProcessor {
	return &embeddingProcessor{
		chunks:         chunks,
		embedder:       embedder,
		maxAttempts:    maxAttempts,
		retryBaseDelay: retryBaseDelay,
		logger:         logger.With("processor", "embeddings"),
	}
}

// process embeds the batch with retries, normalizes the vectors so cosine
// similarity reduces to a dot product, and stores the chunks.
func (ep *embeddingProcessor) process(ctx context.Context, batch []*core.Chunk) error {
	if len(batch) == 0 {
		return nil
	}

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	var embeddings [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = ep.embedder.EmbedTexts(ctx, texts)
		return err
	}, ep.maxAttempts, ep.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", ep.maxAttempts, err)
	}

	if len(embeddings) != len(batch) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(batch), len(embeddings))
	}

	for i := range batch {
		batch[i].Vector = normalizeVector(embeddings[i])
	}

	if err := ep.chunks.PutChunks(ctx, batch...); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	ep.logger.Debug("stored batch", "chunks", len(batch))
	return nil
}

// normalizeVector returns v scaled to unit length. A zero vector stays zero.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	mag := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out
}
