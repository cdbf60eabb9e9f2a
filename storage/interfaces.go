package storage

import (
	"context"

	"github.com/poiesic/graphhelper/core"
)

// ChunkRepository stores documentation chunks and their embeddings.
// Chunks are keyed by their content-derived ID, so storing the same text
// twice keeps a single entry.
type ChunkRepository interface {
	// PutChunks stores chunks, replacing any entry with the same ID.
	// Sets InsertedAt if not already set. Chunks without a vector are rejected.
	PutChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// DeleteSource removes every chunk that came from source and returns
	// how many were removed.
	DeleteSource(ctx context.Context, source string) (int, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// FindSimilar finds chunks whose cosine similarity to vector is at least
	// minSimilarity, up to limit results. Results are ordered by similarity
	// (highest first), ties by ascending chunk ID, so identical inputs
	// always produce identical output.
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredChunk, error)

	// Close releases resources held by the repository.
	Close() error
}

// CheckpointRepository remembers which documentation sources have been
// indexed and with what content.
type CheckpointRepository interface {
	// SaveCheckpoint stores checkpoint, stamping UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint for source, or nil if the source
	// was never indexed.
	LoadCheckpoint(ctx context.Context, source string) (*core.Checkpoint, error)

	// ListCheckpoints returns every checkpoint ordered by source.
	ListCheckpoints(ctx context.Context) ([]*core.Checkpoint, error)
}
