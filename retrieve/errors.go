package retrieve

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrStoreRequired is returned when an evidence store is not provided.
	ErrStoreRequired = errors.New("evidence store required")

	// ErrInvalidTopK is returned when TopK is outside [MinTopK, MaxTopK].
	ErrInvalidTopK = errors.New("top k out of range")

	// ErrInvalidMinScore is returned when MinScore is outside [0, 1].
	ErrInvalidMinScore = errors.New("min score out of range")
)
