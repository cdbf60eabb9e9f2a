package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/graphhelper/core"
	"github.com/poiesic/graphhelper/storage"
)

// ChunkRepository implements storage.ChunkRepository.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository over backend.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// Close is a no-op; the backend is closed by its owner.
func (r *ChunkRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredChunk, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// PutChunks stores chunks in a single transaction.
func (r *ChunkRepository) PutChunks(ctx context.Context, chunks ...*core.Chunk) error {
	for _, c := range chunks {
		if c == nil || len(c.Vector) == 0 || c.Text == "" {
			return fmt.Errorf("%w: chunk needs text and a vector", storage.ErrInvalidChunk)
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, c := range chunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if c.InsertedAt.IsZero() {
				c.InsertedAt = now
			}
			if err := tx.Set(makeChunkKey(c.Id), storage.MarshalChunk(c)); err != nil {
				return err
			}
			if err := tx.Set(makeChunkSourceKey(c.Source, c.Id), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var chunk *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeChunkKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			chunk, err = storage.UnmarshalChunk(val)
			return err
		})
	}, false)
	return chunk, err
}

// DeleteSource removes every chunk indexed under source.
func (r *ChunkRepository) DeleteSource(ctx context.Context, source string) (int, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeSourcePrefix(source)
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			ids = append(ids, idFromSourceKey(iter.Item().KeyCopy(nil)))
		}
		return nil
	}, false)
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	err = r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeChunkKey(id)); err != nil {
				return err
			}
			if err := tx.Delete(makeChunkSourceKey(source, id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// CountChunks counts stored chunks without reading their values.
func (r *ChunkRepository) CountChunks(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}
