package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/graphhelper/core"
	"github.com/poiesic/graphhelper/storage"
)

// cancellation is checked every this many scanned chunks
const scanCheckInterval = 256

// Backend owns the badger database shared by the repositories.
type Backend struct {
	db       *badger.DB
	readOnly bool
	logger   *slog.Logger
}

type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// BackendOption configures OpenBackend.
type BackendOption func(*backendOptions)

type backendOptions struct {
	readOnly bool
	logger   *slog.Logger
}

// WithReadOnly opens an existing index without write access. Several
// processes may share a read-only index.
func WithReadOnly() BackendOption {
	return func(o *backendOptions) {
		o.readOnly = true
	}
}

// WithLogger sets the logger badger and the backend write to.
func WithLogger(logger *slog.Logger) BackendOption {
	return func(o *backendOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// OpenBackend opens the database at filePath, creating the directory when
// needed. With inMemory the path is ignored and nothing touches disk.
// A read-only open of a missing directory fails with storage.ErrIndexMissing.
func OpenBackend(filePath string, inMemory bool, opts ...BackendOption) (*Backend, error) {
	o := backendOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	var bopts badger.Options
	if inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
		o.readOnly = false
	} else {
		info, err := os.Stat(filePath)
		switch {
		case errors.Is(err, os.ErrNotExist) && o.readOnly:
			return nil, fmt.Errorf("%w: %s", storage.ErrIndexMissing, filePath)
		case errors.Is(err, os.ErrNotExist):
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		case !info.IsDir():
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		bopts = badger.DefaultOptions(filePath).WithReadOnly(o.readOnly)
	}

	bopts.Logger = &badgerLoggerAdapter{logger: o.logger.With("component", "badger")}
	bopts.Compression = options.None

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:       db,
		readOnly: o.readOnly,
		logger:   o.logger.With("component", "chunk-store"),
	}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed reports whether Close has been called.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// ReadOnly reports whether the backend rejects writes.
func (b *Backend) ReadOnly() bool {
	return b.readOnly
}

// WithTx runs fn inside a transaction. Write transactions must be committed
// by fn; anything left uncommitted is discarded.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	if isWrite && b.readOnly {
		return storage.ErrReadOnly
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// FindSimilar scans every stored chunk and scores it by cosine similarity.
func (b *Backend) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredChunk, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil, fmt.Errorf("%w: zero query vector", storage.ErrInvalidQuery)
	}

	var results []*core.ScoredChunk
	scanned := 0

	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			scanned++
			if scanned%scanCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(chunk.Vector) == 0 {
				continue
			}

			similarity := cosine(vector, queryNorm, chunk.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.ScoredChunk{Chunk: chunk, Score: similarity})
			}
		}
		return ctx.Err()
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.ScoredChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.Chunk.Id < b.Chunk.Id:
			return -1
		case a.Chunk.Id > b.Chunk.Id:
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}

	b.logger.Debug("similarity scan", "scanned", scanned, "hits", len(results))
	return results, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns the cosine similarity of a and b. Vectors of different
// length are compared over their common prefix.
func cosine(a []float32, aNorm float64, b []float32) float32 {
	bNorm := norm(b)
	if bNorm == 0 {
		return 0
	}
	n := min(len(a), len(b))
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (aNorm * bNorm))
}
