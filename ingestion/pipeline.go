package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/core"
	"github.com/poiesic/graphhelper/storage"
)

const (
	DefaultBatchSize      = 32
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = time.Second
)

// Pipeline builds and refreshes the documentation index.
type Pipeline struct {
	chunks         storage.ChunkRepository
	checkpoints    storage.CheckpointRepository
	embedder       ai.Embedder
	fetcher        Fetcher
	pool           *ants.Pool
	chunkSize      int
	chunkOverlap   int
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
	preprocess     bool
	force          bool
	progress       io.Writer
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of concurrent embedding workers.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunking sets chunk size and overlap in characters.
// Defaults are DefaultChunkSize and DefaultChunkOverlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if size <= 0 || overlap < 0 || overlap >= size {
			return fmt.Errorf("%w: size %d overlap %d", ErrInvalidChunking, size, overlap)
		}
		p.chunkSize = size
		p.chunkOverlap = overlap
		return nil
	}
}

// WithBatchSize sets how many chunks go into one embedding call.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithRetry sets the attempts per embedding batch and the base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return ai.ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.retryBaseDelay = baseDelay
		return nil
	}
}

// WithFetcher replaces the default fetcher.
func WithFetcher(f Fetcher) Option {
	return func(p *Pipeline) error {
		if f != nil {
			p.fetcher = f
		}
		return nil
	}
}

// WithPreprocess turns markdown cleanup on or off. Default is on.
func WithPreprocess(enabled bool) Option {
	return func(p *Pipeline) error {
		p.preprocess = enabled
		return nil
	}
}

// WithForce reindexes sources even when their content is unchanged.
func WithForce(force bool) Option {
	return func(p *Pipeline) error {
		p.force = force
		return nil
	}
}

// WithProgress writes per-source progress lines to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	chunks storage.ChunkRepository,
	checkpoints storage.CheckpointRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		chunks:         chunks,
		checkpoints:    checkpoints,
		embedder:       embedder,
		fetcher:        NewDefaultFetcher(nil),
		pool:           pool,
		chunkSize:      DefaultChunkSize,
		chunkOverlap:   DefaultChunkOverlap,
		batchSize:      DefaultBatchSize,
		maxAttempts:    DefaultMaxAttempts,
		retryBaseDelay: DefaultRetryBaseDelay,
		preprocess:     true,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Report describes what happened to one source.
type Report struct {
	Source  string
	Skipped bool // content unchanged since the last run
	Removed int  // chunks deleted from a previous version
	Chunks  int
	Err     error
}

// Index indexes sources one after another. A failing source does not stop
// the others; the returned error joins every per-source failure.
func (p *Pipeline) Index(ctx context.Context, sources ...Source) ([]Report, error) {
	reports := make([]Report, 0, len(sources))
	var errs []error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		rep := p.indexSource(ctx, src)
		if rep.Err != nil {
			p.logger.Error("indexing source failed", "source", src.Name, "err", rep.Err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, rep.Err))
		}
		reports = append(reports, rep)
	}
	return reports, errors.Join(errs...)
}

func (p *Pipeline) indexSource(ctx context.Context, src Source) Report {
	rep := Report{Source: src.Name}
	logger := p.logger.With("source", src.Name)

	raw, err := p.fetcher.Fetch(ctx, src.Location)
	if err != nil {
		rep.Err = err
		return rep
	}

	text := raw
	if p.preprocess {
		text = Preprocess(raw)
	}
	if text == "" {
		rep.Err = ErrEmptySource
		return rep
	}

	hash := core.IDFromContent(text)
	checkpoint, err := p.checkpoints.LoadCheckpoint(ctx, src.Name)
	if err != nil {
		rep.Err = err
		return rep
	}
	if !p.force && checkpoint != nil && checkpoint.ContentHash == hash {
		logger.Info("source unchanged, skipping", "chunks", checkpoint.ChunkCount)
		rep.Skipped = true
		rep.Chunks = checkpoint.ChunkCount
		return rep
	}

	splitter, err := NewSplitter(p.chunkSize, p.chunkOverlap)
	if err != nil {
		rep.Err = err
		return rep
	}
	parts, err := splitter.Split(text)
	if err != nil {
		rep.Err = err
		return rep
	}

	removed, err := p.chunks.DeleteSource(ctx, src.Name)
	if err != nil {
		rep.Err = err
		return rep
	}
	rep.Removed = removed

	chunks := buildChunks(src.Name, parts)
	logger.Info("embedding source", "chunks", len(chunks), "removed", removed)

	if err := p.embedAll(ctx, src.Name, chunks); err != nil {
		rep.Err = err
		return rep
	}
	rep.Chunks = len(chunks)

	// the checkpoint goes last so an interrupted run is redone next time
	if err := p.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		Source:      src.Name,
		ContentHash: hash,
		ChunkCount:  len(chunks),
	}); err != nil {
		rep.Err = err
	}
	return rep
}

// buildChunks turns split text into chunks, dropping exact repeats within
// the source since they would share an ID.
func buildChunks(source string, parts []string) []*core.Chunk {
	seen := make(map[core.ID]bool, len(parts))
	chunks := make([]*core.Chunk, 0, len(parts))
	for _, text := range parts {
		id := core.IDFromContent(source + "\x00" + text)
		if seen[id] {
			continue
		}
		seen[id] = true
		chunks = append(chunks, &core.Chunk{
			Id:     id,
			Source: source,
			Index:  len(chunks),
			Text:   text,
		})
	}
	return chunks
}

// embedAll embeds chunks in batches on the worker pool. The first failure
// cancels the remaining batches.
func (p *Pipeline) embedAll(ctx context.Context, label string, chunks []*core.Chunk) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	proc := newEmbeddingProcessor(p.chunks, p.embedder, p.maxAttempts, p.retryBaseDelay, p.logger)
	tracker := NewProgressTracker(p.progress, label, len(chunks), p.batchSize)
	tracker.Start()
	defer tracker.Finish()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for start := 0; start < len(chunks); start += p.batchSize {
		batch := chunks[start:min(start+p.batchSize, len(chunks))]
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := proc.process(ctx, batch); err != nil {
				fail(err)
				return
			}
			tracker.Increment(len(batch))
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
