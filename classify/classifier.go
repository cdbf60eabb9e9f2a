package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/core"
)

const (
	// DefaultCacheSize is the number of classifications kept by default.
	DefaultCacheSize = 1024

	temperature = 0.0
	maxTokens   = 16
)

// Classifier assigns a QueryType to a question using a completion model.
type Classifier struct {
	completer ai.Completer
	cacheSize int
	cache     *ristretto.Cache[string, core.QueryType]
	logger    *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier) error

// WithCache bounds the classification cache to size entries.
// Zero disables caching. Default is DefaultCacheSize.
func WithCache(size int) Option {
	return func(c *Classifier) error {
		if size < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidCacheSize, size)
		}
		c.cacheSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "classifier")
		return nil
	}
}

// NewClassifier creates a new classifier.
func NewClassifier(completer ai.Completer, opts ...Option) (*Classifier, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	c := &Classifier{
		completer: completer,
		cacheSize: DefaultCacheSize,
		logger:    slog.Default().With("component", "classifier"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.cacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, core.QueryType]{
			NumCounters: int64(c.cacheSize) * 10,
			MaxCost:     int64(c.cacheSize),
			BufferItems: 64,
			// every entry costs 1, so MaxCost counts entries
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, fmt.Errorf("creating classification cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Classify returns the type of query. It never fails: an unusable response
// falls back to general with a degraded record, a provider failure falls
// back to general with a failed record.
func (c *Classifier) Classify(ctx context.Context, query core.Query) (core.QueryType, core.StepRecord) {
	start := time.Now()

	if c.cache != nil {
		if qt, ok := c.cache.Get(query.Text); ok {
			rec := core.Succeeded(core.StepClassify, string(qt)+" (cached)")
			rec.Duration = time.Since(start)
			return qt, rec
		}
	}

	response, err := c.completer.Complete(ctx, BuildPrompt(query.Text), ai.CompletionOptions{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		c.logger.Warn("classification failed, using general", "err", err)
		rec := core.Failed(core.StepClassify, fmt.Errorf("%w: %w", core.ErrClassificationFailure, err), "defaulted to general")
		rec.Duration = time.Since(start)
		return core.QueryTypeGeneral, rec
	}

	qt, ok := ParseResponse(response)
	if !ok {
		c.logger.Warn("unrecognized classification, using general", "response", response)
		rec := core.Degraded(core.StepClassify,
			fmt.Errorf("%w: %w: %q", core.ErrClassificationFailure, core.ErrUnparseable, response),
			"defaulted to general")
		rec.Duration = time.Since(start)
		return core.QueryTypeGeneral, rec
	}

	if c.cache != nil {
		c.cache.Set(query.Text, qt, 1)
	}

	c.logger.Debug("query classified", "query_type", qt)
	rec := core.Succeeded(core.StepClassify, string(qt))
	rec.Duration = time.Since(start)
	return qt, rec
}

// Wait blocks until pending cache writes are visible.
func (c *Classifier) Wait() {
	if c.cache != nil {
		c.cache.Wait()
	}
}

// Close releases the cache.
func (c *Classifier) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}
