package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/graphhelper/core"
)

const (
	DefaultTopK     = 8
	MinTopK         = 1
	MaxTopK         = 32
	DefaultMinScore = float32(0.35)

	// passages sharing this many leading bytes count as duplicates
	dedupPrefixLen = 200
)

// Retriever runs the local-documentation step of the routing graph.
type Retriever struct {
	store    EvidenceStore
	topK     int
	minScore float32
	expand   bool
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithTopK sets how many chunks a retrieval returns at most.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(r *Retriever) error {
		if k < MinTopK || k > MaxTopK {
			return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidTopK, k, MinTopK, MaxTopK)
		}
		r.topK = k
		return nil
	}
}

// WithMinScore sets the relevance floor below which chunks are dropped.
// Default is DefaultMinScore.
func WithMinScore(score float32) Option {
	return func(r *Retriever) error {
		if score < 0 || score > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidMinScore, score)
		}
		r.minScore = score
		return nil
	}
}

// WithExpansion turns multi-query expansion on or off. Default is on.
func WithExpansion(enabled bool) Option {
	return func(r *Retriever) error {
		r.expand = enabled
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "retriever")
		return nil
	}
}

// NewRetriever creates a new retriever over store.
func NewRetriever(store EvidenceStore, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	r := &Retriever{
		store:    store,
		topK:     DefaultTopK,
		minScore: DefaultMinScore,
		expand:   true,
		logger:   slog.Default().With("component", "retriever"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// TopK returns the configured result bound.
func (r *Retriever) TopK() int {
	return r.topK
}

// Retrieve searches the local index for query. supplementary, when not
// empty, is appended to the search text (online mode passes the web
// digest here). The returned chunks are ordered by relevance and carry
// local_doc provenance.
//
// An unavailable store yields no chunks and a failed record; finding
// nothing above the relevance floor yields a degraded record.
func (r *Retriever) Retrieve(ctx context.Context, query core.Query, qt core.QueryType, supplementary string) ([]core.EvidenceChunk, core.StepRecord) {
	start := time.Now()

	base := query.Text
	if s := strings.TrimSpace(supplementary); s != "" {
		base = base + "\n\n" + s
	}

	queries := []string{base}
	if r.expand {
		queries = ExpandQueries(base, qt)
	}

	seenID := make(map[core.ID]bool)
	seenText := make(map[string]bool)
	var hits []Hit
	var lastErr error
	failures := 0

	for _, q := range queries {
		found, err := r.store.Search(ctx, q, r.topK)
		if err != nil {
			failures++
			lastErr = err
			r.logger.Warn("evidence store search failed", "query", q, "err", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		for _, h := range found {
			if h.ID == 0 {
				h.ID = core.IDFromContent(h.Source + "\x00" + h.Text)
			}
			key := dedupKey(h.Text)
			if seenID[h.ID] || seenText[key] {
				continue
			}
			seenID[h.ID] = true
			seenText[key] = true
			hits = append(hits, h)
		}
	}

	if failures > 0 && (failures == len(queries) || ctx.Err() != nil) {
		err := fmt.Errorf("%w: %w", core.ErrRetrievalFailure, lastErr)
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", core.ErrRetrievalFailure, ctx.Err())
		}
		rec := core.Failed(core.StepRetrieve, err, "evidence store unavailable")
		rec.Duration = time.Since(start)
		return nil, rec
	}

	chunks := r.rank(hits, qt)

	var rec core.StepRecord
	if len(chunks) == 0 {
		rec = core.Degraded(core.StepRetrieve,
			fmt.Errorf("%w: %w", core.ErrRetrievalFailure, core.ErrNoResults),
			"no chunks above relevance floor")
	} else {
		detail := fmt.Sprintf("%d chunks from %d queries", len(chunks), len(queries))
		if failures > 0 {
			detail += fmt.Sprintf(", %d failed", failures)
		}
		rec = core.Succeeded(core.StepRetrieve, detail)
	}
	rec.Duration = time.Since(start)

	r.logger.Debug("retrieval finished",
		"query_type", qt,
		"queries", len(queries),
		"candidates", len(hits),
		"kept", len(chunks))
	return chunks, rec
}

// rank drops hits below the floor, orders the rest by score, then by
// source priority for qt, then by ID, and caps the result at TopK.
func (r *Retriever) rank(hits []Hit, qt core.QueryType) []core.EvidenceChunk {
	kept := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= r.minScore {
			kept = append(kept, h)
		}
	}

	slices.SortStableFunc(kept, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		if ra, rb := sourceRank(qt, a.Source), sourceRank(qt, b.Source); ra != rb {
			return ra - rb
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	if len(kept) > r.topK {
		kept = kept[:r.topK]
	}

	chunks := make([]core.EvidenceChunk, len(kept))
	for i, h := range kept {
		chunks[i] = core.EvidenceChunk{
			ID:         h.ID,
			Text:       h.Text,
			Source:     h.Source,
			Score:      h.Score,
			Provenance: core.ProvenanceLocalDoc,
		}
	}
	return chunks
}

func dedupKey(text string) string {
	if len(text) > dedupPrefixLen {
		return text[:dedupPrefixLen]
	}
	return text
}
