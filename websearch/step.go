package websearch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/graphhelper/core"
)

const (
	DefaultMaxResults = 3
	MinResults        = 1
	MaxResults        = 10
)

// Step runs the web search step of the routing graph.
type Step struct {
	provider   Provider
	maxResults int
	logger     *slog.Logger
}

// Option configures a Step.
type Option func(*Step) error

// WithMaxResults bounds how many web results are kept.
// Default is DefaultMaxResults.
func WithMaxResults(n int) Option {
	return func(s *Step) error {
		if n < MinResults || n > MaxResults {
			return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidMaxResults, n, MinResults, MaxResults)
		}
		s.maxResults = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Step) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "websearch")
		return nil
	}
}

// NewStep creates a web search step backed by provider.
func NewStep(provider Provider, opts ...Option) (*Step, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	s := &Step{
		provider:   provider,
		maxResults: DefaultMaxResults,
		logger:     slog.Default().With("component", "websearch"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MaxResults returns the configured result bound.
func (s *Step) MaxResults() int {
	return s.maxResults
}

// SearchText returns the text sent to the provider for query of type qt.
func SearchText(query string, qt core.QueryType) string {
	switch qt {
	case core.QueryTypeGraphFramework:
		return "LangGraph " + query
	case core.QueryTypeChainFramework:
		return "LangChain " + query
	default:
		return "LangGraph LangChain " + query
	}
}

// Search looks query up on the web. Results missing a title or a snippet
// are skipped. Every failure is degraded, never failed: the request goes on
// with local documentation only.
func (s *Step) Search(ctx context.Context, query core.Query, qt core.QueryType) ([]core.EvidenceChunk, core.StepRecord) {
	start := time.Now()
	text := SearchText(query.Text, qt)

	results, err := s.provider.Search(ctx, text, s.maxResults)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		s.logger.Warn("web search failed", "query", text, "err", err)
		rec := core.Degraded(core.StepWebSearch, fmt.Errorf("%w: %w", core.ErrWebSearchFailure, err), "web search unavailable")
		rec.Duration = time.Since(start)
		return nil, rec
	}

	chunks := make([]core.EvidenceChunk, 0, len(results))
	for _, r := range results {
		if len(chunks) >= s.maxResults {
			break
		}
		title := strings.TrimSpace(r.Title)
		snippet := strings.TrimSpace(r.Snippet)
		if title == "" || snippet == "" {
			continue
		}
		body := "**" + title + "**\n" + snippet
		source := r.URL
		if r.URL != "" {
			body += "\nSource: " + r.URL
		} else {
			source = title
		}
		chunks = append(chunks, core.EvidenceChunk{
			ID:         core.IDFromContent(source + "\x00" + body),
			Text:       body,
			Source:     source,
			Score:      rankScore(len(chunks)),
			Provenance: core.ProvenanceWeb,
		})
	}

	var rec core.StepRecord
	if len(chunks) == 0 {
		rec = core.Degraded(core.StepWebSearch,
			fmt.Errorf("%w: %w", core.ErrWebSearchFailure, core.ErrNoResults),
			"no usable web results")
	} else {
		rec = core.Succeeded(core.StepWebSearch, fmt.Sprintf("%d web results", len(chunks)))
	}
	rec.Duration = time.Since(start)

	s.logger.Debug("web search finished", "query", text, "returned", len(results), "kept", len(chunks))
	return chunks, rec
}

// rankScore maps a provider rank to a score: 1.0, 0.9, ... floored at 0.1.
func rankScore(rank int) float32 {
	return max(1-float32(rank)/10, 0.1)
}

// Digest joins the text of the web chunks into the supplementary search
// text handed to retrieval. It returns "" when chunks holds no web evidence.
func Digest(chunks []core.EvidenceChunk) string {
	var parts []string
	for _, c := range chunks {
		if c.Provenance == core.ProvenanceWeb {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
