package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/core"
)

const (
	DefaultMaxHistoryTurns = 6
	DefaultTemperature     = 0.7
	DefaultMaxTokens       = 1000

	// NoDocumentationNotice prefixes answers produced without any evidence.
	NoDocumentationNotice = "Note: no documentation was found for this question; this answer is not grounded in the indexed docs.\n\n"
)

// FallbackAnswer is the deterministic answer used when generation fails.
func FallbackAnswer(kind core.ErrorKind) string {
	return fmt.Sprintf("Sorry, I could not produce an answer (generation unavailable: %s).", kind)
}

// Generator writes the final answer from the question and its evidence.
type Generator struct {
	completer       ai.Completer
	maxHistoryTurns int
	options         ai.CompletionOptions
	logger          *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator) error

// WithMaxHistoryTurns sets how many of the most recent history turns go
// into the prompt. Default is DefaultMaxHistoryTurns.
func WithMaxHistoryTurns(n int) Option {
	return func(g *Generator) error {
		if n < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidHistoryTurns, n)
		}
		g.maxHistoryTurns = n
		return nil
	}
}

// WithCompletionOptions overrides the sampling parameters.
func WithCompletionOptions(opts ai.CompletionOptions) Option {
	return func(g *Generator) error {
		g.options = opts
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger.With("component", "generator")
		return nil
	}
}

// NewGenerator creates a new generator.
func NewGenerator(completer ai.Completer, opts ...Option) (*Generator, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	g := &Generator{
		completer:       completer,
		maxHistoryTurns: DefaultMaxHistoryTurns,
		options:         ai.CompletionOptions{Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens},
		logger:          slog.Default().With("component", "generator"),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Generate makes one completion call and returns a non-empty answer. On
// failure the answer is FallbackAnswer and the record is failed.
func (g *Generator) Generate(ctx context.Context, query core.Query, evidence []core.EvidenceChunk) (string, core.StepRecord) {
	start := time.Now()
	prompt := BuildPrompt(query, evidence, g.maxHistoryTurns)

	g.logger.Debug("generating answer", "evidence", len(evidence), "prompt_len", len(prompt))

	response, err := g.completer.Complete(ctx, prompt, g.options)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil && strings.TrimSpace(response) == "" {
		err = fmt.Errorf("%w: blank completion", core.ErrMalformedResponse)
	}
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", core.ErrGenerationFailure, err)
		g.logger.Error("generation failed", "err", err)
		rec := core.Failed(core.StepGenerate, wrapped, "fallback answer")
		rec.Duration = time.Since(start)
		return FallbackAnswer(rec.Kind), rec
	}

	answer := strings.TrimSpace(response)
	detail := fmt.Sprintf("%d evidence chunks", len(evidence))
	if len(evidence) == 0 {
		answer = NoDocumentationNotice + answer
		detail = "no evidence"
	}

	rec := core.Succeeded(core.StepGenerate, detail)
	rec.Duration = time.Since(start)
	return answer, rec
}
