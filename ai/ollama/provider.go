// Package ollama implements the ai interfaces against a local Ollama server
// through its native API.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/graphhelper/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const retryBaseDelay = 500 * time.Millisecond

// Provider implements ai.AIProvider on top of Ollama.
type Provider struct {
	embedder  *Embedder
	completer *Completer
	logger    *slog.Logger
}

// NewProvider creates a provider for a Config whose Platform is ollama.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Platform != ai.PlatformOllama {
		return nil, fmt.Errorf("%w: ollama provider cannot serve %q", ai.ErrUnsupportedPlatform, string(config.Platform))
	}

	client := &http.Client{Timeout: config.Timeout}

	chat, err := ollama.New(
		ollama.WithServerURL(config.CompletionHost),
		ollama.WithModel(config.CompletionModel),
		ollama.WithHTTPClient(client),
	)
	if err != nil {
		return nil, err
	}

	embedModel, err := ollama.New(
		ollama.WithServerURL(config.EmbeddingHost),
		ollama.WithModel(config.EmbeddingModel),
		ollama.WithHTTPClient(client),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(embedModel, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Provider{
		embedder: &Embedder{
			embedder: embedder,
			logger:   slog.Default().With("component", "ollama-embedder"),
		},
		completer: &Completer{
			client:      chat,
			maxAttempts: config.MaxRetries,
			logger:      slog.Default().With("component", "ollama-completer"),
		},
		logger: slog.Default().With("component", "ollama-provider"),
	}, nil
}

// Embedder returns the embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Completer returns the completion service.
func (p *Provider) Completer() ai.Completer {
	return p.completer
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	p.logger.Debug("closing Ollama provider")
	return nil
}

// Embedder implements ai.Embedder with Ollama's embed endpoint.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, wrapFailure(ctx, err)
	}
	return vector, nil
}

// EmbedTexts generates embeddings for texts, one request per text.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, wrapFailure(ctx, err)
	}
	return vectors, nil
}

// Completer implements ai.Completer with Ollama's chat endpoint.
type Completer struct {
	client      llms.Model
	maxAttempts int
	logger      *slog.Logger
}

// Complete sends prompt as a single user message and returns the reply.
func (c *Completer) Complete(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error) {
	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	var text string
	err := ai.RetryWithBackoff(ctx, func() error {
		out, err := llms.GenerateFromSinglePrompt(ctx, c.client, prompt, callOpts...)
		if err != nil {
			c.logger.Warn("completion call failed", "err", err)
			return err
		}
		text = out
		return nil
	}, c.maxAttempts, retryBaseDelay)
	if err != nil {
		return "", wrapFailure(ctx, err)
	}
	return text, nil
}

func wrapFailure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ai.ErrProviderFailure, ctxErr)
	}
	return fmt.Errorf("%w: %w", ai.ErrProviderFailure, err)
}
