package openai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const retryBaseDelay = 500 * time.Millisecond

// Completer implements ai.Completer using an OpenAI-compatible chat endpoint.
type Completer struct {
	client      llms.Model
	maxAttempts int
	logger      *slog.Logger
}

func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	token := config.APIKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(token),
		openai.WithModel(config.CompletionModel),
		openai.WithHTTPClient(httpClient(config)),
	)
	if err != nil {
		return nil, err
	}

	return &Completer{
		client:      client,
		maxAttempts: config.MaxRetries,
		logger:      slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a new completer from config.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

// Complete sends prompt as a single user message and returns the first choice.
func (c *Completer) Complete(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error) {
	content := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	var text string
	err := ai.RetryWithBackoff(ctx, func() error {
		response, err := c.client.GenerateContent(ctx, content, callOpts...)
		if err != nil {
			c.logger.Warn("completion call failed", "err", err)
			return err
		}
		if len(response.Choices) < 1 {
			return ai.ErrEmptyResponse
		}
		text = response.Choices[0].Content
		return nil
	}, c.maxAttempts, retryBaseDelay)
	if err != nil {
		return "", wrapFailure(ctx, err)
	}

	c.logger.Debug("completion received", "length", len(text))
	return text, nil
}

// wrapFailure maps a client error onto ai.ErrProviderFailure. The
// langchaingo client replaces context errors with generic messages, so the
// context's own error is attached when it has ended.
func wrapFailure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ai.ErrProviderFailure, ctxErr)
	}
	if llms.IsRateLimitError(openai.MapError(err)) {
		return fmt.Errorf("%w: %w: %w", ai.ErrProviderFailure, core.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %w", ai.ErrProviderFailure, err)
}
