package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionOptions tunes a single completion call.
type CompletionOptions struct {
	// Temperature controls sampling randomness, 0 is deterministic.
	Temperature float64

	// MaxTokens bounds the length of the response.
	MaxTokens int
}

// Completer turns a prompt into model-generated text.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends prompt to the model and returns its text response.
	// A transport or provider failure returns an error wrapping
	// ErrProviderFailure (or the context error when ctx ended first).
	// A well-formed but unhelpful response is returned with a nil error;
	// judging its content is up to the caller.
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Completer instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Completer returns the text completion service.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
