// Package mock provides test doubles for the ai interfaces.
//
// The mocks let tests run without a model server. Each one records its calls
// and accepts a func field to inject custom behavior or failures.
//
// # Usage
//
//	completer := mock.NewMockCompleter("graph_framework")
//	completer.WithCompleteFunc(func(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error) {
//	    return "", ai.ErrProviderFailure
//	})
//
//	// Check call counts and prompts
//	count := completer.CallCount()
//	prompt := completer.LastPrompt()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockCompleter: Returns queued responses, then DefaultResponse
//   - MockProvider: Aggregates mock embedder and completer
package mock
