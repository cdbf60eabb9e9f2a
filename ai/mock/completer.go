package mock

import (
	"context"
	"sync"

	"github.com/poiesic/graphhelper/ai"
)

// MockCompleter is a test double for ai.Completer.
// Behavior is picked in this order: CompleteFunc, queued Responses, then
// DefaultResponse. Every prompt is recorded. Safe for concurrent use.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error)

	// DefaultResponse is returned once the queue is empty.
	DefaultResponse string

	mu        sync.Mutex
	queue     []string
	prompts   []string
	options   []ai.CompletionOptions
	callCount int
}

// NewMockCompleter creates a mock completer that answers with response.
func NewMockCompleter(response string) *MockCompleter {
	return &MockCompleter{DefaultResponse: response}
}

// WithCompleteFunc sets custom behavior and returns the mock for chaining.
func (m *MockCompleter) WithCompleteFunc(fn func(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error)) *MockCompleter {
	m.CompleteFunc = fn
	return m
}

// Enqueue adds responses returned in order before DefaultResponse.
func (m *MockCompleter) Enqueue(responses ...string) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
	return m
}

// Complete records the call and returns the configured response.
func (m *MockCompleter) Complete(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	fn := m.CompleteFunc
	var next string
	queued := len(m.queue) > 0
	if queued {
		next, m.queue = m.queue[0], m.queue[1:]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, opts)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if queued {
		return next, nil
	}
	return m.DefaultResponse, nil
}

// CallCount returns the number of Complete calls.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns every prompt received, in call order.
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// LastPrompt returns the most recent prompt, or "" before any call.
func (m *MockCompleter) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// Options returns the options of every call, in call order.
func (m *MockCompleter) Options() []ai.CompletionOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ai.CompletionOptions, len(m.options))
	copy(out, m.options)
	return out
}

// Reset clears recorded calls and custom behavior.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.prompts = nil
	m.options = nil
	m.queue = nil
	m.CompleteFunc = nil
}
