package graph

import "errors"

var (
	// ErrClassifierRequired is returned when a classifier is not provided.
	ErrClassifierRequired = errors.New("classifier required")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrInvalidTimeout is returned for a non-positive timeout.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrWebSearchNotConfigured is recorded when an online request runs
	// without a web searcher.
	ErrWebSearchNotConfigured = errors.New("web search not configured")

	// ErrStepPanicked is recorded when a step panics.
	ErrStepPanicked = errors.New("step panicked")
)
