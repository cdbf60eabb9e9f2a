package classify

import "errors"

var (
	// ErrCompleterRequired is returned when a completer is not provided.
	ErrCompleterRequired = errors.New("completer required")

	// ErrInvalidCacheSize is returned for a negative cache size.
	ErrInvalidCacheSize = errors.New("cache size cannot be negative")
)
