package generate

import "errors"

var (
	// ErrCompleterRequired is returned when a completer is not provided.
	ErrCompleterRequired = errors.New("completer required")

	// ErrInvalidHistoryTurns is returned for a negative history window.
	ErrInvalidHistoryTurns = errors.New("history turns cannot be negative")
)
