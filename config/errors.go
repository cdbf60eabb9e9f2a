package config

import "errors"

var (
	// ErrInvalidConfig is returned when a loaded configuration fails validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnknownKey is returned when the file contains keys this version does not understand.
	ErrUnknownKey = errors.New("unknown config key")
)
