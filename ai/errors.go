package ai

import (
	"errors"
	"fmt"

	"github.com/poiesic/graphhelper/core"
)

var (
	// ErrProviderFailure indicates the model backend could not serve a call.
	ErrProviderFailure = fmt.Errorf("ai provider failure: %w", core.ErrUnavailable)

	// ErrEmptyResponse indicates the model returned no usable text.
	ErrEmptyResponse = fmt.Errorf("empty model response: %w", core.ErrMalformedResponse)

	// ErrInvalidConfig indicates an incomplete or out-of-range Config.
	ErrInvalidConfig = errors.New("invalid ai config")

	// ErrUnsupportedPlatform indicates an unknown Platform value.
	ErrUnsupportedPlatform = errors.New("unsupported ai platform")

	// ErrInvalidMaxAttempts indicates a retry budget below one.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
