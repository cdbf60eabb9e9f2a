package websearch

import (
	"errors"
	"fmt"

	"github.com/poiesic/graphhelper/core"
)

var (
	// ErrProviderRequired is returned when a search provider is not provided.
	ErrProviderRequired = errors.New("search provider required")

	// ErrInvalidMaxResults is returned when the result bound is outside [MinResults, MaxResults].
	ErrInvalidMaxResults = errors.New("max results out of range")

	// ErrInvalidRateLimit is returned for a non-positive request rate or burst.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrRateLimited indicates the search service throttled the request.
	ErrRateLimited = fmt.Errorf("web search: %w", core.ErrRateLimited)

	// ErrSearchFailed indicates the search service answered with an error status.
	ErrSearchFailed = fmt.Errorf("web search: %w", core.ErrUnavailable)
)
