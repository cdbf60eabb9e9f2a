package ingestion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Fetcher reads the raw text of a source location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (string, error)
}

// DefaultFetcher reads http(s) URLs with an HTTP client and anything else
// from the local filesystem.
type DefaultFetcher struct {
	client *http.Client
}

var _ Fetcher = (*DefaultFetcher)(nil)

// NewDefaultFetcher creates a fetcher. A nil client gets a 60 second timeout.
func NewDefaultFetcher(client *http.Client) *DefaultFetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &DefaultFetcher{client: client}
}

// Fetch returns the content at location.
func (f *DefaultFetcher) Fetch(ctx context.Context, location string) (string, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		data, err := os.ReadFile(location)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
		return string(data), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned status %d", ErrFetchFailed, location, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return string(data), nil
}
