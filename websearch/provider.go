package websearch

import "context"

// Result is a single hit returned by a search provider, in provider rank order.
type Result struct {
	Title   string
	Snippet string
	URL     string
}

// Provider runs a web search.
type Provider interface {
	// Search returns at most n results for text, best first.
	Search(ctx context.Context, text string, n int) ([]Result, error)
}
