package ingestion

import (
	"fmt"
	"strings"
)

// Source is one documentation file to index. Name becomes the chunk source
// identifier used for ranking and citation.
type Source struct {
	Name     string
	Location string // http(s) URL or local file path
}

// DefaultSources returns the LangGraph and LangChain llms.txt files.
func DefaultSources() []Source {
	return []Source{
		{Name: "langgraph", Location: "https://langchain-ai.github.io/langgraph/llms.txt"},
		{Name: "langgraph_full", Location: "https://langchain-ai.github.io/langgraph/llms-full.txt"},
		{Name: "langchain", Location: "https://docs.langchain.com/llms.txt"},
		{Name: "langchain_full", Location: "https://docs.langchain.com/llms-full.txt"},
	}
}

// ParseSource parses "name=location".
func ParseSource(spec string) (Source, error) {
	name, location, ok := strings.Cut(spec, "=")
	name, location = strings.TrimSpace(name), strings.TrimSpace(location)
	if !ok || name == "" || location == "" {
		return Source{}, fmt.Errorf("%w: %q, expected name=location", ErrInvalidSource, spec)
	}
	return Source{Name: name, Location: location}, nil
}
