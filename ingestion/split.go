package ingestion

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 2000
	DefaultChunkOverlap = 200
)

// markdownSeparators split on headers first, then paragraphs, lines,
// sentences and words.
var markdownSeparators = []string{"\n## ", "\n### ", "\n#### ", "\n\n", "\n", ". ", " ", ""}

// Splitter cuts documents into overlapping chunks.
type Splitter struct {
	splitter textsplitter.RecursiveCharacter
}

// NewSplitter creates a splitter producing chunks of at most size
// characters that overlap by overlap characters.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size %d overlap %d", ErrInvalidChunking, size, overlap)
	}
	return &Splitter{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(markdownSeparators),
			textsplitter.WithKeepSeparator(true),
		),
	}, nil
}

// Split returns the non-blank chunks of text in document order.
func (s *Splitter) Split(text string) ([]string, error) {
	parts, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	chunks := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks, nil
}
