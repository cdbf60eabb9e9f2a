package graph

import (
	"context"

	"github.com/poiesic/graphhelper/core"
)

// Classifier assigns a query type. It never fails: problems are reported in
// the returned record and the type falls back to a default.
type Classifier interface {
	Classify(ctx context.Context, query core.Query) (core.QueryType, core.StepRecord)
}

// WebSearcher gathers web evidence for the online branch.
type WebSearcher interface {
	Search(ctx context.Context, query core.Query, qt core.QueryType) ([]core.EvidenceChunk, core.StepRecord)
}

// Retriever gathers local documentation evidence.
type Retriever interface {
	Retrieve(ctx context.Context, query core.Query, qt core.QueryType, supplementary string) ([]core.EvidenceChunk, core.StepRecord)
}

// Generator writes the answer. It always returns a non-empty answer, even
// when the record is failed.
type Generator interface {
	Generate(ctx context.Context, query core.Query, evidence []core.EvidenceChunk) (string, core.StepRecord)
}
