package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestState_QueryTypeSetOnce(t *testing.T) {
	s := NewRequestState("r1", NewQuery("q", nil), ModeOffline)

	_, ok := s.QueryType()
	assert.False(t, ok)

	require.NoError(t, s.SetQueryType(QueryTypeCodeExample))
	err := s.SetQueryType(QueryTypeGeneral)
	assert.ErrorIs(t, err, ErrQueryTypeAlreadySet)

	qt, ok := s.QueryType()
	assert.True(t, ok)
	assert.Equal(t, QueryTypeCodeExample, qt)
}

func TestRequestState_AnswerSetOnce(t *testing.T) {
	s := NewRequestState("r1", NewQuery("q", nil), ModeOffline)

	assert.ErrorIs(t, s.SetAnswer("   "), ErrEmptyAnswer)
	require.NoError(t, s.SetAnswer("first"))
	assert.ErrorIs(t, s.SetAnswer("second"), ErrAnswerAlreadySet)

	answer, ok := s.Answer()
	assert.True(t, ok)
	assert.Equal(t, "first", answer)
}

func TestRequestState_EvidenceAppendOnly(t *testing.T) {
	s := NewRequestState("r1", NewQuery("q", nil), ModeOnline)
	s.AppendEvidence(EvidenceChunk{ID: 1, Provenance: ProvenanceWeb})
	s.AppendEvidence()
	s.AppendEvidence(EvidenceChunk{ID: 2, Provenance: ProvenanceLocalDoc}, EvidenceChunk{ID: 3, Provenance: ProvenanceLocalDoc})

	ev := s.Evidence()
	require.Len(t, ev, 3)
	assert.Equal(t, ID(1), ev[0].ID)
	assert.Equal(t, ID(3), ev[2].ID)

	// Mutating the returned copy does not touch the state.
	ev[0].ID = 99
	assert.Equal(t, ID(1), s.Evidence()[0].ID)
}

func TestRequestState_Result(t *testing.T) {
	s := NewRequestState("r1", NewQuery("q", nil), ModeOffline)
	require.NoError(t, s.SetQueryType(QueryTypeGraphFramework))
	s.Record(Succeeded(StepClassify, ""))
	s.Record(Degraded(StepRetrieve, ErrNoResults, ""))
	require.NoError(t, s.SetAnswer("answer"))

	res := s.Result()
	assert.Equal(t, "r1", res.RequestID)
	assert.Equal(t, "answer", res.Answer)
	assert.Equal(t, QueryTypeGraphFramework, res.QueryType)
	assert.Equal(t, ModeOffline, res.Mode)
	assert.Equal(t, "[classify:success, retrieve:degraded(empty)]", res.Trace.String())
}

func TestMergeEvidence(t *testing.T) {
	in := []EvidenceChunk{
		{ID: 10, Provenance: ProvenanceWeb},
		{ID: 11, Provenance: ProvenanceWeb},
		{ID: 1, Provenance: ProvenanceLocalDoc, Score: 0.9},
		{ID: 2, Provenance: ProvenanceLocalDoc, Score: 0.5},
	}
	merged := MergeEvidence(in)

	ids := make([]ID, len(merged))
	for i, c := range merged {
		ids[i] = c.ID
	}
	assert.Equal(t, []ID{1, 2, 10, 11}, ids)
	assert.Empty(t, MergeEvidence(nil))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout},
		{"cancelled", context.Canceled, KindCancelled},
		{"rate limited", fmt.Errorf("%w: %w", ErrWebSearchFailure, ErrRateLimited), KindRateLimited},
		{"no results", fmt.Errorf("%w: %w", ErrRetrievalFailure, ErrNoResults), KindEmpty},
		{"unparseable", ErrUnparseable, KindUnparseable},
		{"malformed", fmt.Errorf("wrapped: %w", ErrMalformedResponse), KindMalformed},
		{"unknown", errors.New("boom"), KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestTrace(t *testing.T) {
	tr := Trace{
		Succeeded(StepClassify, ""),
		Degraded(StepWebSearch, ErrRateLimited, ""),
		Succeeded(StepRetrieve, ""),
		Failed(StepGenerate, context.DeadlineExceeded, ""),
	}

	assert.Equal(t, []StepName{StepClassify, StepWebSearch, StepRetrieve, StepGenerate}, tr.Steps())
	assert.Equal(t, []string{"classify:success", "websearch:degraded", "retrieve:success", "generate:failed"}, tr.Summary())
	assert.Equal(t, "[classify:success, websearch:degraded(rate_limited), retrieve:success, generate:failed(timeout)]", tr.String())
	assert.True(t, tr.Degraded())

	rec, ok := tr.Find(StepGenerate)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, rec.Kind)

	_, ok = tr.Find("missing")
	assert.False(t, ok)
	assert.False(t, Trace{Succeeded(StepClassify, "")}.Degraded())
}

func TestIDFromContent(t *testing.T) {
	assert.Equal(t, IDFromContent("abc"), IDFromContent("abc"))
	assert.NotEqual(t, IDFromContent("abc"), IDFromContent("abd"))
}
