package core

import (
	"strings"
	"sync"
)

// RequestState is the mutable record of one request travelling through the
// routing graph. It is owned by exactly one request; the mutex only guards
// against a step leaking a goroutine that writes after its deadline.
type RequestState struct {
	RequestID string
	Query     Query
	Mode      Mode

	mu        sync.Mutex
	queryType *QueryType
	evidence  []EvidenceChunk
	answer    *string
	trace     Trace
}

// NewRequestState creates the state for a fresh request.
func NewRequestState(requestID string, query Query, mode Mode) *RequestState {
	return &RequestState{
		RequestID: requestID,
		Query:     query,
		Mode:      mode,
	}
}

// SetQueryType assigns the classification. It can only be called once.
func (s *RequestState) SetQueryType(qt QueryType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryType != nil {
		return ErrQueryTypeAlreadySet
	}
	s.queryType = &qt
	return nil
}

// QueryType returns the classification and whether it has been set.
func (s *RequestState) QueryType() (QueryType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryType == nil {
		return "", false
	}
	return *s.queryType, true
}

// AppendEvidence adds chunks after any evidence already gathered.
func (s *RequestState) AppendEvidence(chunks ...EvidenceChunk) {
	if len(chunks) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidence = append(s.evidence, chunks...)
}

// Evidence returns a copy of the gathered evidence.
func (s *RequestState) Evidence() []EvidenceChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EvidenceChunk, len(s.evidence))
	copy(out, s.evidence)
	return out
}

// SetAnswer stores the final answer. It can only be called once and the
// answer must not be blank.
func (s *RequestState) SetAnswer(answer string) error {
	if strings.TrimSpace(answer) == "" {
		return ErrEmptyAnswer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answer != nil {
		return ErrAnswerAlreadySet
	}
	s.answer = &answer
	return nil
}

// Answer returns the answer and whether it has been set.
func (s *RequestState) Answer() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answer == nil {
		return "", false
	}
	return *s.answer, true
}

// Record appends a step record to the trace.
func (s *RequestState) Record(r StepRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = append(s.trace, r)
}

// Trace returns a copy of the step trace.
func (s *RequestState) Trace() Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Trace, len(s.trace))
	copy(out, s.trace)
	return out
}

// Result snapshots the state into what the caller receives.
func (s *RequestState) Result() *Result {
	qt, _ := s.QueryType()
	answer, _ := s.Answer()
	return &Result{
		RequestID: s.RequestID,
		Answer:    answer,
		QueryType: qt,
		Mode:      s.Mode,
		Evidence:  MergeEvidence(s.Evidence()),
		Trace:     s.Trace(),
	}
}

// MergeEvidence orders evidence for the generator and the caller: local
// documentation first, in the order retrieval ranked it, then web results as
// a separate block in provider rank order.
func MergeEvidence(chunks []EvidenceChunk) []EvidenceChunk {
	merged := make([]EvidenceChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Provenance != ProvenanceWeb {
			merged = append(merged, c)
		}
	}
	for _, c := range chunks {
		if c.Provenance == ProvenanceWeb {
			merged = append(merged, c)
		}
	}
	return merged
}
