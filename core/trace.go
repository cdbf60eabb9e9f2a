package core

import (
	"fmt"
	"strings"
	"time"
)

// StepName identifies a node of the routing graph.
type StepName string

const (
	StepClassify  StepName = "classify"
	StepWebSearch StepName = "websearch"
	StepRetrieve  StepName = "retrieve"
	StepGenerate  StepName = "generate"
)

// Outcome is the result class of one step.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// StepRecord is one entry of the step trace.
type StepRecord struct {
	Step     StepName
	Outcome  Outcome
	Kind     ErrorKind // empty on success
	Err      error     // nil on success
	Detail   string
	Duration time.Duration
}

// Succeeded returns a success record for step.
func Succeeded(step StepName, detail string) StepRecord {
	return StepRecord{Step: step, Outcome: OutcomeSuccess, Detail: detail}
}

// Degraded returns a degraded record for step, classifying err.
func Degraded(step StepName, err error, detail string) StepRecord {
	return StepRecord{Step: step, Outcome: OutcomeDegraded, Kind: KindOf(err), Err: err, Detail: detail}
}

// Failed returns a failed record for step, classifying err.
func Failed(step StepName, err error, detail string) StepRecord {
	return StepRecord{Step: step, Outcome: OutcomeFailed, Kind: KindOf(err), Err: err, Detail: detail}
}

// String renders the record as "step:outcome" or "step:outcome(kind)".
func (r StepRecord) String() string {
	if r.Kind == KindNone {
		return fmt.Sprintf("%s:%s", r.Step, r.Outcome)
	}
	return fmt.Sprintf("%s:%s(%s)", r.Step, r.Outcome, r.Kind)
}

// Trace is the ordered log of the steps one request ran.
type Trace []StepRecord

// Steps returns the step names in execution order.
func (t Trace) Steps() []StepName {
	steps := make([]StepName, len(t))
	for i, r := range t {
		steps[i] = r.Step
	}
	return steps
}

// Summary returns "step:outcome" pairs in execution order, without kinds.
func (t Trace) Summary() []string {
	out := make([]string, len(t))
	for i, r := range t {
		out[i] = string(r.Step) + ":" + string(r.Outcome)
	}
	return out
}

// Find returns the first record for step.
func (t Trace) Find(step StepName) (StepRecord, bool) {
	for _, r := range t {
		if r.Step == step {
			return r, true
		}
	}
	return StepRecord{}, false
}

// Degraded reports whether any step did not succeed.
func (t Trace) Degraded() bool {
	for _, r := range t {
		if r.Outcome != OutcomeSuccess {
			return true
		}
	}
	return false
}

func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, r := range t {
		parts[i] = r.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
