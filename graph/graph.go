package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/graphhelper/core"
	"github.com/poiesic/graphhelper/websearch"
)

const (
	DefaultRequestTimeout  = 120 * time.Second
	DefaultStepTimeout     = 20 * time.Second
	DefaultGenerateTimeout = 60 * time.Second
)

// InterruptedAnswer is the answer of a request that ended without one from
// the generator.
func InterruptedAnswer(kind core.ErrorKind) string {
	switch kind {
	case core.KindTimeout:
		return "Sorry, I could not produce an answer (request timed out)."
	case core.KindCancelled:
		return "Sorry, I could not produce an answer (request cancelled)."
	default:
		return "Sorry, I could not produce an answer."
	}
}

// Graph runs requests through classify, route, the optional web search,
// retrieve and generate. A Graph is immutable after construction and safe
// for concurrent use; each Run owns its own RequestState.
type Graph struct {
	classifier     Classifier
	webSearcher    WebSearcher
	retriever      Retriever
	generator      Generator
	requestTimeout time.Duration
	stepTimeouts   map[core.StepName]time.Duration
	monitor        Monitor
	logger         *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph) error

// WithWebSearch sets the web searcher used by online requests. Without one,
// online requests record a degraded web search step and continue.
func WithWebSearch(ws WebSearcher) Option {
	return func(g *Graph) error {
		g.webSearcher = ws
		return nil
	}
}

// WithRequestTimeout bounds a whole request.
// Default is DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(g *Graph) error {
		if d <= 0 {
			return fmt.Errorf("%w: request timeout %v", ErrInvalidTimeout, d)
		}
		g.requestTimeout = d
		return nil
	}
}

// WithStepTimeout bounds a single step. Defaults are DefaultGenerateTimeout
// for generate and DefaultStepTimeout for the others.
func WithStepTimeout(step core.StepName, d time.Duration) Option {
	return func(g *Graph) error {
		if d <= 0 {
			return fmt.Errorf("%w: %s timeout %v", ErrInvalidTimeout, step, d)
		}
		g.stepTimeouts[step] = d
		return nil
	}
}

// WithMonitor sets hooks observing every request.
func WithMonitor(m Monitor) Option {
	return func(g *Graph) error {
		if m == nil {
			m = &noopMonitor{}
		}
		g.monitor = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger.With("component", "graph")
		return nil
	}
}

// NewGraph creates a routing graph.
func NewGraph(classifier Classifier, retriever Retriever, generator Generator, opts ...Option) (*Graph, error) {
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	g := &Graph{
		classifier:     classifier,
		retriever:      retriever,
		generator:      generator,
		requestTimeout: DefaultRequestTimeout,
		stepTimeouts: map[core.StepName]time.Duration{
			core.StepClassify:  DefaultStepTimeout,
			core.StepWebSearch: DefaultStepTimeout,
			core.StepRetrieve:  DefaultStepTimeout,
			core.StepGenerate:  DefaultGenerateTimeout,
		},
		monitor: &noopMonitor{},
		logger:  slog.Default().With("component", "graph"),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Run answers query in mode. It always returns a result with a non-empty
// answer and one trace record per step that ran or was interrupted.
func (g *Graph) Run(ctx context.Context, query core.Query, mode core.Mode) *core.Result {
	rs := core.NewRequestState(uuid.NewString(), query, mode)
	logger := g.logger.With("request_id", rs.RequestID)

	ctx, cancel := context.WithTimeout(ctx, g.requestTimeout)
	defer cancel()

	g.monitor.Start(rs.RequestID, query, mode)
	logger.Debug("request started", "mode", mode)

	for state := Next(StateStart, rs); state != StateEnd; state = Next(state, rs) {
		if err := ctx.Err(); err != nil {
			g.interrupt(rs, state, err)
			break
		}
		if state == StateRoute {
			continue
		}
		g.runStep(ctx, state, rs)
	}

	if _, ok := rs.Answer(); !ok {
		// generator panicked or broke its contract with a blank answer
		_ = rs.SetAnswer(InterruptedAnswer(core.KindOf(ctx.Err())))
	}

	result := rs.Result()
	logger.Debug("request finished", "trace", result.Trace.String())
	g.monitor.Finish(result)
	return result
}

// runStep executes the step of state under its own timeout and records its
// outcome before returning.
func (g *Graph) runStep(ctx context.Context, state State, rs *core.RequestState) {
	step, _ := stepOf(state, rs)
	stepCtx, cancel := context.WithTimeout(ctx, g.stepTimeouts[step])
	defer cancel()

	g.monitor.StepStarted(rs.RequestID, step)
	start := time.Now()

	rec := g.execute(stepCtx, state, rs)
	if rec.Duration == 0 {
		rec.Duration = time.Since(start)
	}

	rs.Record(rec)
	g.monitor.StepFinished(rs.RequestID, rec)
	if rec.Outcome != core.OutcomeSuccess {
		g.logger.Warn("step did not succeed",
			"request_id", rs.RequestID,
			"step", rec.Step,
			"outcome", rec.Outcome,
			"kind", rec.Kind,
			"err", rec.Err)
	}
}

func (g *Graph) execute(ctx context.Context, state State, rs *core.RequestState) (record core.StepRecord) {
	step, _ := stepOf(state, rs)
	defer func() {
		if r := recover(); r != nil {
			record = core.Failed(step, fmt.Errorf("%w: %v", ErrStepPanicked, r), "panic")
			if state == StateClassify {
				g.setQueryType(rs, core.QueryTypeGeneral)
			}
		}
	}()

	switch state {
	case StateClassify:
		qt, rec := g.classifier.Classify(ctx, rs.Query)
		g.setQueryType(rs, qt)
		return rec

	case StateWebSearch:
		if g.webSearcher == nil {
			return core.Degraded(core.StepWebSearch,
				fmt.Errorf("%w: %w: %w", core.ErrWebSearchFailure, core.ErrUnavailable, ErrWebSearchNotConfigured),
				"no web searcher")
		}
		chunks, rec := g.webSearcher.Search(ctx, rs.Query, queryType(rs))
		rs.AppendEvidence(chunks...)
		return rec

	case StateRetrieve:
		supplementary := websearch.Digest(rs.Evidence())
		chunks, rec := g.retriever.Retrieve(ctx, rs.Query, queryType(rs), supplementary)
		rs.AppendEvidence(chunks...)
		return rec

	case StateGenerate:
		answer, rec := g.generator.Generate(ctx, rs.Query, core.MergeEvidence(rs.Evidence()))
		g.setAnswer(rs, answer)
		return rec
	}
	return core.Succeeded(step, "")
}

// interrupt records the step that state would have run as failed and sets
// the interrupted answer.
func (g *Graph) interrupt(rs *core.RequestState, state State, cause error) {
	step, ok := stepOf(state, rs)
	if !ok {
		return
	}
	rec := core.Failed(step, cause, "request stopped before step")
	rs.Record(rec)
	g.monitor.StepFinished(rs.RequestID, rec)
	g.setAnswer(rs, InterruptedAnswer(rec.Kind))
	g.logger.Info("request interrupted", "request_id", rs.RequestID, "step", step, "err", cause)
}

func (g *Graph) setQueryType(rs *core.RequestState, qt core.QueryType) {
	if err := rs.SetQueryType(qt); err != nil {
		g.logger.Error("query type already set", "request_id", rs.RequestID, "err", err)
	}
}

func (g *Graph) setAnswer(rs *core.RequestState, answer string) {
	if err := rs.SetAnswer(answer); err != nil {
		g.logger.Error("could not set answer", "request_id", rs.RequestID, "err", err)
	}
}

// queryType returns the classification, or general if classify never set one.
func queryType(rs *core.RequestState) core.QueryType {
	if qt, ok := rs.QueryType(); ok {
		return qt
	}
	return core.QueryTypeGeneral
}
