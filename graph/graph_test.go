package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/ai/mock"
	"github.com/poiesic/graphhelper/classify"
	"github.com/poiesic/graphhelper/core"
	"github.com/poiesic/graphhelper/generate"
	"github.com/poiesic/graphhelper/retrieve"
	"github.com/poiesic/graphhelper/websearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classifyMarker = "Classify the following question"

// fakeStore is an evidence store returning fixed hits and recording queries.
type fakeStore struct {
	mu      sync.Mutex
	hits    []retrieve.Hit
	queries []string
}

func (f *fakeStore) Search(ctx context.Context, text string, k int) ([]retrieve.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	if len(f.hits) > k {
		return f.hits[:k], nil
	}
	return f.hits, nil
}

type fakeProvider struct {
	results []websearch.Result
	err     error
}

func (f *fakeProvider) Search(ctx context.Context, text string, n int) ([]websearch.Result, error) {
	return f.results, f.err
}

// llm answers classification prompts with label and everything else with answer.
func llm(label, answer string) *mock.MockCompleter {
	return mock.NewMockCompleter("").WithCompleteFunc(func(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error) {
		if strings.Contains(prompt, classifyMarker) {
			return label, nil
		}
		return answer, nil
	})
}

func generationPrompts(c *mock.MockCompleter) []string {
	var out []string
	for _, p := range c.Prompts() {
		if !strings.Contains(p, classifyMarker) {
			out = append(out, p)
		}
	}
	return out
}

type fixture struct {
	completer *mock.MockCompleter
	store     *fakeStore
	provider  *fakeProvider
	graph     *Graph
}

func newFixture(t *testing.T, completer *mock.MockCompleter, hits []retrieve.Hit, provider *fakeProvider, opts ...Option) *fixture {
	t.Helper()
	store := &fakeStore{hits: hits}

	classifier, err := classify.NewClassifier(completer, classify.WithCache(0))
	require.NoError(t, err)
	retriever, err := retrieve.NewRetriever(store)
	require.NoError(t, err)
	generator, err := generate.NewGenerator(completer)
	require.NoError(t, err)

	if provider != nil {
		step, err := websearch.NewStep(provider)
		require.NoError(t, err)
		opts = append([]Option{WithWebSearch(step)}, opts...)
	}

	g, err := NewGraph(classifier, retriever, generator, opts...)
	require.NoError(t, err)
	return &fixture{completer: completer, store: store, provider: provider, graph: g}
}

func checkpointerHits() []retrieve.Hit {
	return []retrieve.Hit{
		{ID: 1, Text: "Use MemorySaver as a checkpointer.", Source: "langgraph_full", Score: 0.91},
		{ID: 2, Text: "graph = builder.compile(checkpointer=checkpointer)", Source: "langgraph_full", Score: 0.88},
		{ID: 3, Text: "SqliteSaver persists checkpoints to disk.", Source: "langgraph", Score: 0.80},
	}
}

func TestNewGraph(t *testing.T) {
	completer := mock.NewMockCompleter("general")
	classifier, _ := classify.NewClassifier(completer)
	retriever, _ := retrieve.NewRetriever(&fakeStore{})
	generator, _ := generate.NewGenerator(completer)

	_, err := NewGraph(nil, retriever, generator)
	assert.Equal(t, ErrClassifierRequired, err)
	_, err = NewGraph(classifier, nil, generator)
	assert.Equal(t, ErrRetrieverRequired, err)
	_, err = NewGraph(classifier, retriever, nil)
	assert.Equal(t, ErrGeneratorRequired, err)

	_, err = NewGraph(classifier, retriever, generator, WithRequestTimeout(0))
	assert.ErrorIs(t, err, ErrInvalidTimeout)
	_, err = NewGraph(classifier, retriever, generator, WithStepTimeout(core.StepGenerate, -time.Second))
	assert.ErrorIs(t, err, ErrInvalidTimeout)

	g, err := NewGraph(classifier, retriever, generator, WithMonitor(nil), WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultGenerateTimeout, g.stepTimeouts[core.StepGenerate])
	assert.Equal(t, DefaultStepTimeout, g.stepTimeouts[core.StepClassify])
}

func TestRun_OfflinePersistenceScenario(t *testing.T) {
	f := newFixture(t, llm("graph_framework", "Compile the graph with a checkpointer."), checkpointerHits(), nil)

	result := f.graph.Run(context.Background(),
		core.NewQuery("How do I add persistence to a LangGraph agent?", nil), core.ModeOffline)

	assert.Equal(t, []string{"classify:success", "retrieve:success", "generate:success"}, result.Trace.Summary())
	assert.Equal(t, "Compile the graph with a checkpointer.", result.Answer)
	assert.Equal(t, core.QueryTypeGraphFramework, result.QueryType)
	assert.NotEmpty(t, result.RequestID)

	require.Len(t, result.Evidence, 3)
	for _, c := range result.Evidence {
		assert.Equal(t, core.ProvenanceLocalDoc, c.Provenance)
	}

	prompts := generationPrompts(f.completer)
	require.Len(t, prompts, 1)
	for _, h := range checkpointerHits() {
		assert.Contains(t, prompts[0], h.Text)
	}
	assert.Contains(t, prompts[0], "[3] (local_doc)")
	assert.NotContains(t, prompts[0], "[4]")
	assert.NotContains(t, prompts[0], "## Web Search Results")
}

func TestRun_OnlineWebSearchTimeout(t *testing.T) {
	provider := &fakeProvider{err: context.DeadlineExceeded}
	f := newFixture(t, llm("graph_framework", "Here is how."), checkpointerHits(), provider)

	result := f.graph.Run(context.Background(), core.NewQuery("add memory", nil), core.ModeOnline)

	assert.Equal(t, []string{"classify:success", "websearch:degraded", "retrieve:success", "generate:success"}, result.Trace.Summary())
	rec, ok := result.Trace.Find(core.StepWebSearch)
	require.True(t, ok)
	assert.Equal(t, core.KindTimeout, rec.Kind)

	// Retrieval ran on the bare query: no web digest was appended.
	for _, q := range f.store.queries {
		assert.NotContains(t, q, "\n\n")
	}
	assert.Contains(t, f.store.queries, "add memory")
	assert.Equal(t, "Here is how.", result.Answer)
}

func TestRun_OnlineMergesWebEvidence(t *testing.T) {
	provider := &fakeProvider{results: []websearch.Result{
		{Title: "Persistence", Snippet: "LangGraph has built-in persistence.", URL: "https://example.com/p"},
	}}
	f := newFixture(t, llm("graph_framework", "ok"), checkpointerHits(), provider)

	result := f.graph.Run(context.Background(), core.NewQuery("persistence", nil), core.ModeOnline)

	assert.Equal(t, []string{"classify:success", "websearch:success", "retrieve:success", "generate:success"}, result.Trace.Summary())
	require.Len(t, result.Evidence, 4)
	for _, c := range result.Evidence[:3] {
		assert.Equal(t, core.ProvenanceLocalDoc, c.Provenance)
	}
	assert.Equal(t, core.ProvenanceWeb, result.Evidence[3].Provenance)

	assert.Equal(t, "persistence\n\n**Persistence**\nLangGraph has built-in persistence.\nSource: https://example.com/p", f.store.queries[0])

	prompt := generationPrompts(f.completer)[0]
	assert.Less(t, strings.Index(prompt, "## Documentation"), strings.Index(prompt, "## Web Search Results"))
}

func TestRun_OfflineNoEvidenceDoesNotClaimDocs(t *testing.T) {
	f := newFixture(t, llm("general", "Generally speaking..."), nil, nil)

	result := f.graph.Run(context.Background(), core.NewQuery("What is a vector?", nil), core.ModeOffline)

	assert.Equal(t, []string{"classify:success", "retrieve:degraded", "generate:success"}, result.Trace.Summary())
	assert.Empty(t, result.Evidence)
	assert.True(t, strings.HasPrefix(result.Answer, generate.NoDocumentationNotice))

	prompt := generationPrompts(f.completer)[0]
	assert.Contains(t, prompt, generate.NoDocumentationMarker)
	assert.NotContains(t, prompt, "[1]")
}

func TestRun_CodeExampleRespectsTopKAndFloor(t *testing.T) {
	var hits []retrieve.Hit
	for i := 1; i <= 20; i++ {
		hits = append(hits, retrieve.Hit{
			ID:     core.ID(i),
			Text:   fmt.Sprintf("chunk %d", i),
			Source: "langgraph",
			Score:  float32(i) / 20,
		})
	}
	f := newFixture(t, llm("code_example", "def f(): ..."), hits, nil)

	result := f.graph.Run(context.Background(), core.NewQuery("show code", nil), core.ModeOffline)

	assert.Equal(t, core.QueryTypeCodeExample, result.QueryType)
	assert.LessOrEqual(t, len(result.Evidence), retrieve.DefaultTopK)
	for _, c := range result.Evidence {
		assert.GreaterOrEqual(t, c.Score, retrieve.DefaultMinScore)
	}
}

func TestRun_ClassificationIsIdempotent(t *testing.T) {
	f := newFixture(t, llm("chain_framework", "answer"), checkpointerHits(), nil)
	q := core.NewQuery("How do LCEL chains work?", nil)

	first := f.graph.Run(context.Background(), q, core.ModeOffline)
	for range 5 {
		again := f.graph.Run(context.Background(), q, core.ModeOffline)
		assert.Equal(t, first.QueryType, again.QueryType)
	}
}

func TestRun_ClassifierFailureContinues(t *testing.T) {
	completer := mock.NewMockCompleter("").WithCompleteFunc(func(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error) {
		if strings.Contains(prompt, classifyMarker) {
			return "", fmt.Errorf("%w: refused", ai.ErrProviderFailure)
		}
		return "answer", nil
	})
	f := newFixture(t, completer, checkpointerHits(), nil)

	result := f.graph.Run(context.Background(), core.NewQuery("q", nil), core.ModeOffline)

	assert.Equal(t, core.QueryTypeGeneral, result.QueryType)
	assert.Equal(t, []string{"classify:failed", "retrieve:success", "generate:success"}, result.Trace.Summary())
	assert.Equal(t, "answer", result.Answer)
}

func TestRun_GenerationFailureReturnsFallback(t *testing.T) {
	completer := mock.NewMockCompleter("").WithCompleteFunc(func(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error) {
		if strings.Contains(prompt, classifyMarker) {
			return "general", nil
		}
		return "", fmt.Errorf("%w: boom", ai.ErrProviderFailure)
	})
	f := newFixture(t, completer, checkpointerHits(), nil)

	result := f.graph.Run(context.Background(), core.NewQuery("q", nil), core.ModeOffline)

	assert.Equal(t, generate.FallbackAnswer(core.KindUnavailable), result.Answer)
	rec, ok := result.Trace.Find(core.StepGenerate)
	require.True(t, ok)
	assert.Equal(t, core.OutcomeFailed, rec.Outcome)
	assert.ErrorIs(t, rec.Err, core.ErrGenerationFailure)
}

func TestRun_StepTimeout(t *testing.T) {
	completer := mock.NewMockCompleter("").WithCompleteFunc(func(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error) {
		if strings.Contains(prompt, classifyMarker) {
			return "general", nil
		}
		<-ctx.Done()
		return "", ctx.Err()
	})
	f := newFixture(t, completer, checkpointerHits(), nil, WithStepTimeout(core.StepGenerate, 30*time.Millisecond))

	start := time.Now()
	result := f.graph.Run(context.Background(), core.NewQuery("q", nil), core.ModeOffline)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, generate.FallbackAnswer(core.KindTimeout), result.Answer)
	assert.Equal(t, "[classify:success, retrieve:success, generate:failed(timeout)]", result.Trace.String())
}

func TestRun_RequestTimeout(t *testing.T) {
	completer := mock.NewMockCompleter("").WithCompleteFunc(func(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	f := newFixture(t, completer, checkpointerHits(), nil, WithRequestTimeout(30*time.Millisecond))

	start := time.Now()
	result := f.graph.Run(context.Background(), core.NewQuery("q", nil), core.ModeOffline)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, "[classify:failed(timeout), retrieve:failed(timeout)]", result.Trace.String())
	assert.Equal(t, InterruptedAnswer(core.KindTimeout), result.Answer)
	assert.Equal(t, 1, completer.CallCount())
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	f := newFixture(t, llm("general", "answer"), checkpointerHits(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.graph.Run(ctx, core.NewQuery("q", nil), core.ModeOffline)

	assert.Equal(t, "[classify:failed(cancelled)]", result.Trace.String())
	assert.Equal(t, "Sorry, I could not produce an answer (request cancelled).", result.Answer)
	assert.Zero(t, f.completer.CallCount())
}

// cancellingRetriever cancels the request while retrieval runs.
type cancellingRetriever struct {
	cancel context.CancelFunc
}

func (c *cancellingRetriever) Retrieve(ctx context.Context, query core.Query, qt core.QueryType, supplementary string) ([]core.EvidenceChunk, core.StepRecord) {
	c.cancel()
	return nil, core.Succeeded(core.StepRetrieve, "")
}

func TestRun_CancelledMidRequest(t *testing.T) {
	completer := llm("general", "answer")
	classifier, err := classify.NewClassifier(completer)
	require.NoError(t, err)
	generator, err := generate.NewGenerator(completer)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, err := NewGraph(classifier, &cancellingRetriever{cancel: cancel}, generator)
	require.NoError(t, err)

	result := g.Run(ctx, core.NewQuery("q", nil), core.ModeOffline)

	assert.Equal(t, "[classify:success, retrieve:success, generate:failed(cancelled)]", result.Trace.String())
	assert.Equal(t, InterruptedAnswer(core.KindCancelled), result.Answer)
	assert.Len(t, generationPrompts(completer), 0)
}

func TestRun_OnlineWithoutWebSearcher(t *testing.T) {
	f := newFixture(t, llm("general", "answer"), checkpointerHits(), nil)

	result := f.graph.Run(context.Background(), core.NewQuery("q", nil), core.ModeOnline)

	assert.Equal(t, "[classify:success, websearch:degraded(unavailable), retrieve:success, generate:success]", result.Trace.String())
	rec, _ := result.Trace.Find(core.StepWebSearch)
	assert.ErrorIs(t, rec.Err, ErrWebSearchNotConfigured)
}

type panickingClassifier struct{}

func (panickingClassifier) Classify(ctx context.Context, query core.Query) (core.QueryType, core.StepRecord) {
	panic("classifier bug")
}

func TestRun_PanickingStepIsRecorded(t *testing.T) {
	completer := llm("general", "answer")
	retriever, err := retrieve.NewRetriever(&fakeStore{hits: checkpointerHits()})
	require.NoError(t, err)
	generator, err := generate.NewGenerator(completer)
	require.NoError(t, err)

	g, err := NewGraph(panickingClassifier{}, retriever, generator)
	require.NoError(t, err)

	result := g.Run(context.Background(), core.NewQuery("q", nil), core.ModeOffline)

	assert.Equal(t, []string{"classify:failed", "retrieve:success", "generate:success"}, result.Trace.Summary())
	assert.Equal(t, core.QueryTypeGeneral, result.QueryType)
	rec, _ := result.Trace.Find(core.StepClassify)
	assert.ErrorIs(t, rec.Err, ErrStepPanicked)
}

type recordingMonitor struct {
	mu       sync.Mutex
	events   []string
	finished *core.Result
}

func (m *recordingMonitor) Start(id string, q core.Query, mode core.Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, "start:"+string(mode))
}

func (m *recordingMonitor) StepStarted(id string, step core.StepName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, "begin:"+string(step))
}

func (m *recordingMonitor) StepFinished(id string, rec core.StepRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, "end:"+rec.String())
}

func (m *recordingMonitor) Finish(result *core.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, "finish")
	m.finished = result
}

func TestRun_Monitor(t *testing.T) {
	monitor := &recordingMonitor{}
	f := newFixture(t, llm("general", "answer"), checkpointerHits(), nil, WithMonitor(monitor))

	result := f.graph.Run(context.Background(), core.NewQuery("q", nil), core.ModeOffline)

	assert.Equal(t, []string{
		"start:offline",
		"begin:classify", "end:classify:success",
		"begin:retrieve", "end:retrieve:success",
		"begin:generate", "end:generate:success",
		"finish",
	}, monitor.events)
	assert.Same(t, result, monitor.finished)
}

func TestRun_ConcurrentRequestsAreIndependent(t *testing.T) {
	f := newFixture(t, llm("general", "answer"), checkpointerHits(), nil)

	const n = 16
	results := make([]*core.Result, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mode := core.ModeOffline
			if i%2 == 0 {
				mode = core.ModeOnline
			}
			results[i] = f.graph.Run(context.Background(), core.NewQuery(fmt.Sprintf("q%d", i), nil), mode)
		}()
	}
	wg.Wait()

	ids := make(map[string]bool)
	for i, r := range results {
		assert.False(t, ids[r.RequestID], "request IDs are unique")
		ids[r.RequestID] = true
		assert.Equal(t, "answer", r.Answer)
		if i%2 == 0 {
			assert.Len(t, r.Trace, 4)
		} else {
			assert.Len(t, r.Trace, 3)
		}
	}
}
