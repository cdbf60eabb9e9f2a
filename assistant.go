// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graphhelper answers LangGraph and LangChain questions from a local
// documentation index, optionally augmented by a live web search.
//
// An Assistant owns the index and the model provider and runs each question
// through a routing graph: classify, then retrieve (after a web search in
// online mode), then generate. Partial failures never fail a request; they
// show up in the result's step trace instead.
package graphhelper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/ai/ollama"
	"github.com/poiesic/graphhelper/ai/openai"
	"github.com/poiesic/graphhelper/classify"
	"github.com/poiesic/graphhelper/config"
	"github.com/poiesic/graphhelper/core"
	"github.com/poiesic/graphhelper/generate"
	"github.com/poiesic/graphhelper/graph"
	"github.com/poiesic/graphhelper/ingestion"
	"github.com/poiesic/graphhelper/retrieve"
	"github.com/poiesic/graphhelper/storage"
	"github.com/poiesic/graphhelper/storage/badger"
	"github.com/poiesic/graphhelper/websearch"
)

// Assistant owns the index, the model provider and the routing graph built
// over them.
type Assistant struct {
	config       *config.Config
	backend      *badger.Backend
	chunks       storage.ChunkRepository
	checkpoints  storage.CheckpointRepository
	provider     ai.AIProvider
	classifier   *classify.Classifier
	retriever    *retrieve.Retriever
	graph        *graph.Graph
	indexMissing bool
	writable     bool
	logger       *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*assistantOptions)

type assistantOptions struct {
	config      *config.Config
	provider    ai.AIProvider
	webProvider websearch.Provider
	monitor     graph.Monitor
	writable    bool
	inMemory    bool
	logger      *slog.Logger
}

// WithConfig sets the configuration. Default is config.Default().
func WithConfig(cfg *config.Config) AssistantOption {
	return func(o *assistantOptions) {
		o.config = cfg
	}
}

// WithProvider supplies a model provider instead of building one from the
// [llm] configuration. The Assistant closes it.
func WithProvider(p ai.AIProvider) AssistantOption {
	return func(o *assistantOptions) {
		o.provider = p
	}
}

// WithWebProvider replaces the DuckDuckGo web search provider.
func WithWebProvider(p websearch.Provider) AssistantOption {
	return func(o *assistantOptions) {
		o.webProvider = p
	}
}

// WithMonitor observes every request the Assistant runs.
func WithMonitor(m graph.Monitor) AssistantOption {
	return func(o *assistantOptions) {
		o.monitor = m
	}
}

// WithWritableIndex opens the index for writing, which NewPipeline needs.
// Only one process may hold a writable index.
func WithWritableIndex() AssistantOption {
	return func(o *assistantOptions) {
		o.writable = true
	}
}

// WithInMemoryIndex keeps the index in memory. Nothing touches disk.
func WithInMemoryIndex() AssistantOption {
	return func(o *assistantOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger for the Assistant and every component it builds.
func WithLogger(logger *slog.Logger) AssistantOption {
	return func(o *assistantOptions) {
		o.logger = logger
	}
}

// NewAssistant opens the index and wires the routing graph.
//
// The index is opened read-only unless WithWritableIndex is given. A missing
// index is not fatal: the Assistant logs a warning and answers from an empty
// in-memory index, so retrieval degrades instead of failing.
func NewAssistant(opts ...AssistantOption) (*Assistant, error) {
	options := &assistantOptions{
		config: config.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	cfg := options.config
	logger := options.logger

	backend, indexMissing, err := openIndex(cfg.Store.Path, options, logger)
	if err != nil {
		return nil, err
	}
	chunks := badger.NewChunkRepository(backend)
	checkpoints := badger.NewCheckpointRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = NewProvider(cfg.AIConfig())
		if err != nil {
			chunks.Close()
			backend.Close()
			return nil, err
		}
	}

	a := &Assistant{
		config:       cfg,
		backend:      backend,
		chunks:       chunks,
		checkpoints:  checkpoints,
		provider:     provider,
		indexMissing: indexMissing,
		writable:     options.writable || options.inMemory,
		logger:       logger.With("component", "assistant"),
	}
	if err := a.wire(options); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func openIndex(path string, options *assistantOptions, logger *slog.Logger) (*badger.Backend, bool, error) {
	if options.inMemory {
		backend, err := badger.OpenBackend("", true, badger.WithLogger(logger))
		return backend, false, err
	}

	var bopts []badger.BackendOption
	bopts = append(bopts, badger.WithLogger(logger))
	if !options.writable {
		bopts = append(bopts, badger.WithReadOnly())
	}
	backend, err := badger.OpenBackend(path, false, bopts...)
	if errors.Is(err, storage.ErrIndexMissing) {
		logger.Warn("no documentation index found, answers will not be grounded in local docs; run 'graphhelper index' first",
			"path", path)
		backend, err = badger.OpenBackend("", true, badger.WithLogger(logger))
		return backend, true, err
	}
	return backend, false, err
}

func (a *Assistant) wire(options *assistantOptions) error {
	cfg := a.config
	logger := options.logger

	store, err := retrieve.NewVectorStore(a.chunks, a.provider.Embedder())
	if err != nil {
		return err
	}
	a.retriever, err = retrieve.NewRetriever(store,
		retrieve.WithTopK(cfg.Retrieval.TopK),
		retrieve.WithMinScore(float32(cfg.Retrieval.MinScore)),
		retrieve.WithExpansion(cfg.Retrieval.Expansion),
		retrieve.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	a.classifier, err = classify.NewClassifier(a.provider.Completer(),
		classify.WithCache(cfg.Graph.ClassifierCache),
		classify.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	generator, err := generate.NewGenerator(a.provider.Completer(),
		generate.WithMaxHistoryTurns(cfg.Graph.MaxHistoryTurns),
		generate.WithCompletionOptions(cfg.AIConfig().CompletionDefaults()),
		generate.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	webProvider := options.webProvider
	if webProvider == nil {
		webProvider, err = websearch.NewDuckDuckGo(
			websearch.WithRegion(cfg.WebSearch.Region),
			websearch.WithRateLimit(cfg.WebSearch.RatePerSecond, 1),
			websearch.WithHTTPClient(newSearchClient(cfg.WebSearch.Timeout)),
			websearch.WithDuckDuckGoLogger(logger),
		)
		if err != nil {
			return err
		}
	}
	web, err := websearch.NewStep(webProvider,
		websearch.WithMaxResults(cfg.WebSearch.MaxResults),
		websearch.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	graphOpts := []graph.Option{
		graph.WithWebSearch(web),
		graph.WithRequestTimeout(cfg.Graph.RequestTimeout),
		graph.WithStepTimeout(core.StepClassify, cfg.Graph.StepTimeout),
		graph.WithStepTimeout(core.StepWebSearch, cfg.Graph.StepTimeout),
		graph.WithStepTimeout(core.StepRetrieve, cfg.Graph.StepTimeout),
		graph.WithStepTimeout(core.StepGenerate, cfg.Graph.GenerateTimeout),
		graph.WithLogger(logger),
	}
	if options.monitor != nil {
		graphOpts = append(graphOpts, graph.WithMonitor(options.monitor))
	}
	a.graph, err = graph.NewGraph(a.classifier, a.retriever, generator, graphOpts...)
	return err
}

func newSearchClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewProvider builds the model provider for cfg's platform.
func NewProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Platform == ai.PlatformOllama {
		return ollama.NewProvider(cfg)
	}
	return openai.NewProvider(cfg)
}

// Answer runs one request through the routing graph. The error is non-nil
// only for invalid input; every pipeline failure is reported in the
// result's trace and the answer is never empty.
func (a *Assistant) Answer(ctx context.Context, text string, mode core.Mode, history []core.Turn) (*core.Result, error) {
	if err := core.ValidateMode(mode); err != nil {
		return nil, err
	}
	query := core.NewQuery(text, history)
	if err := core.ValidateQuery(query); err != nil {
		return nil, err
	}
	return a.graph.Run(ctx, query, mode), nil
}

// AnswerBatch answers independent questions concurrently, one request per
// worker. Results are returned in input order. Invalid entries are reported
// in the joined error and leave a nil result.
func (a *Assistant) AnswerBatch(ctx context.Context, texts []string, mode core.Mode) ([]*core.Result, error) {
	if err := core.ValidateMode(mode); err != nil {
		return nil, err
	}

	workers := a.config.Graph.Workers
	if workers <= 0 {
		workers = max(runtime.NumCPU()/2, 1)
	}
	pool, err := ants.NewPool(min(workers, max(len(texts), 1)))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]*core.Result, len(texts))
	errs := make([]error, len(texts))
	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			result, err := a.Answer(ctx, text, mode, nil)
			if err != nil {
				errs[i] = fmt.Errorf("query %d: %w", i+1, err)
				return
			}
			results[i] = result
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("query %d: %w", i+1, err)
		}
	}
	wg.Wait()
	return results, errors.Join(errs...)
}

// Search runs local retrieval alone, without classification or generation.
func (a *Assistant) Search(ctx context.Context, text string, qt core.QueryType) ([]core.EvidenceChunk, core.StepRecord, error) {
	query := core.NewQuery(text, nil)
	if err := core.ValidateQuery(query); err != nil {
		return nil, core.StepRecord{}, err
	}
	chunks, record := a.retriever.Retrieve(ctx, query, qt, "")
	return chunks, record, nil
}

// IndexStats describes the documentation index.
type IndexStats struct {
	Path    string
	Missing bool
	Chunks  int
	Sources []*core.Checkpoint
}

// Empty reports whether the index holds no chunks.
func (s IndexStats) Empty() bool {
	return s.Chunks == 0
}

// IndexStats reports what the index holds.
func (a *Assistant) IndexStats(ctx context.Context) (IndexStats, error) {
	stats := IndexStats{Path: a.config.Store.Path, Missing: a.indexMissing}
	n, err := a.chunks.CountChunks(ctx)
	if err != nil {
		return stats, err
	}
	stats.Chunks = n
	stats.Sources, err = a.checkpoints.ListCheckpoints(ctx)
	return stats, err
}

// NewPipeline creates an index-building pipeline over the Assistant's index
// and embedder. The index must have been opened writable.
func (a *Assistant) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	if !a.writable || a.backend.ReadOnly() {
		return nil, fmt.Errorf("%w: open the index with WithWritableIndex", storage.ErrReadOnly)
	}
	defaults := []ingestion.Option{
		ingestion.WithChunking(a.config.Store.ChunkSize, a.config.Store.ChunkOverlap),
		ingestion.WithBatchSize(a.config.Store.BatchSize),
		ingestion.WithRetry(a.config.LLM.MaxRetries, ingestion.DefaultRetryBaseDelay),
		ingestion.WithLogger(a.logger),
	}
	if a.config.Store.Workers > 0 {
		defaults = append(defaults, ingestion.WithPoolSize(a.config.Store.Workers))
	}
	return ingestion.NewPipeline(a.chunks, a.checkpoints, a.provider.Embedder(), append(defaults, opts...)...)
}

// Config returns the configuration the Assistant was built with.
func (a *Assistant) Config() *config.Config {
	return a.config
}

// Close releases the provider, the classifier cache and the index.
func (a *Assistant) Close() error {
	if a.classifier != nil {
		a.classifier.Close()
	}

	if err := a.provider.Close(); err != nil {
		a.logger.Error("error closing AI provider", "err", err)
	}

	if err := a.chunks.Close(); err != nil {
		a.logger.Error("error closing chunk repository", "err", err)
		return err
	}

	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing index", "err", err)
		return err
	}
	return nil
}
