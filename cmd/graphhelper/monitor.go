package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/graphhelper/core"
)

// traceMonitor prints each step as the graph runs it.
type traceMonitor struct {
	mu      sync.Mutex
	w       io.Writer
	started map[string]time.Time
}

func newTraceMonitor(w io.Writer) *traceMonitor {
	return &traceMonitor{w: w, started: make(map[string]time.Time)}
}

func (m *traceMonitor) Start(requestID string, query core.Query, mode core.Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[requestID] = time.Now()
	fmt.Fprintf(m.w, "[%s] %s request, %d history turns\n", short(requestID), mode, len(query.History))
}

func (m *traceMonitor) StepStarted(requestID string, step core.StepName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.w, "[%s]   %s...\n", short(requestID), step)
}

func (m *traceMonitor) StepFinished(requestID string, record core.StepRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	line := fmt.Sprintf("[%s]   %s (%s)", short(requestID), record, record.Duration.Round(time.Millisecond))
	if record.Detail != "" {
		line += ": " + record.Detail
	}
	fmt.Fprintln(m.w, line)
}

func (m *traceMonitor) Finish(result *core.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	elapsed := time.Since(m.started[result.RequestID]).Round(time.Millisecond)
	delete(m.started, result.RequestID)
	fmt.Fprintf(m.w, "[%s] done in %s, %d evidence chunks\n", short(result.RequestID), elapsed, len(result.Evidence))
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
