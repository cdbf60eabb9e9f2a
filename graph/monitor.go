package graph

import "github.com/poiesic/graphhelper/core"

// Monitor provides hooks to observe a request moving through the graph.
// Hooks are called from the goroutine running the request.
type Monitor interface {
	Start(requestID string, query core.Query, mode core.Mode)
	StepStarted(requestID string, step core.StepName)
	StepFinished(requestID string, rec core.StepRecord)
	Finish(result *core.Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.Query, _ core.Mode) {}
func (n *noopMonitor) StepStarted(_ string, _ core.StepName)     {}
func (n *noopMonitor) StepFinished(_ string, _ core.StepRecord)  {}
func (n *noopMonitor) Finish(_ *core.Result)                     {}
