package graph

import "github.com/poiesic/graphhelper/core"

// State is a node of the routing graph.
type State int

const (
	StateStart State = iota
	StateClassify
	StateRoute
	StateWebSearch
	StateRetrieve
	StateGenerate
	StateEnd
)

var stateNames = [...]string{"start", "classify", "route", "websearch", "retrieve", "generate", "end"}

func (s State) String() string {
	if s < StateStart || s > StateEnd {
		return "unknown"
	}
	return stateNames[s]
}

// Next returns the state that follows s. Routing only looks at the mode
// fixed when the request started; step outcomes never change the path.
func Next(s State, rs *core.RequestState) State {
	switch s {
	case StateStart:
		return StateClassify
	case StateClassify:
		return StateRoute
	case StateRoute:
		if rs.Mode == core.ModeOnline {
			return StateWebSearch
		}
		return StateRetrieve
	case StateWebSearch:
		return StateRetrieve
	case StateRetrieve:
		return StateGenerate
	default:
		return StateEnd
	}
}

// stepOf names the step a state runs. Route runs no step of its own and is
// attributed to the step it routes to.
func stepOf(s State, rs *core.RequestState) (core.StepName, bool) {
	switch s {
	case StateClassify:
		return core.StepClassify, true
	case StateRoute:
		return stepOf(Next(s, rs), rs)
	case StateWebSearch:
		return core.StepWebSearch, true
	case StateRetrieve:
		return core.StepRetrieve, true
	case StateGenerate:
		return core.StepGenerate, true
	default:
		return "", false
	}
}
