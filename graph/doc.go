// Package graph drives a request through the routing state machine.
//
// The graph is a small enumeration of states with a pure transition
// function, Next. Run walks it strictly sequentially, giving every step its
// own timeout derived from the request deadline and recording one trace
// entry per step. Classification, web search and retrieval failures degrade
// the request; a generation failure still yields the generator's fallback
// answer. A cancelled or expired request stops before its next state with
// an interrupted answer.
package graph
