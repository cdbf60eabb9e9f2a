// Package classify assigns a query type to each question so retrieval and
// web search can bias toward the matching documentation.
package classify
