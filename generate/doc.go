// Package generate writes the final answer of a request.
//
// The prompt combines a fixed system instruction, the evidence rendered as
// numbered context entries, a bounded window of conversation history and
// the question. A failed or blank completion is replaced by a deterministic
// fallback so callers always receive an answer.
package generate
