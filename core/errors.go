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

package core

import (
	"context"
	"errors"
)

// Step failures. Each one is recovered by the step that owns it; only
// ErrGenerationFailure ends a request early, and even then the caller
// receives a fallback answer.
var (
	// ErrClassificationFailure indicates the query could not be classified.
	ErrClassificationFailure = errors.New("classification failure")

	// ErrRetrievalFailure indicates the local evidence store was unavailable or empty.
	ErrRetrievalFailure = errors.New("retrieval failure")

	// ErrWebSearchFailure indicates the web search provider was unavailable, slow, or rate-limited.
	ErrWebSearchFailure = errors.New("web search failure")

	// ErrGenerationFailure indicates the answer could not be generated.
	ErrGenerationFailure = errors.New("generation failure")
)

// Failure causes. Collaborators wrap these so KindOf can name the failure
// class in the step trace.
var (
	// ErrUnavailable indicates an external service could not be reached or returned an error.
	ErrUnavailable = errors.New("service unavailable")

	// ErrRateLimited indicates an external service refused the call due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoResults indicates a search completed but found nothing usable.
	ErrNoResults = errors.New("no results")

	// ErrUnparseable indicates a response could not be mapped onto a known value.
	ErrUnparseable = errors.New("unparseable response")

	// ErrMalformedResponse indicates a response was empty or structurally invalid.
	ErrMalformedResponse = errors.New("malformed response")
)

// Validation and state errors.
var (
	// ErrEmptyQuery indicates the query text is empty.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidMode indicates an unknown Mode value.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidQueryType indicates an unknown QueryType value.
	ErrInvalidQueryType = errors.New("invalid query type")

	// ErrInvalidRole indicates an unknown Role value in history.
	ErrInvalidRole = errors.New("invalid role")

	// ErrQueryTypeAlreadySet indicates a second attempt to classify a request.
	ErrQueryTypeAlreadySet = errors.New("query type already set")

	// ErrAnswerAlreadySet indicates a second attempt to answer a request.
	ErrAnswerAlreadySet = errors.New("answer already set")

	// ErrEmptyAnswer indicates an attempt to store an empty answer.
	ErrEmptyAnswer = errors.New("answer cannot be empty")
)

// ErrorKind names the class of a recorded failure.
type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindTimeout     ErrorKind = "timeout"
	KindCancelled   ErrorKind = "cancelled"
	KindRateLimited ErrorKind = "rate_limited"
	KindUnavailable ErrorKind = "unavailable"
	KindEmpty       ErrorKind = "empty"
	KindUnparseable ErrorKind = "unparseable"
	KindMalformed   ErrorKind = "malformed"
)

// KindOf classifies err. Unknown errors are reported as unavailable.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrNoResults):
		return KindEmpty
	case errors.Is(err, ErrUnparseable):
		return KindUnparseable
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformed
	default:
		return KindUnavailable
	}
}
