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


// Package ai provides abstractions for the model services used by graphhelper.
//
// This package defines interfaces for text embeddings and text completion so
// that the routing graph and its steps depend on abstractions rather than on
// a particular model server.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Completer: Turns a prompt into generated text
//   - AIProvider: Aggregates both services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs (OpenRouter, OpenAI, vLLM, Ollama /v1)
//   - ai/ollama: Ollama's native API
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewCompleter, etc.) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder,
// mock.NewMockCompleter) return CONCRETE types so tests can inject behavior
// and inspect calls.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//	completer := mock.NewMockCompleter("general") // returns *mock.MockCompleter
//
// # Failure Contract
//
// A Completer reports transport and provider failures as errors wrapping
// ErrProviderFailure, with the context error kept in the chain when the
// caller's deadline or cancellation caused the failure. Text that is
// well-formed but useless is not an error at this level; the caller decides.
//
// RetryWithBackoff is shared by the providers and the index builder.
package ai
