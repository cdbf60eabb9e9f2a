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


// Package openai implements the ai interfaces against OpenAI-compatible HTTP
// APIs: OpenRouter, OpenAI itself, vLLM, LocalAI, or Ollama's /v1 endpoint.
//
// Both services are thin wrappers over langchaingo's llms/openai client.
// The Completer retries failed calls with exponential backoff up to
// ai.Config.MaxRetries attempts and maps failures onto ai.ErrProviderFailure,
// keeping the context error in the chain when the caller's deadline was the
// cause. Rate-limit responses (HTTP 429) additionally wrap
// core.ErrRateLimited.
//
// Example:
//
//	cfg := ai.NewConfig(
//	    ai.WithPlatform(ai.PlatformOpenRouter),
//	    ai.WithAPIKey(os.Getenv("OPENROUTER_API_KEY")),
//	    ai.WithCompletionModel("openai/gpt-4o-mini"),
//	)
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
//	text, err := provider.Completer().Complete(ctx, prompt, cfg.CompletionDefaults())
package openai
