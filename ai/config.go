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

package ai

import (
	"fmt"
	"strings"
	"time"
)

// Platform names the backend that serves completions.
type Platform string

const (
	// PlatformOllama talks to a local Ollama server through its native API.
	PlatformOllama Platform = "ollama"
	// PlatformOpenRouter talks to OpenRouter's OpenAI-compatible API.
	PlatformOpenRouter Platform = "openrouter"
	// PlatformOpenAI talks to any other OpenAI-compatible server.
	PlatformOpenAI Platform = "openai"
)

const (
	// DefaultOllamaHost is where a local Ollama server listens.
	DefaultOllamaHost = "http://localhost:11434"
	// DefaultOpenRouterHost is OpenRouter's API base URL.
	DefaultOpenRouterHost = "https://openrouter.ai/api/v1"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Platform selects the completion backend.
	// Default: ollama
	Platform Platform

	// CompletionHost is the base URL for the completion API.
	CompletionHost string

	// EmbeddingHost is the base URL for the embedding API.
	// OpenRouter serves no embeddings, so this usually points at a local
	// Ollama even when completions go to the cloud.
	EmbeddingHost string

	// CompletionModel is the model identifier used for classification and answers.
	// Example: "llama3.2", "openai/gpt-4o-mini"
	CompletionModel string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "snowflake-arctic-embed2", "text-embedding-3-small"
	EmbeddingModel string

	// APIKey authenticates against the completion host. Required for openrouter.
	APIKey string

	// Temperature is the default sampling temperature, between 0 and 1.
	// Default: 0.7
	Temperature float64

	// MaxTokens is the default response length bound.
	// Default: 1000
	MaxTokens int

	// Timeout bounds one HTTP round trip to the backend.
	// Default: 60s for ollama, 30s otherwise
	Timeout time.Duration

	// MaxRetries is how many times a failed call is attempted in total.
	// Default: 3
	MaxRetries int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithPlatform selects the completion backend. Hosts and timeout still at
// their defaults follow the platform.
func WithPlatform(p Platform) ConfigOption {
	return func(c *Config) {
		if c.CompletionHost == DefaultOllamaHost || c.CompletionHost == DefaultOpenRouterHost {
			c.CompletionHost = defaultHost(p)
		}
		if c.Timeout == defaultTimeout(c.Platform) {
			c.Timeout = defaultTimeout(p)
		}
		c.Platform = p
	}
}

// WithCompletionHost sets the completion service host URL.
func WithCompletionHost(host string) ConfigOption {
	return func(c *Config) {
		c.CompletionHost = host
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithHost sets both completion and embedding hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.CompletionHost = host
		c.EmbeddingHost = host
	}
}

// WithCompletionModel sets the completion model identifier.
func WithCompletionModel(model string) ConfigOption {
	return func(c *Config) {
		c.CompletionModel = model
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIKey sets the key sent to the completion host.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxTokens sets the default response length bound.
func WithMaxTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithMaxRetries sets the total number of attempts per call.
func WithMaxRetries(n int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

func defaultHost(p Platform) string {
	if p == PlatformOllama {
		return DefaultOllamaHost
	}
	return DefaultOpenRouterHost
}

func defaultTimeout(p Platform) time.Duration {
	if p == PlatformOllama {
		return 60 * time.Second
	}
	return 30 * time.Second
}

// DefaultConfig returns a Config for a local Ollama server serving both
// completions and embeddings.
func DefaultConfig() *Config {
	return &Config{
		Platform:        PlatformOllama,
		CompletionHost:  DefaultOllamaHost,
		EmbeddingHost:   DefaultOllamaHost,
		CompletionModel: "llama3.2",
		EmbeddingModel:  "snowflake-arctic-embed2",
		Temperature:     0.7,
		MaxTokens:       1000,
		Timeout:         defaultTimeout(PlatformOllama),
		MaxRetries:      3,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithPlatform(PlatformOpenRouter),
//	    WithAPIKey(os.Getenv("OPENROUTER_API_KEY")),
//	    WithCompletionModel("openai/gpt-4o-mini"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize puts hosts in the form each client expects. OpenAI-compatible
// hosts get a /v1 suffix; the native Ollama client wants the bare server URL.
// Embeddings are served by Ollama's native API whenever the platform is
// ollama, and by its OpenAI-compatible endpoint otherwise.
func (c *Config) Normalize() {
	c.Platform = Platform(strings.ToLower(strings.TrimSpace(string(c.Platform))))
	if c.Platform == PlatformOllama {
		c.CompletionHost = bareHost(c.CompletionHost)
		c.EmbeddingHost = bareHost(c.EmbeddingHost)
		return
	}
	c.CompletionHost = v1Host(c.CompletionHost)
	c.EmbeddingHost = v1Host(c.EmbeddingHost)
}

func bareHost(host string) string {
	host = strings.TrimSuffix(host, "/")
	host = strings.TrimSuffix(host, "/v1")
	return host
}

func v1Host(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Platform {
	case PlatformOllama, PlatformOpenAI:
	case PlatformOpenRouter:
		if c.APIKey == "" {
			return fmt.Errorf("%w: APIKey is required for openrouter", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedPlatform, string(c.Platform))
	}
	if c.CompletionHost == "" {
		return fmt.Errorf("%w: CompletionHost is required", ErrInvalidConfig)
	}
	if c.EmbeddingHost == "" {
		return fmt.Errorf("%w: EmbeddingHost is required", ErrInvalidConfig)
	}
	if c.CompletionModel == "" {
		return fmt.Errorf("%w: CompletionModel is required", ErrInvalidConfig)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: EmbeddingModel is required", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("%w: Temperature must be between 0 and 1", ErrInvalidConfig)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: MaxTokens must be positive", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: Timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: MaxRetries must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// CompletionDefaults returns the configured temperature and token bound.
func (c *Config) CompletionDefaults() CompletionOptions {
	return CompletionOptions{Temperature: c.Temperature, MaxTokens: c.MaxTokens}
}
