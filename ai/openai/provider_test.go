package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	}
}

func testConfig(host string, retries int) *ai.Config {
	return ai.NewConfig(
		ai.WithPlatform(ai.PlatformOpenAI),
		ai.WithHost(host),
		ai.WithCompletionModel("test-model"),
		ai.WithEmbeddingModel("test-embed"),
		ai.WithMaxRetries(retries),
		ai.WithTimeout(5*time.Second),
	)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := ai.NewConfig(ai.WithPlatform(ai.PlatformOpenRouter))
	_, err := NewProvider(cfg)
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)
}

func TestCompleter_Complete(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("graph_framework"))
	}))
	defer server.Close()

	provider, err := NewProvider(testConfig(server.URL, 1))
	require.NoError(t, err)
	defer provider.Close()

	text, err := provider.Completer().Complete(context.Background(), "classify this", ai.CompletionOptions{Temperature: 0, MaxTokens: 16})
	require.NoError(t, err)
	assert.Equal(t, "graph_framework", text)
	assert.Equal(t, "test-model", got["model"])
	assert.Contains(t, got["messages"].([]any)[0].(map[string]any)["content"], "classify this")
}

func TestCompleter_RetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	completer, err := NewCompleter(testConfig(server.URL, 2))
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), "hi", ai.CompletionOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrProviderFailure)
	assert.Equal(t, core.KindUnavailable, core.KindOf(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleter_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"too many requests"}}`))
	}))
	defer server.Close()

	completer, err := NewCompleter(testConfig(server.URL, 1))
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), "hi", ai.CompletionOptions{})
	assert.ErrorIs(t, err, core.ErrRateLimited)
	assert.Equal(t, core.KindRateLimited, core.KindOf(err))
}

func TestCompleter_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	completer, err := NewCompleter(testConfig(server.URL, 3))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = completer.Complete(ctx, "hi", ai.CompletionOptions{})
	assert.ErrorIs(t, err, ai.ErrProviderFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, core.KindTimeout, core.KindOf(err))
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req.Model)

		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(i), 1}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": req.Model})
	}))
	defer server.Close()

	embedder, err := NewEmbedder(testConfig(server.URL, 1))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 1}, vectors[1])

	vector, err := embedder.EmbedText(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vector)
}
