package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/graphhelper/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()

	a, err := m.EmbedText(context.Background(), "state graph")
	require.NoError(t, err)
	b, err := m.EmbedText(context.Background(), "state graph")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimension)

	batch, err := m.EmbedTexts(context.Background(), []string{"state graph", "chains"})
	require.NoError(t, err)
	assert.Equal(t, a, batch[0])
	assert.Equal(t, 3, m.CallCount())

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
}

func TestMockEmbedder_CustomFunc(t *testing.T) {
	m := NewMockEmbedder()
	boom := errors.New("boom")
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	}

	_, err := m.EmbedTexts(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, boom)
}

func TestMockCompleter(t *testing.T) {
	m := NewMockCompleter("fallback").Enqueue("first", "second")
	ctx := context.Background()

	for _, want := range []string{"first", "second", "fallback"} {
		got, err := m.Complete(ctx, "prompt-"+want, ai.CompletionOptions{MaxTokens: 5})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.Equal(t, 3, m.CallCount())
	assert.Equal(t, "prompt-fallback", m.LastPrompt())
	assert.Len(t, m.Prompts(), 3)
	assert.Equal(t, 5, m.Options()[0].MaxTokens)
}

func TestMockCompleter_HonoursCancelledContext(t *testing.T) {
	m := NewMockCompleter("x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, "p", ai.CompletionOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)
	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	assert.Same(t, p.GetMockCompleter(), p.Completer())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
