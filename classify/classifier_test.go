package classify

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/graphhelper/ai"
	"github.com/poiesic/graphhelper/ai/mock"
	"github.com/poiesic/graphhelper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		response string
		want     core.QueryType
		ok       bool
	}{
		{"graph_framework", core.QueryTypeGraphFramework, true},
		{"  Chain_Framework\n", core.QueryTypeChainFramework, true},
		{"code_example", core.QueryTypeCodeExample, true},
		{"general", core.QueryTypeGeneral, true},
		{"LangGraph", core.QueryTypeGraphFramework, true},
		{"langchain", core.QueryTypeChainFramework, true},
		{"This needs code.", core.QueryTypeCodeExample, true},
		// Earlier types in enumeration order win.
		{"general or graph_framework", core.QueryTypeGraphFramework, true},
		{"langchain code", core.QueryTypeChainFramework, true},
		{"", "", false},
		{"I am not sure.", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.response, func(t *testing.T) {
			got, ok := ParseResponse(tt.response)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("How do I add a checkpointer?")
	assert.Contains(t, p, "Question: How do I add a checkpointer?")
	for _, qt := range core.QueryTypes {
		assert.Contains(t, p, string(qt))
	}
}

func TestNewClassifier(t *testing.T) {
	_, err := NewClassifier(nil)
	assert.Equal(t, ErrCompleterRequired, err)

	_, err = NewClassifier(mock.NewMockCompleter("general"), WithCache(-1))
	assert.ErrorIs(t, err, ErrInvalidCacheSize)
}

func TestClassify(t *testing.T) {
	completer := mock.NewMockCompleter("graph_framework")
	c, err := NewClassifier(completer, WithCache(0))
	require.NoError(t, err)
	defer c.Close()

	qt, rec := c.Classify(context.Background(), core.NewQuery("What is StateGraph?", nil))

	assert.Equal(t, core.QueryTypeGraphFramework, qt)
	assert.Equal(t, core.StepClassify, rec.Step)
	assert.Equal(t, core.OutcomeSuccess, rec.Outcome)
	assert.Contains(t, completer.LastPrompt(), "What is StateGraph?")
	assert.Equal(t, []ai.CompletionOptions{{Temperature: 0, MaxTokens: 16}}, completer.Options())
}

func TestClassify_UnparseableIsDegraded(t *testing.T) {
	c, err := NewClassifier(mock.NewMockCompleter("banana"))
	require.NoError(t, err)
	defer c.Close()

	qt, rec := c.Classify(context.Background(), core.NewQuery("q", nil))

	assert.Equal(t, core.QueryTypeGeneral, qt)
	assert.Equal(t, core.OutcomeDegraded, rec.Outcome)
	assert.Equal(t, core.KindUnparseable, rec.Kind)
	assert.ErrorIs(t, rec.Err, core.ErrClassificationFailure)
}

func TestClassify_ProviderFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind core.ErrorKind
	}{
		{"unavailable", fmt.Errorf("%w: connection refused", ai.ErrProviderFailure), core.KindUnavailable},
		{"timeout", fmt.Errorf("%w: %w", ai.ErrProviderFailure, context.DeadlineExceeded), core.KindTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := mock.NewMockCompleter("").WithCompleteFunc(func(ctx context.Context, prompt string, opts ai.CompletionOptions) (string, error) {
				return "", tt.err
			})
			c, err := NewClassifier(completer)
			require.NoError(t, err)
			defer c.Close()

			qt, rec := c.Classify(context.Background(), core.NewQuery("q", nil))
			assert.Equal(t, core.QueryTypeGeneral, qt)
			assert.Equal(t, core.OutcomeFailed, rec.Outcome)
			assert.Equal(t, tt.kind, rec.Kind)
			assert.ErrorIs(t, rec.Err, core.ErrClassificationFailure)
		})
	}
}

func TestClassify_Cache(t *testing.T) {
	completer := mock.NewMockCompleter("code_example")
	c, err := NewClassifier(completer, WithCache(8))
	require.NoError(t, err)
	defer c.Close()

	q := core.NewQuery("show me an example", nil)
	first, _ := c.Classify(context.Background(), q)
	c.Wait()
	second, rec := c.Classify(context.Background(), q)

	assert.Equal(t, first, second)
	assert.Equal(t, core.OutcomeSuccess, rec.Outcome)
	assert.Equal(t, 1, completer.CallCount())
}

func TestClassify_FailuresAreNotCached(t *testing.T) {
	completer := mock.NewMockCompleter("graph_framework").Enqueue("???")
	c, err := NewClassifier(completer)
	require.NoError(t, err)
	defer c.Close()

	q := core.NewQuery("q", nil)
	qt, _ := c.Classify(context.Background(), q)
	assert.Equal(t, core.QueryTypeGeneral, qt)
	c.Wait()

	qt, _ = c.Classify(context.Background(), q)
	assert.Equal(t, core.QueryTypeGraphFramework, qt)
	assert.Equal(t, 2, completer.CallCount())
}
