package badger

import (
	"context"
	"testing"

	"github.com/poiesic/graphhelper/core"
	"github.com/poiesic/graphhelper/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRepository_PutAndGet(t *testing.T) {
	chunks, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	c := newChunk("langgraph", "Use add_edge to connect nodes.", 0.1, 0.2)
	c.Index = 3
	require.NoError(t, chunks.PutChunks(ctx, c))
	assert.False(t, c.InsertedAt.IsZero())

	got, err := chunks.GetChunk(ctx, c.Id)
	require.NoError(t, err)
	assert.Equal(t, c.Text, got.Text)
	assert.Equal(t, 3, got.Index)
	assert.Equal(t, c.Vector, got.Vector)

	_, err = chunks.GetChunk(ctx, 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestChunkRepository_RejectsInvalid(t *testing.T) {
	chunks, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	assert.ErrorIs(t, chunks.PutChunks(ctx, newChunk("s", "no vector")), storage.ErrInvalidChunk)
	assert.ErrorIs(t, chunks.PutChunks(ctx, newChunk("s", "", 1)), storage.ErrInvalidChunk)
	assert.ErrorIs(t, chunks.PutChunks(ctx, nil), storage.ErrInvalidChunk)
}

func TestChunkRepository_PutIsIdempotent(t *testing.T) {
	chunks, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	require.NoError(t, chunks.PutChunks(ctx, newChunk("s", "same", 1)))
	require.NoError(t, chunks.PutChunks(ctx, newChunk("s", "same", 1)))

	count, err := chunks.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunkRepository_DeleteSource(t *testing.T) {
	chunks, _, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	require.NoError(t, chunks.PutChunks(ctx,
		newChunk("langgraph", "one", 1),
		newChunk("langgraph", "two", 1),
		newChunk("langgraph-full", "three", 1),
	))

	removed, err := chunks.DeleteSource(ctx, "langgraph")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err := chunks.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "prefix-sharing source must survive")

	removed, err = chunks.DeleteSource(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCheckpointRepository(t *testing.T) {
	_, checkpoints, backend, err := NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	cp, err := checkpoints.LoadCheckpoint(ctx, "langgraph")
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Source: "langgraph", ContentHash: 7, ChunkCount: 3}))
	require.NoError(t, checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{Source: "langchain", ContentHash: 9, ChunkCount: 5}))

	cp, err = checkpoints.LoadCheckpoint(ctx, "langgraph")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, core.ID(7), cp.ContentHash)
	assert.Equal(t, 3, cp.ChunkCount)
	assert.False(t, cp.UpdatedAt.IsZero())

	all, err := checkpoints.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "langchain", all[0].Source)
	assert.Equal(t, "langgraph", all[1].Source)
}
