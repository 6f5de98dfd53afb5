package qaindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/answered-once/internal/domain/qa"
)

func entry(id, rootID, chatID string, embedding []float32) qa.IndexEntry {
	return qa.IndexEntry{
		ID:        id,
		Record:    qa.QARecord{RootID: rootID, ChatID: chatID, QuestionText: "q?", AnswerText: "a"},
		Embedding: embedding,
	}
}

func TestMemoryIndexInsertAndFindByRoot(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, entry("id-1", "root-1", "chat-1", []float32{1, 0})))

	got, found, err := idx.FindByRoot(ctx, "root-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "id-1", got.ID)
	require.Equal(t, []float32{1, 0}, got.Embedding)

	_, found, err = idx.FindByRoot(ctx, "root-missing")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryIndexDelete(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, entry("id-1", "root-1", "chat-1", []float32{1, 0})))
	require.NoError(t, idx.DeleteByID(ctx, "id-1"))

	_, found, err := idx.FindByRoot(ctx, "root-1")
	require.NoError(t, err)
	require.False(t, found)

	// Deleting an unknown id is a no-op.
	require.NoError(t, idx.DeleteByID(ctx, "id-unknown"))
}

func TestMemoryIndexNearestOrdersByDistance(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, entry("far", "r1", "chat-1", []float32{0, 1})))
	require.NoError(t, idx.Insert(ctx, entry("near", "r2", "chat-1", []float32{1, 0})))
	require.NoError(t, idx.Insert(ctx, entry("mid", "r3", "chat-1", []float32{0.7, 0.7})))

	matches, err := idx.Nearest(ctx, []float32{1, 0}, "chat-1", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "near", matches[0].Entry.ID)
	require.Equal(t, "mid", matches[1].Entry.ID)
	require.InDelta(t, 0.0, matches[0].Distance, 1e-6)
}

func TestMemoryIndexNearestFiltersByChat(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Insert(ctx, entry("a", "r1", "chat-1", []float32{1, 0})))
	require.NoError(t, idx.Insert(ctx, entry("b", "r2", "chat-2", []float32{1, 0})))

	matches, err := idx.Nearest(ctx, []float32{1, 0}, "chat-2", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "b", matches[0].Entry.ID)

	all, err := idx.Nearest(ctx, []float32{1, 0}, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
