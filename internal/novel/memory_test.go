package novel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/fault"
	"inkwell/internal/models"
)

func TestMemory_NovelLifecycle(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first, err := s.CreateNovel(ctx, "user-1", "The Starport")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	time.Sleep(time.Millisecond)
	second, err := s.CreateNovel(ctx, "user-1", "The Siege")
	require.NoError(t, err)

	_, err = s.CreateNovel(ctx, "user-2", "Someone Else's Book")
	require.NoError(t, err)

	list, err := s.ListNovels(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)
}

func TestMemory_ChapterSaveRoundTrip(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	n, err := s.CreateNovel(ctx, "user-1", "The Starport")
	require.NoError(t, err)
	ch, err := s.CreateChapter(ctx, n.ID, "Chapter One")
	require.NoError(t, err)

	before := ch.UpdatedAt
	ch.PlainText = "Rain hammered the deck."
	ch.WordCount = 4
	ch.Content = []byte(`{"type":"doc"}`)
	time.Sleep(time.Millisecond)
	require.NoError(t, s.SaveChapter(ctx, ch))

	got, err := s.GetChapter(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rain hammered the deck.", got.PlainText)
	assert.Equal(t, 4, got.WordCount)
	assert.True(t, got.UpdatedAt.After(before), "save bumps updated_at")
}

func TestMemory_GetChapterMissing(t *testing.T) {
	s := NewMemory()
	_, err := s.GetChapter(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Storage))
}

func TestMemory_SaveChapterMissing(t *testing.T) {
	s := NewMemory()
	err := s.SaveChapter(context.Background(), &models.Chapter{ID: "ghost"})
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Storage))
}
