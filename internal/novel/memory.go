package novel

import (
	"context"
	"sort"
	"sync"
	"time"

	"inkwell/internal/fault"
	"inkwell/internal/helper"
	"inkwell/internal/models"
)

// Memory is the offline fallback store. Session-scoped, mutex-guarded.
type Memory struct {
	mu       sync.RWMutex
	novels   map[string]models.Novel
	chapters map[string]models.Chapter
}

func NewMemory() *Memory {
	return &Memory{
		novels:   make(map[string]models.Novel),
		chapters: make(map[string]models.Chapter),
	}
}

func (m *Memory) CreateNovel(ctx context.Context, userID, title string) (*models.Novel, error) {
	n := models.Novel{
		ID:        helper.MustUUID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	m.mu.Lock()
	m.novels[n.ID] = n
	m.mu.Unlock()
	return &n, nil
}

func (m *Memory) ListNovels(ctx context.Context, userID string) ([]models.Novel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var novels []models.Novel
	for _, n := range m.novels {
		if n.UserID == userID {
			novels = append(novels, n)
		}
	}
	sort.Slice(novels, func(i, j int) bool {
		return novels[i].CreatedAt.After(novels[j].CreatedAt)
	})
	return novels, nil
}

func (m *Memory) CreateChapter(ctx context.Context, novelID, title string) (*models.Chapter, error) {
	ch := models.Chapter{
		ID:        helper.MustUUID(),
		NovelID:   novelID,
		Title:     title,
		UpdatedAt: time.Now().UTC(),
	}
	m.mu.Lock()
	m.chapters[ch.ID] = ch
	m.mu.Unlock()
	return &ch, nil
}

func (m *Memory) ListChapters(ctx context.Context, novelID string) ([]models.Chapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var chapters []models.Chapter
	for _, ch := range m.chapters {
		if ch.NovelID == novelID {
			chapters = append(chapters, ch)
		}
	}
	sort.Slice(chapters, func(i, j int) bool {
		return chapters[i].UpdatedAt.Before(chapters[j].UpdatedAt)
	})
	return chapters, nil
}

func (m *Memory) GetChapter(ctx context.Context, chapterID string) (*models.Chapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.chapters[chapterID]
	if !ok {
		return nil, fault.New(fault.Storage, "novel.GetChapter", "chapter %s not found", chapterID)
	}
	return &ch, nil
}

func (m *Memory) SaveChapter(ctx context.Context, ch *models.Chapter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chapters[ch.ID]; !ok {
		return fault.New(fault.Storage, "novel.SaveChapter", "chapter %s not found", ch.ID)
	}
	ch.UpdatedAt = time.Now().UTC()
	m.chapters[ch.ID] = *ch
	return nil
}
