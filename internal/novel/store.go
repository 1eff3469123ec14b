// Package novel persists novels and chapters, the units the editor works on.
package novel

import (
	"context"

	"inkwell/internal/models"
)

// Store is the editor's CRUD boundary. Backends are selected at construction:
// hosted Postgres when configured, the in-memory fake otherwise.
type Store interface {
	CreateNovel(ctx context.Context, userID, title string) (*models.Novel, error)
	ListNovels(ctx context.Context, userID string) ([]models.Novel, error)
	CreateChapter(ctx context.Context, novelID, title string) (*models.Chapter, error)
	ListChapters(ctx context.Context, novelID string) ([]models.Chapter, error)
	GetChapter(ctx context.Context, chapterID string) (*models.Chapter, error)
	// SaveChapter persists the chapter's current content tree, plain-text
	// projection, and word count, bumping updated_at.
	SaveChapter(ctx context.Context, ch *models.Chapter) error
}
