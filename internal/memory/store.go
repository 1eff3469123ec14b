// Package memory persists embeddable fragments (chapter chunks and setting
// records) and answers scoped nearest-neighbor queries over them.
package memory

import (
	"context"

	"inkwell/internal/models"
)

// Query restricts a similarity search to a novel and optionally a kind.
type Query struct {
	Vector    []float32
	NovelID   string
	Kind      *models.FragmentKind
	TopK      int
	Threshold float32
}

// Store is the persistence boundary for fragments. Implementations must
// return at most TopK matches, all with similarity >= Threshold, ordered by
// descending similarity with ties broken most-recent-first. An empty result
// is not an error; failures carry the storage fault kind.
type Store interface {
	Upsert(ctx context.Context, f *models.Fragment) error
	Delete(ctx context.Context, id string) error
	DeleteByChapter(ctx context.Context, chapterID string) error
	Search(ctx context.Context, q Query) ([]models.Match, error)
	ListByKind(ctx context.Context, novelID string, kind models.FragmentKind) ([]models.Fragment, error)
}
