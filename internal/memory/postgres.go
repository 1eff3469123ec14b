package memory

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"inkwell/internal/fault"
	"inkwell/internal/helper"
	"inkwell/internal/models"
)

// fragmentRow mirrors the Supabase "documents" table.
type fragmentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID         string    `bun:"id,pk"`
	NovelID    string    `bun:"novel_id,notnull"`
	ChapterID  string    `bun:"chapter_id,nullzero"`
	Content    string    `bun:"content,notnull"`
	Embedding  []float32 `bun:"embedding,notnull,type:vector(384)"`
	Kind       string    `bun:"kind,notnull"`
	Name       string    `bun:"name,nullzero"`
	Section    string    `bun:"section,nullzero"`
	ChunkIndex int       `bun:"chunk_index"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Postgres stores fragments in a hosted Postgres with the pgvector extension.
type Postgres struct {
	db *bun.DB
}

// ConnectDB opens the Supabase Postgres connection the way the hosted service
// expects: DSN plus service key as password.
func ConnectDB(url, key string) *sql.DB {
	dsn := url + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(key)))
}

// NewPostgres wraps an open connection. Debug enables query logging.
func NewPostgres(sqldb *sql.DB, debug bool) *Postgres {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Postgres{db: db}
}

// Init creates the documents table if missing.
func (p *Postgres) Init(ctx context.Context) error {
	_, err := p.db.NewCreateTable().Model((*fragmentRow)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fault.Wrap(fault.Storage, "memory.Init", err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Upsert(ctx context.Context, f *models.Fragment) error {
	if f.ID == "" {
		f.ID = helper.MustUUID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	row := &fragmentRow{
		ID:         f.ID,
		NovelID:    f.NovelID,
		ChapterID:  f.ChapterID,
		Content:    f.Content,
		Embedding:  f.Embedding,
		Kind:       string(f.Kind),
		Name:       f.Name,
		Section:    f.Section,
		ChunkIndex: f.ChunkIndex,
		CreatedAt:  f.CreatedAt,
	}
	_, err := p.db.NewInsert().Model(row).On("CONFLICT (id) DO UPDATE").Exec(ctx)
	if err != nil {
		return fault.Wrap(fault.Storage, "memory.Upsert", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	_, err := p.db.NewDelete().Model((*fragmentRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fault.Wrap(fault.Storage, "memory.Delete", err)
	}
	return nil
}

func (p *Postgres) DeleteByChapter(ctx context.Context, chapterID string) error {
	_, err := p.db.NewDelete().Model((*fragmentRow)(nil)).Where("chapter_id = ?", chapterID).Exec(ctx)
	if err != nil {
		return fault.Wrap(fault.Storage, "memory.DeleteByChapter", err)
	}
	return nil
}

// Search runs a cosine-similarity query in SQL. pgvector's <=> operator is
// cosine distance, so similarity = 1 - distance.
func (p *Postgres) Search(ctx context.Context, q Query) ([]models.Match, error) {
	var rows []struct {
		fragmentRow
		Similarity float32 `bun:"similarity"`
	}
	sel := p.db.NewSelect().
		Model((*fragmentRow)(nil)).
		ColumnExpr("d.*").
		ColumnExpr("1 - (d.embedding <=> ?) AS similarity", q.Vector).
		Where("d.novel_id = ?", q.NovelID).
		Where("1 - (d.embedding <=> ?) >= ?", q.Vector, q.Threshold).
		OrderExpr("d.embedding <=> ?", q.Vector).
		OrderExpr("d.created_at DESC").
		Limit(q.TopK)
	if q.Kind != nil {
		sel = sel.Where("d.kind = ?", string(*q.Kind))
	}
	if err := sel.Scan(ctx, &rows); err != nil {
		return nil, fault.Wrap(fault.Storage, "memory.Search", err)
	}
	matches := make([]models.Match, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, models.Match{Fragment: r.toFragment(), Similarity: r.Similarity})
	}
	return matches, nil
}

func (p *Postgres) ListByKind(ctx context.Context, novelID string, kind models.FragmentKind) ([]models.Fragment, error) {
	var rows []fragmentRow
	err := p.db.NewSelect().
		Model(&rows).
		Where("novel_id = ?", novelID).
		Where("kind = ?", string(kind)).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.Storage, "memory.ListByKind", err)
	}
	frags := make([]models.Fragment, 0, len(rows))
	for _, r := range rows {
		frags = append(frags, r.toFragment())
	}
	return frags, nil
}

func (r *fragmentRow) toFragment() models.Fragment {
	return models.Fragment{
		ID:         r.ID,
		NovelID:    r.NovelID,
		ChapterID:  r.ChapterID,
		Content:    r.Content,
		Embedding:  r.Embedding,
		Kind:       models.FragmentKind(r.Kind),
		Name:       r.Name,
		Section:    r.Section,
		ChunkIndex: r.ChunkIndex,
		CreatedAt:  r.CreatedAt,
	}
}
