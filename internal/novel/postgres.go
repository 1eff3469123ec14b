package novel

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/extra/bundebug"

	"inkwell/internal/fault"
	"inkwell/internal/helper"
	"inkwell/internal/models"
)

type novelRow struct {
	bun.BaseModel `bun:"table:novels,alias:n"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id,notnull"`
	Title     string    `bun:"title,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type chapterRow struct {
	bun.BaseModel `bun:"table:chapters,alias:c"`

	ID        string    `bun:"id,pk"`
	NovelID   string    `bun:"novel_id,notnull"`
	Title     string    `bun:"title,notnull"`
	Content   []byte    `bun:"content,type:jsonb"`
	PlainText string    `bun:"plain_text"`
	WordCount int       `bun:"word_count"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

type Postgres struct {
	db *bun.DB
}

func NewPostgres(sqldb *sql.DB, debug bool) *Postgres {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Postgres{db: db}
}

func (p *Postgres) Init(ctx context.Context) error {
	for _, model := range []any{(*novelRow)(nil), (*chapterRow)(nil)} {
		if _, err := p.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fault.Wrap(fault.Storage, "novel.Init", err)
		}
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) CreateNovel(ctx context.Context, userID, title string) (*models.Novel, error) {
	row := &novelRow{
		ID:        helper.MustUUID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := p.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fault.Wrap(fault.Storage, "novel.CreateNovel", err)
	}
	return &models.Novel{ID: row.ID, UserID: row.UserID, Title: row.Title, CreatedAt: row.CreatedAt}, nil
}

func (p *Postgres) ListNovels(ctx context.Context, userID string) ([]models.Novel, error) {
	var rows []novelRow
	err := p.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.Storage, "novel.ListNovels", err)
	}
	novels := make([]models.Novel, 0, len(rows))
	for _, r := range rows {
		novels = append(novels, models.Novel{ID: r.ID, UserID: r.UserID, Title: r.Title, CreatedAt: r.CreatedAt})
	}
	return novels, nil
}

func (p *Postgres) CreateChapter(ctx context.Context, novelID, title string) (*models.Chapter, error) {
	row := &chapterRow{
		ID:        helper.MustUUID(),
		NovelID:   novelID,
		Title:     title,
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := p.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fault.Wrap(fault.Storage, "novel.CreateChapter", err)
	}
	return rowToChapter(row), nil
}

func (p *Postgres) ListChapters(ctx context.Context, novelID string) ([]models.Chapter, error) {
	var rows []chapterRow
	err := p.db.NewSelect().
		Model(&rows).
		Where("novel_id = ?", novelID).
		OrderExpr("updated_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.Storage, "novel.ListChapters", err)
	}
	chapters := make([]models.Chapter, 0, len(rows))
	for _, r := range rows {
		chapters = append(chapters, *rowToChapter(&r))
	}
	return chapters, nil
}

func (p *Postgres) GetChapter(ctx context.Context, chapterID string) (*models.Chapter, error) {
	row := new(chapterRow)
	err := p.db.NewSelect().Model(row).Where("id = ?", chapterID).Scan(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.Storage, "novel.GetChapter", err)
	}
	return rowToChapter(row), nil
}

func (p *Postgres) SaveChapter(ctx context.Context, ch *models.Chapter) error {
	ch.UpdatedAt = time.Now().UTC()
	_, err := p.db.NewUpdate().
		Model((*chapterRow)(nil)).
		Set("content = ?", ch.Content).
		Set("plain_text = ?", ch.PlainText).
		Set("word_count = ?", ch.WordCount).
		Set("updated_at = ?", ch.UpdatedAt).
		Where("id = ?", ch.ID).
		Exec(ctx)
	if err != nil {
		return fault.Wrap(fault.Storage, "novel.SaveChapter", err)
	}
	return nil
}

func rowToChapter(r *chapterRow) *models.Chapter {
	return &models.Chapter{
		ID:        r.ID,
		NovelID:   r.NovelID,
		Title:     r.Title,
		Content:   r.Content,
		PlainText: r.PlainText,
		WordCount: r.WordCount,
		UpdatedAt: r.UpdatedAt,
	}
}
