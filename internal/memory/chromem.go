package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"

	"inkwell/internal/fault"
	"inkwell/internal/helper"
	"inkwell/internal/models"
)

// Chromem is the offline fallback backend: a chromem-go vector database,
// persisted under a data directory or held in memory. A side index keeps full
// fragments for listing, which chromem does not expose; in persistent mode it
// is written through to a sidecar file next to the chromem data.
type Chromem struct {
	db         *chromem.DB
	collection *chromem.Collection
	indexPath  string

	mu    sync.RWMutex
	index map[string]models.Fragment
}

const (
	chromemCollection = "fragments"
	chromemIndexFile  = "fragments-index.json"
)

// NewChromem opens the local vector store. A non-empty path selects the
// persistent database under that directory; an empty path keeps everything
// session-scoped in memory.
func NewChromem(path string) (*Chromem, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		if err := helper.CreateFolder(path); err != nil {
			return nil, fault.Wrap(fault.Storage, "memory.NewChromem", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fault.Wrap(fault.Storage, "memory.NewChromem", err)
		}
	}
	c, err := db.GetOrCreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return nil, fault.Wrap(fault.Storage, "memory.NewChromem", err)
	}
	s := &Chromem{
		db:         db,
		collection: c,
		index:      make(map[string]models.Fragment),
	}
	if path != "" {
		s.indexPath = filepath.Join(path, chromemIndexFile)
		if err := s.loadIndex(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (c *Chromem) loadIndex() error {
	data, err := os.ReadFile(c.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fault.Wrap(fault.Storage, "memory.NewChromem", err)
	}
	if err := json.Unmarshal(data, &c.index); err != nil {
		return fault.Wrap(fault.Storage, "memory.NewChromem", err)
	}
	return nil
}

// saveIndexLocked writes the side index through to disk. Caller holds c.mu.
func (c *Chromem) saveIndexLocked(op string) error {
	if c.indexPath == "" {
		return nil
	}
	data, err := json.Marshal(c.index)
	if err != nil {
		return fault.Wrap(fault.Storage, op, err)
	}
	if err := os.WriteFile(c.indexPath, data, 0o644); err != nil {
		return fault.Wrap(fault.Storage, op, err)
	}
	return nil
}

func (c *Chromem) Upsert(ctx context.Context, f *models.Fragment) error {
	if f.ID == "" {
		f.ID = helper.MustUUID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	doc := chromem.Document{
		ID:        f.ID,
		Content:   f.Content,
		Embedding: f.Embedding,
		Metadata: map[string]string{
			"novel_id":    f.NovelID,
			"chapter_id":  f.ChapterID,
			"kind":        string(f.Kind),
			"name":        f.Name,
			"section":     f.Section,
			"chunk_index": strconv.Itoa(f.ChunkIndex),
			"created_at":  f.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	if err := c.collection.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fault.Wrap(fault.Storage, "memory.Upsert", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[f.ID] = *f
	return c.saveIndexLocked("memory.Upsert")
}

func (c *Chromem) Delete(ctx context.Context, id string) error {
	if err := c.collection.Delete(ctx, nil, nil, id); err != nil {
		return fault.Wrap(fault.Storage, "memory.Delete", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.index, id)
	return c.saveIndexLocked("memory.Delete")
}

func (c *Chromem) DeleteByChapter(ctx context.Context, chapterID string) error {
	if err := c.collection.Delete(ctx, map[string]string{"chapter_id": chapterID}, nil); err != nil {
		return fault.Wrap(fault.Storage, "memory.DeleteByChapter", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, f := range c.index {
		if f.ChapterID == chapterID {
			delete(c.index, id)
		}
	}
	return c.saveIndexLocked("memory.DeleteByChapter")
}

func (c *Chromem) Search(ctx context.Context, q Query) ([]models.Match, error) {
	where := map[string]string{"novel_id": q.NovelID}
	if q.Kind != nil {
		where["kind"] = string(*q.Kind)
	}

	// chromem rejects nResults above the collection size, and it applies no
	// similarity cutoff, so over-fetch and filter here.
	n := c.collection.Count()
	if n == 0 {
		return nil, nil
	}
	results, err := c.collection.QueryEmbedding(ctx, q.Vector, n, where, nil)
	if err != nil {
		return nil, fault.Wrap(fault.Storage, "memory.Search", err)
	}

	var matches []models.Match
	for _, res := range results {
		if res.Similarity < q.Threshold {
			continue
		}
		matches = append(matches, models.Match{Fragment: c.lookup(res), Similarity: res.Similarity})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Fragment.CreatedAt.After(matches[j].Fragment.CreatedAt)
	})
	if len(matches) > q.TopK {
		matches = matches[:q.TopK]
	}
	return matches, nil
}

func (c *Chromem) ListByKind(ctx context.Context, novelID string, kind models.FragmentKind) ([]models.Fragment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var frags []models.Fragment
	for _, f := range c.index {
		if f.NovelID == novelID && f.Kind == kind {
			frags = append(frags, f)
		}
	}
	sort.Slice(frags, func(i, j int) bool {
		return frags[i].CreatedAt.After(frags[j].CreatedAt)
	})
	return frags, nil
}

// lookup rebuilds the fragment from the side index, falling back to the
// chromem result metadata.
func (c *Chromem) lookup(res chromem.Result) models.Fragment {
	c.mu.RLock()
	f, ok := c.index[res.ID]
	c.mu.RUnlock()
	if ok {
		return f
	}
	idx, _ := strconv.Atoi(res.Metadata["chunk_index"])
	created, _ := time.Parse(time.RFC3339Nano, res.Metadata["created_at"])
	return models.Fragment{
		ID:         res.ID,
		NovelID:    res.Metadata["novel_id"],
		ChapterID:  res.Metadata["chapter_id"],
		Content:    res.Content,
		Embedding:  res.Embedding,
		Kind:       models.FragmentKind(res.Metadata["kind"]),
		Name:       res.Metadata["name"],
		Section:    res.Metadata["section"],
		ChunkIndex: idx,
		CreatedAt:  created,
	}
}
