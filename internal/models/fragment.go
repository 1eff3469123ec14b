package models

import (
	"fmt"
	"time"
)

// FragmentKind classifies a stored memory fragment.
type FragmentKind string

const (
	KindCharacter FragmentKind = "character"
	KindWorld     FragmentKind = "world"
	KindItem      FragmentKind = "item"
	KindOutline   FragmentKind = "outline"
	KindChapter   FragmentKind = "chapter"
)

// IsValid checks if the FragmentKind is a known value.
func (k FragmentKind) IsValid() bool {
	switch k {
	case KindCharacter, KindWorld, KindItem, KindOutline, KindChapter:
		return true
	}
	return false
}

// Label returns the bracket label used when formatting a setting record.
func (k FragmentKind) Label() string {
	switch k {
	case KindCharacter:
		return "Character"
	case KindWorld:
		return "World"
	case KindItem:
		return "Item"
	case KindOutline:
		return "Outline"
	case KindChapter:
		return "Chapter"
	}
	return string(k)
}

// Fragment is a unit of retrievable knowledge: a chunk of chapter prose or a
// formatted setting record, with its embedding and scoping metadata.
type Fragment struct {
	ID         string
	NovelID    string
	ChapterID  string // empty for setting entries
	Content    string
	Embedding  []float32
	Kind       FragmentKind
	Name       string
	Section    string // outline entries only
	ChunkIndex int    // ordering within a synced chapter, 0-based
	CreatedAt  time.Time
}

// Match pairs a fragment with its similarity to a query vector.
type Match struct {
	Fragment   Fragment
	Similarity float32
}

// SettingRecord formats a setting entry the way it is stored and retrieved,
// e.g. "[Character] Xiao Yan: a young alchemist ...".
func SettingRecord(kind FragmentKind, name, description string) string {
	return fmt.Sprintf("[%s] %s: %s", kind.Label(), name, description)
}

// Novel is the top-level unit of work a user owns.
type Novel struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
}

// Chapter is the unit being edited: a structured content tree serialized as
// JSON, its plain-text projection, and a word count.
type Chapter struct {
	ID        string
	NovelID   string
	Title     string
	Content   []byte // document tree JSON
	PlainText string
	WordCount int
	UpdatedAt time.Time
}
