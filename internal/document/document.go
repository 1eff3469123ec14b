// Package document holds the live editable chapter: a paragraph tree, its
// plain-text projection, and the caret that streamed increments append at.
package document

import (
	"encoding/json"
	"strings"
	"sync"
	"unicode"
)

// Node is the serialized content tree, shaped like the editor's JSON:
// a "doc" containing "paragraph" nodes containing "text" nodes.
type Node struct {
	Type    string  `json:"type"`
	Text    string  `json:"text,omitempty"`
	Content []*Node `json:"content,omitempty"`
}

// ChangeFunc observes every mutation, human-typed or streamed. Autosave
// subscribes here.
type ChangeFunc func(root *Node, plain string)

type caret struct {
	para   int // paragraph index
	offset int // rune offset within the paragraph
}

// Document is safe for the editor's interleaved use: autosave timers read it
// while a continuation stream appends to it.
type Document struct {
	mu         sync.Mutex
	paragraphs [][]rune
	caret      caret
	onChange   ChangeFunc
}

func New() *Document {
	return &Document{paragraphs: [][]rune{{}}}
}

// FromJSON rebuilds a document from a stored content tree. The caret lands at
// the end of the last paragraph.
func FromJSON(data []byte) (*Document, error) {
	d := New()
	if len(data) == 0 {
		return d, nil
	}
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	var paragraphs [][]rune
	for _, p := range root.Content {
		var sb strings.Builder
		for _, t := range p.Content {
			sb.WriteString(t.Text)
		}
		paragraphs = append(paragraphs, []rune(sb.String()))
	}
	if len(paragraphs) == 0 {
		paragraphs = [][]rune{{}}
	}
	d.paragraphs = paragraphs
	d.caret = caret{para: len(paragraphs) - 1, offset: len(paragraphs[len(paragraphs)-1])}
	return d, nil
}

// OnChange registers the mutation observer. One observer is enough for the
// editor; the last registration wins.
func (d *Document) OnChange(fn ChangeFunc) {
	d.mu.Lock()
	d.onChange = fn
	d.mu.Unlock()
}

// SetCaretEnd moves the caret to the end of the document.
func (d *Document) SetCaretEnd() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.caret = caret{para: len(d.paragraphs) - 1, offset: len(d.paragraphs[len(d.paragraphs)-1])}
}

// ApplyIncrement inserts text at the caret and advances it, so consecutive
// increments read as continuous typing. Newlines open new paragraphs.
func (d *Document) ApplyIncrement(text string) {
	if text == "" {
		return
	}
	d.mu.Lock()
	for _, r := range text {
		if r == '\n' {
			d.breakParagraph()
			continue
		}
		p := d.paragraphs[d.caret.para]
		p = append(p[:d.caret.offset], append([]rune{r}, p[d.caret.offset:]...)...)
		d.paragraphs[d.caret.para] = p
		d.caret.offset++
	}
	fn := d.onChange
	root := d.rootLocked()
	plain := d.plainTextLocked()
	d.mu.Unlock()
	if fn != nil {
		fn(root, plain)
	}
}

// breakParagraph splits the caret paragraph at the caret. Caller holds d.mu.
func (d *Document) breakParagraph() {
	p := d.paragraphs[d.caret.para]
	head := append([]rune{}, p[:d.caret.offset]...)
	tail := append([]rune{}, p[d.caret.offset:]...)
	d.paragraphs[d.caret.para] = head
	rest := append([][]rune{tail}, d.paragraphs[d.caret.para+1:]...)
	d.paragraphs = append(d.paragraphs[:d.caret.para+1], rest...)
	d.caret.para++
	d.caret.offset = 0
}

// PlainText joins paragraphs with newlines.
func (d *Document) PlainText() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plainTextLocked()
}

func (d *Document) plainTextLocked() string {
	parts := make([]string, len(d.paragraphs))
	for i, p := range d.paragraphs {
		parts[i] = string(p)
	}
	return strings.Join(parts, "\n")
}

// Root returns a snapshot of the content tree.
func (d *Document) Root() *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rootLocked()
}

func (d *Document) rootLocked() *Node {
	root := &Node{Type: "doc"}
	for _, p := range d.paragraphs {
		para := &Node{Type: "paragraph"}
		if len(p) > 0 {
			para.Content = []*Node{{Type: "text", Text: string(p)}}
		}
		root.Content = append(root.Content, para)
	}
	return root
}

// MarshalJSON serializes the content tree for persistence.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Root())
}

// WordCount counts space-separated latin words plus individual CJK runes,
// which is how prose length is reported for mixed-script manuscripts.
func (d *Document) WordCount() int {
	return CountWords(d.PlainText())
}

func CountWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r):
			if inWord {
				count++
				inWord = false
			}
			count++
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			inWord = true
		default:
			if inWord {
				count++
				inWord = false
			}
		}
	}
	if inWord {
		count++
	}
	return count
}
