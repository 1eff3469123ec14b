// Package chunker splits chapter prose into fixed-size slices for embedding.
package chunker

// Piece is one slice of a chapter, tagged with its position in the original
// text. The index is only a stable ordering key.
type Piece struct {
	Content string
	Index   int
}

// Split cuts text into rune-safe slices of at most size characters, in
// original order. A 1200-character text at size 500 yields 500/500/200.
func Split(text string, size int) []Piece {
	if size <= 0 || text == "" {
		return nil
	}
	runes := []rune(text)
	var pieces []Piece
	for start, idx := 0, 0; start < len(runes); idx++ {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, Piece{Content: string(runes[start:end]), Index: idx})
		start = end
	}
	return pieces
}
