package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ExactSlices(t *testing.T) {
	text := strings.Repeat("a", 1200)
	pieces := Split(text, 500)

	require.Len(t, pieces, 3)
	assert.Equal(t, 500, len(pieces[0].Content))
	assert.Equal(t, 500, len(pieces[1].Content))
	assert.Equal(t, 200, len(pieces[2].Content))
	for i, p := range pieces {
		assert.Equal(t, i, p.Index)
	}
	assert.Equal(t, text, pieces[0].Content+pieces[1].Content+pieces[2].Content)
}

func TestSplit_ShortText(t *testing.T) {
	pieces := Split("hello", 500)
	require.Len(t, pieces, 1)
	assert.Equal(t, "hello", pieces[0].Content)
	assert.Equal(t, 0, pieces[0].Index)
}

func TestSplit_Empty(t *testing.T) {
	assert.Nil(t, Split("", 500))
	assert.Nil(t, Split("text", 0))
}

func TestSplit_RuneSafe(t *testing.T) {
	// Multi-byte runes must never be cut in half.
	text := strings.Repeat("雪", 7)
	pieces := Split(text, 3)

	require.Len(t, pieces, 3)
	assert.Equal(t, "雪雪雪", pieces[0].Content)
	assert.Equal(t, "雪雪雪", pieces[1].Content)
	assert.Equal(t, "雪", pieces[2].Content)
}
