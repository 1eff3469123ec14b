package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKind(t *testing.T) {
	err := New(Validation, "rag.BuildPrompt", "not enough text")
	assert.True(t, IsKind(err, Validation))
	assert.False(t, IsKind(err, Storage))
	assert.False(t, IsKind(errors.New("plain"), Validation))
	assert.False(t, IsKind(nil, Validation))
}

func TestIsKind_ThroughWrapping(t *testing.T) {
	inner := New(Storage, "memory.Search", "connection refused")
	wrapped := fmt.Errorf("query failed: %w", inner)
	assert.True(t, IsKind(wrapped, Storage))
}

func TestWrap_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(Stream, "llm.Stream", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "llm.Stream")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "configuration", Configuration.String())
	assert.Equal(t, "stream", Stream.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
