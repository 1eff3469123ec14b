package embedding

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"

	"inkwell/internal/config"
	"inkwell/internal/fault"
)

// fakeEmbedderClient derives a deterministic vector from the text hash.
type fakeEmbedderClient struct {
	calls int
}

func (f *fakeEmbedderClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		h := fnv.New32a()
		h.Write([]byte(text))
		seed := h.Sum32()
		vec := make([]float32, 8)
		for j := range vec {
			seed = seed*1664525 + 1013904223
			vec[j] = float32(seed%1000)/1000 + 0.001
		}
		out[i] = vec
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLazyProvider_InitFailureIsStickyAndDistinct(t *testing.T) {
	initCalls := 0
	p := &LazyProvider{
		dim: 4,
		newFn: func() (*embeddings.EmbedderImpl, error) {
			initCalls++
			return nil, errors.New("model download failed")
		},
	}

	_, err := p.Embed(context.Background(), "some text")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Embedding), "init failure surfaces as an embedding fault, never a zero vector")

	_, err2 := p.Embed(context.Background(), "other text")
	require.Error(t, err2)
	assert.Equal(t, 1, initCalls, "initialization runs exactly once")
}

func TestLazyProvider_SameTextSameVector(t *testing.T) {
	initCalls := 0
	client := &fakeEmbedderClient{}
	p := &LazyProvider{
		dim: 8,
		newFn: func() (*embeddings.EmbedderImpl, error) {
			initCalls++
			return embeddings.NewEmbedder(client)
		},
	}

	v1, err := p.Embed(context.Background(), "the storm broke at dawn")
	require.NoError(t, err)
	v2, err := p.Embed(context.Background(), "the storm broke at dawn")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, cosine(v1, v2), 0.999, "re-embedding the same text must land on the same vector")
	assert.Equal(t, 1, initCalls, "both calls go through the one lazily built embedder")
	assert.Equal(t, 2, client.calls)
}

func TestNewProvider_UnknownProvider(t *testing.T) {
	p := NewProvider(&config.EmbeddingConfig{Provider: "carrier-pigeon", Dim: 4})
	_, err := p.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Embedding))
}

func TestLazyProvider_Dim(t *testing.T) {
	p := NewProvider(&config.EmbeddingConfig{Provider: "ollama", Dim: 384})
	assert.Equal(t, 384, p.Dim())
}
