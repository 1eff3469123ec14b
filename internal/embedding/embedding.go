// Package embedding turns text into fixed-length vectors for similarity
// search. The underlying model client is initialized lazily, once per
// process, and shared by all callers.
package embedding

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"inkwell/internal/config"
	"inkwell/internal/fault"
)

// Provider computes embeddings. Index-time and query-time vectors must come
// from the same provider instance so model versions never mix.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

// LazyProvider defers model client construction to the first Embed call.
// Initialization runs exactly once; a failure is remembered and returned to
// every subsequent caller rather than handing out zero vectors.
type LazyProvider struct {
	newFn func() (*embeddings.EmbedderImpl, error)
	dim   int

	once     sync.Once
	embedder *embeddings.EmbedderImpl
	initErr  error
}

// NewProvider builds a lazy provider from config. Supported providers are
// "openai" (any OpenAI-compatible endpoint) and "ollama", matching the two
// clients the rest of the stack uses.
func NewProvider(cfg *config.EmbeddingConfig) *LazyProvider {
	c := *cfg
	return &LazyProvider{
		dim: c.Dim,
		newFn: func() (*embeddings.EmbedderImpl, error) {
			switch c.Provider {
			case "openai":
				llm, err := openai.New(
					openai.WithBaseURL(c.BaseURL),
					openai.WithToken(strings.TrimPrefix(c.Key, "Bearer ")),
					openai.WithModel(c.Model),
				)
				if err != nil {
					return nil, err
				}
				return embeddings.NewEmbedder(llm)
			case "ollama":
				llm, err := ollama.New(
					ollama.WithServerURL(c.BaseURL),
					ollama.WithModel(c.Model),
				)
				if err != nil {
					return nil, err
				}
				return embeddings.NewEmbedder(llm)
			default:
				return nil, fault.New(fault.Configuration, "embedding.NewProvider",
					"unknown embedding provider %q", c.Provider)
			}
		},
	}
}

func (p *LazyProvider) init() {
	log.Debug().Msg("Initializing embedding model")
	p.embedder, p.initErr = p.newFn()
	if p.initErr != nil {
		log.Error().Err(p.initErr).Msg("Error initializing embedding model")
	}
}

// Embed returns the vector for text. The first call pays the initialization
// cost; later calls reuse the same client.
func (p *LazyProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.once.Do(p.init)
	if p.initErr != nil {
		return nil, fault.Wrap(fault.Embedding, "embedding.Embed", p.initErr)
	}
	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fault.Wrap(fault.Embedding, "embedding.Embed", err)
	}
	return vec, nil
}

func (p *LazyProvider) Dim() int { return p.dim }
