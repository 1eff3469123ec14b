package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"inkwell/internal/fault"
)

type DatabaseConfig struct {
	// Supabase Postgres connection URL; empty selects the local backends.
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Debug bool   `yaml:"debug"`
}

type AIConfig struct {
	// Zhipu API key in "id.secret" form; empty selects the mock streamer.
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// Pointers so an explicit 0 (greedy sampling) is distinguishable from an
	// absent key.
	Temperature *float64 `yaml:"temperature"`
	TopP        *float64 `yaml:"top_p"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "openai" or "ollama"
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
	Dim      int    `yaml:"dim"`
}

type RAGConfig struct {
	ChunkSize           int     `yaml:"chunk_size"`
	TrailingWindow      int     `yaml:"trailing_window"`
	MinContext          int     `yaml:"min_context"`
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float32 `yaml:"similarity_threshold"`
	// AllowDegradedRecall continues without recalled context when the memory
	// store fails, instead of aborting the continuation.
	AllowDegradedRecall bool `yaml:"allow_degraded_recall"`
}

type AutosaveConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
}

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	AI        AIConfig        `yaml:"ai"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	RAG       RAGConfig       `yaml:"rag"`
	Autosave  AutosaveConfig  `yaml:"autosave"`
	Debug     bool            `yaml:"debug"`
	DataDir   string          `yaml:"data_dir"`
}

const (
	DefaultChunkSize           = 500
	DefaultTrailingWindow      = 1000
	DefaultMinContext          = 50
	DefaultTopK                = 3
	DefaultSimilarityThreshold float32 = 0.3
	DefaultAutosaveDebounceMs  = 1000
	DefaultEmbeddingDim        = 384
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a usable config when no file is present: local store, mock
// streamer, standard retrieval parameters.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

// applyEnv overlays credentials from the environment (loaded from .env by the
// caller) over the file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("INKWELL_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("INKWELL_DATABASE_KEY"); v != "" {
		c.Database.Key = v
	}
	if v := os.Getenv("INKWELL_ZHIPU_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("INKWELL_EMBEDDING_KEY"); v != "" {
		c.Embedding.Key = v
	}
}

func (c *Config) applyDefaults() {
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://open.bigmodel.cn/api/paas/v4"
	}
	if c.AI.Model == "" {
		c.AI.Model = "glm-4.5-flash"
	}
	if c.AI.Temperature == nil {
		v := 0.7
		c.AI.Temperature = &v
	}
	if c.AI.TopP == nil {
		v := 0.9
		c.AI.TopP = &v
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "ollama"
	}
	if c.Embedding.BaseURL == "" && c.Embedding.Provider == "ollama" {
		c.Embedding.BaseURL = "http://localhost:11434"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "all-minilm"
	}
	if c.Embedding.Dim == 0 {
		c.Embedding.Dim = DefaultEmbeddingDim
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = DefaultChunkSize
	}
	if c.RAG.TrailingWindow == 0 {
		c.RAG.TrailingWindow = DefaultTrailingWindow
	}
	if c.RAG.MinContext == 0 {
		c.RAG.MinContext = DefaultMinContext
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = DefaultTopK
	}
	if c.RAG.SimilarityThreshold == 0 {
		c.RAG.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.Autosave.DebounceMs == 0 {
		c.Autosave.DebounceMs = DefaultAutosaveDebounceMs
	}
	if c.DataDir == "" {
		c.DataDir = "./inkwell-data"
	}
}

// HasDatabase reports whether the hosted Postgres backend is configured.
func (c *Config) HasDatabase() bool { return c.Database.URL != "" }

// HasAI reports whether the real completion service is configured.
func (c *Config) HasAI() bool { return c.AI.APIKey != "" }

// RequireAI returns a configuration fault when the completion credential is
// missing and the caller cannot fall back to the mock streamer.
func (c *Config) RequireAI() error {
	if c.HasAI() {
		return nil
	}
	return fault.New(fault.Configuration, "config.RequireAI", "ai.api_key is not set")
}
