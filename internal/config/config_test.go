package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/fault"
)

func TestLoadConfig_DefaultsFillGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rag:\n  top_k: 5\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, DefaultChunkSize, cfg.RAG.ChunkSize)
	assert.Equal(t, DefaultTrailingWindow, cfg.RAG.TrailingWindow)
	assert.EqualValues(t, DefaultSimilarityThreshold, cfg.RAG.SimilarityThreshold)
	assert.Equal(t, DefaultAutosaveDebounceMs, cfg.Autosave.DebounceMs)
	assert.Equal(t, "glm-4.5-flash", cfg.AI.Model)
}

func TestLoadConfig_EnvOverridesCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai:\n  api_key: from-file.secret\n"), 0o644))
	t.Setenv("INKWELL_ZHIPU_API_KEY", "from-env.secret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.secret", cfg.AI.APIKey)
}

func TestLoadConfig_ZeroSamplingHonored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai:\n  temperature: 0\n  top_p: 0\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.AI.Temperature)
	require.NotNil(t, cfg.AI.TopP)
	assert.Zero(t, *cfg.AI.Temperature, "explicit 0 stays 0")
	assert.Zero(t, *cfg.AI.TopP)

	bare := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(bare, []byte("debug: false\n"), 0o644))
	omitted, err := LoadConfig(bare)
	require.NoError(t, err)
	require.NotNil(t, omitted.AI.Temperature)
	assert.Equal(t, 0.7, *omitted.AI.Temperature, "omitted key gets the default")
	assert.Equal(t, 0.9, *omitted.AI.TopP)
}

func TestDefault_DegradedModeFlags(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.HasDatabase())
	assert.False(t, cfg.HasAI())

	err := cfg.RequireAI()
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Configuration))

	cfg.AI.APIKey = "id.secret"
	assert.True(t, cfg.HasAI())
	assert.NoError(t, cfg.RequireAI())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
