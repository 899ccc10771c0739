package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "pagamenti_busto", cfg.QdrantCollection)
	assert.Equal(t, "text-embedding-004", cfg.EmbeddingModel)
	assert.Equal(t, 7, cfg.RAGResults)
	assert.Equal(t, 128, cfg.CacheSize)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 250, cfg.Ingest.ChunkSizeWords)
	assert.Equal(t, 40, cfg.Ingest.ChunkOverlapWords)
	assert.Equal(t, "it", cfg.Enrich.WikipediaLang)
}

func TestLoadWithoutAPIKeySucceeds(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err, "entrypoints that never call Gemini must load without the key")
	assert.Empty(t, cfg.GoogleAPIKey)
}

func TestRequireGeminiKey(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.RequireGeminiKey(), ErrMissingAPIKey)

	cfg.GoogleAPIKey = "test-key"
	assert.NoError(t, cfg.RequireGeminiKey())
}

func TestLoadOverridesAndPortNormalization(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	t.Setenv("PORT", "9090")
	t.Setenv("RAG_DEFAULT_N_RESULTS", "15")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, 15, cfg.RAGResults)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}
