package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder:\n  type: openai\nsegmenter:\n  type: sentence\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 3, cfg.Embedder.OpenAI.MaxRetries)
	assert.Equal(t, 5, cfg.Segmenter.SentencesPerSegment)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder:\n  type: word2vec\ncache:\n  type: redis\nlog:\n  format: xml\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word2vec")
	assert.Contains(t, err.Error(), "redis")
	assert.Contains(t, err.Error(), "xml")
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Extractor.Tika = &TikaConfig{URL: "http://localhost:9998", TimeoutSecs: 10}
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "esgalign", "config.yaml"), path)
	assert.Equal(t, defaultConfig(), cfg)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestValidate_SQLiteNeedsPath(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cache = CacheConfig{Type: "sqlite"}
	assert.ErrorContains(t, cfg.Validate(), "sqlite_path")
}

func TestValidate_Summarizer(t *testing.T) {
	cfg := defaultConfig()
	cfg.Summarizer.Type = "none"
	assert.NoError(t, cfg.Validate())

	cfg.Summarizer.Type = "llm"
	assert.ErrorContains(t, cfg.Validate(), "summarizer.type")
}
