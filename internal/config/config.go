package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// TFIDFConfig tunes the TF-IDF embedder.
type TFIDFConfig struct {
	NGrams      int `yaml:"ngrams"`
	MaxFeatures int `yaml:"max_features"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	TFIDF  TFIDFConfig           `yaml:"tfidf"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// SegmenterConfig configures how documents are split into segments.
type SegmenterConfig struct {
	Type                string `yaml:"type"`
	SentencesPerSegment int    `yaml:"sentences_per_segment"`
	OverlapSentences    int    `yaml:"overlap_sentences"`
}

// TikaConfig points at an Apache Tika server used for non-text documents.
type TikaConfig struct {
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ExtractorConfig configures document text extraction.
type ExtractorConfig struct {
	Tika *TikaConfig `yaml:"tika,omitempty"`
}

// EngineConfig tunes the alignment engine.
type EngineConfig struct {
	Workers       int `yaml:"workers"`
	ExcerptLength int `yaml:"excerpt_length"`
}

// CorpusConfig locates the framework corpus. An empty path uses the
// built-in corpus.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig selects the persistent embedding tier.
type CacheConfig struct {
	Type       string `yaml:"type"`
	SQLitePath string `yaml:"sqlite_path"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Segmenter  SegmenterConfig  `yaml:"segmenter"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Engine     EngineConfig     `yaml:"engine"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Cache      CacheConfig      `yaml:"cache"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Log        LogConfig        `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/esgalign/config.yaml.
// If neither exists, it writes defaults to ~/.config/esgalign/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports every invalid setting at once.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Embedder.Type {
	case "tfidf":
	case "openai":
		if c.Embedder.OpenAI == nil || c.Embedder.OpenAI.APIKeyEnv == "" {
			errs = append(errs, errors.New("embedder.openai.api_key_env is required for the openai embedder"))
		}
	default:
		errs = append(errs, fmt.Errorf("embedder.type %q is not one of tfidf, openai", c.Embedder.Type))
	}
	switch c.Segmenter.Type {
	case "page", "sentence":
	default:
		errs = append(errs, fmt.Errorf("segmenter.type %q is not one of page, sentence", c.Segmenter.Type))
	}
	if c.Segmenter.OverlapSentences < 0 {
		errs = append(errs, errors.New("segmenter.overlap_sentences must not be negative"))
	}
	switch c.Cache.Type {
	case "memory":
	case "sqlite":
		if c.Cache.SQLitePath == "" {
			errs = append(errs, errors.New("cache.sqlite_path is required for the sqlite cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.type %q is not one of memory, sqlite", c.Cache.Type))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, errors.New("engine.workers must not be negative"))
	}
	if c.Engine.ExcerptLength < 0 {
		errs = append(errs, errors.New("engine.excerpt_length must not be negative"))
	}
	if c.Extractor.Tika != nil && c.Extractor.Tika.URL == "" {
		errs = append(errs, errors.New("extractor.tika.url is required when extractor.tika is set"))
	}
	switch c.Summarizer.Type {
	case "frequency", "none":
	default:
		errs = append(errs, fmt.Errorf("summarizer.type %q is not one of frequency, none", c.Summarizer.Type))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of console, json", c.Log.Format))
	}
	return errors.Join(errs...)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "esgalign", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:   EmbedderConfig{Type: "tfidf", TFIDF: TFIDFConfig{NGrams: 2, MaxFeatures: 10000}},
		Segmenter:  SegmenterConfig{Type: "page", SentencesPerSegment: 5, OverlapSentences: 1},
		Engine:     EngineConfig{Workers: 8, ExcerptLength: 240},
		Cache:      CacheConfig{Type: "memory"},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 3},
		Log:        LogConfig{Level: "info", Format: "console"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.TFIDF.NGrams == 0 {
		cfg.Embedder.TFIDF.NGrams = def.Embedder.TFIDF.NGrams
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.MaxRetries == 0 {
			cfg.Embedder.OpenAI.MaxRetries = 3
		}
	}
	if cfg.Segmenter.Type == "" {
		cfg.Segmenter.Type = def.Segmenter.Type
	}
	if cfg.Segmenter.SentencesPerSegment == 0 {
		cfg.Segmenter.SentencesPerSegment = def.Segmenter.SentencesPerSegment
	}
	if cfg.Extractor.Tika != nil && cfg.Extractor.Tika.TimeoutSecs == 0 {
		cfg.Extractor.Tika.TimeoutSecs = 60
	}
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = def.Engine.Workers
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = def.Cache.Type
	}
	if cfg.Cache.Type == "sqlite" && cfg.Cache.SQLitePath == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cfg.Cache.SQLitePath = filepath.Join(dir, "esgalign", "embeddings.db")
		}
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = def.Summarizer.Type
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = def.Summarizer.MaxSentences
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}
