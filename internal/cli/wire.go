package cli

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"esgalign/internal/alignment"
	"esgalign/internal/config"
	"esgalign/internal/corpus"
	"esgalign/internal/domain"
	"esgalign/internal/embedding"
	"esgalign/internal/embedding/openai"
	"esgalign/internal/embedding/tfidf"
	"esgalign/internal/extract"
	"esgalign/internal/logger"
	"esgalign/internal/observe"
	"esgalign/internal/segmenter"
	"esgalign/internal/service"
	"esgalign/internal/summarizer"
	"esgalign/internal/vectorstore/sqlite"
)

// Build assembles the alignment service described by cfg. The returned
// function closes the persistent embedding store, if any.
func Build(cfg *config.AppConfig, log *zap.Logger) (*service.AlignmentService, func() error, error) {
	log = logger.OrNop(log)
	c, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, nil, err
	}
	seg, err := segmenter.New(cfg.Segmenter.Type, cfg.Segmenter.SentencesPerSegment, cfg.Segmenter.OverlapSentences)
	if err != nil {
		return nil, nil, err
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	case "none":
	default:
		return nil, nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	var fallback domain.Extractor
	if t := cfg.Extractor.Tika; t != nil {
		fallback = extract.NewTika(t.URL, time.Duration(t.TimeoutSecs)*time.Second)
	}

	newEmbedder, err := embedderFactory(cfg.Embedder)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() error { return nil }
	var store embedding.Store
	if cfg.Cache.Type == "sqlite" && cfg.Embedder.Type != "tfidf" {
		st, err := sqlite.Open(cfg.Cache.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = st, st.Close
		log.Debug("embedding store opened", zap.String("path", cfg.Cache.SQLitePath))
	}

	svc, err := service.New(service.Deps{
		Corpus:              c,
		Extractor:           extract.NewRouter(fallback),
		Segmenter:           seg,
		Summarizer:          sum,
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
		NewEmbedder:         newEmbedder,
		Store:               store,
		Logger:              log,
		Metrics:             observe.DefaultMetrics(),
		EngineOptions: []alignment.Option{
			alignment.WithWorkers(cfg.Engine.Workers),
			alignment.WithExcerptLength(cfg.Engine.ExcerptLength),
		},
	})
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

func embedderFactory(cfg config.EmbedderConfig) (func() (domain.Embedder, error), error) {
	switch cfg.Type {
	case "tfidf", "":
		return func() (domain.Embedder, error) {
			return tfidf.NewEmbedder(
				tfidf.WithNGrams(cfg.TFIDF.NGrams),
				tfidf.WithMaxFeatures(cfg.TFIDF.MaxFeatures),
			), nil
		}, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		oc := openai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries:        cfg.OpenAI.MaxRetries,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		}
		return func() (domain.Embedder, error) {
			c, err := openai.NewClient(oc)
			if err != nil {
				return nil, err
			}
			return c, nil
		}, nil
	}
	return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
}
