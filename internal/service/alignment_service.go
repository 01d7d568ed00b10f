package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"esgalign/internal/alignment"
	"esgalign/internal/corpus"
	"esgalign/internal/domain"
	"esgalign/internal/embedding"
	"esgalign/internal/logger"
	"esgalign/internal/observe"
	"esgalign/internal/textutil"
)

// Analysis is one scored document.
type Analysis struct {
	ID        uuid.UUID        `json:"id"`
	Document  string           `json:"document"`
	Pages     int              `json:"pages"`
	Segments  []domain.Segment `json:"-"`
	Synopsis  string           `json:"synopsis,omitempty"`
	Embedder  string           `json:"embedder"`
	CreatedAt time.Time        `json:"created_at"`
	Report    *domain.Report   `json:"report"`
}

// Deps are the collaborators of an AlignmentService.
type Deps struct {
	Corpus              *corpus.Corpus
	Extractor           domain.Extractor
	Segmenter           domain.Segmenter
	Summarizer          domain.Summarizer
	SummaryMaxSentences int

	// NewEmbedder returns an embedder. Embedders implementing domain.Fitter
	// are requested once per run and fitted on that run's texts; others are
	// requested once and share one cache for the service's lifetime.
	NewEmbedder func() (domain.Embedder, error)

	// Store is an optional persistent tier for the shared cache. It is
	// never used with fitted embedders, whose vectors only hold for one fit.
	Store embedding.Store

	Logger        *zap.Logger
	Metrics       *observe.Metrics
	EngineOptions []alignment.Option
}

// AlignmentService runs analyses end to end: extraction, segmentation,
// embedding and scoring.
type AlignmentService struct {
	deps   Deps
	log    *zap.Logger
	fitted bool
	shared *embedding.Cache

	matrixOnce sync.Once
	matrix     *alignment.MatrixBuilder
	matrixErr  error
}

// New validates deps and returns a service.
func New(deps Deps) (*AlignmentService, error) {
	var errs []error
	if deps.Corpus == nil {
		errs = append(errs, errors.New("corpus is required"))
	}
	if deps.Extractor == nil {
		errs = append(errs, errors.New("extractor is required"))
	}
	if deps.Segmenter == nil {
		errs = append(errs, errors.New("segmenter is required"))
	}
	if deps.NewEmbedder == nil {
		errs = append(errs, errors.New("embedder factory is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	s := &AlignmentService{deps: deps, log: logger.OrNop(deps.Logger)}

	emb, err := deps.NewEmbedder()
	if err != nil {
		return nil, fmt.Errorf("service: embedder: %w", err)
	}
	if _, ok := emb.(domain.Fitter); ok {
		s.fitted = true
	} else {
		opts := s.cacheOptions()
		if deps.Store != nil {
			opts = append(opts, embedding.WithStore(deps.Store))
		}
		s.shared = embedding.NewCache(emb, opts...)
	}
	return s, nil
}

func (s *AlignmentService) cacheOptions() []embedding.CacheOption {
	return []embedding.CacheOption{embedding.WithLogger(s.log), embedding.WithMetrics(s.deps.Metrics)}
}

func (s *AlignmentService) engineOptions() []alignment.Option {
	opts := []alignment.Option{alignment.WithLogger(s.log), alignment.WithMetrics(s.deps.Metrics)}
	return append(opts, s.deps.EngineOptions...)
}

// Frameworks lists the corpus in canonical order.
func (s *AlignmentService) Frameworks() []domain.Framework {
	return s.deps.Corpus.Frameworks()
}

// Analyze extracts the file at path and scores it against codes.
func (s *AlignmentService) Analyze(ctx context.Context, path string, codes []string) (*Analysis, error) {
	if _, err := s.deps.Corpus.Resolve(codes); err != nil {
		return nil, err
	}
	doc, err := s.deps.Extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.AnalyzeDocument(ctx, doc, codes)
}

// AnalyzeDocument scores an already extracted document against codes.
func (s *AlignmentService) AnalyzeDocument(ctx context.Context, doc domain.Document, codes []string) (*Analysis, error) {
	frameworks, err := s.deps.Corpus.Resolve(codes)
	if err != nil {
		return nil, err
	}
	segs := slices.Collect(s.deps.Segmenter.Segment(doc))
	var texts []string
	for _, seg := range segs {
		if !textutil.IsBlank(seg.Text) {
			texts = append(texts, seg.Text)
		}
	}
	if len(texts) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	log := s.log.With(zap.String("document", doc.ID))

	cache := s.shared
	if s.fitted {
		if cache, err = s.fittedCache(append(corpus.RequirementTexts(frameworks), texts...)); err != nil {
			return nil, err
		}
	}
	engine := alignment.NewEngine(s.deps.Corpus, cache, s.engineOptions()...)
	report, err := engine.Score(ctx, slices.Values(segs), codes)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		ID:        uuid.New(),
		Document:  doc.ID,
		Pages:     len(doc.Pages),
		Segments:  segs,
		Embedder:  cache.Embedder().Name(),
		CreatedAt: time.Now().UTC(),
		Report:    report,
	}
	if s.deps.Summarizer != nil {
		synopsis, err := s.deps.Summarizer.Summarize(strings.Join(doc.Pages, "\n"), s.deps.SummaryMaxSentences)
		if err != nil {
			log.Warn("synopsis failed", zap.Error(err))
		}
		a.Synopsis = synopsis
	}
	log.Info("analysis complete", zap.Stringer("id", a.ID), zap.Int("segments", len(texts)))
	return a, nil
}

// Matrix returns the framework similarity matrix for codes, or for the whole
// corpus when codes is empty, built from the topics of category.
func (s *AlignmentService) Matrix(ctx context.Context, codes []string, category domain.Category) (*domain.Matrix, error) {
	s.matrixOnce.Do(func() {
		cache := s.shared
		if s.fitted {
			cache, s.matrixErr = s.fittedCache(corpus.RequirementTexts(s.deps.Corpus.Frameworks()))
			if s.matrixErr != nil {
				return
			}
		}
		s.matrix = alignment.NewMatrixBuilder(s.deps.Corpus, cache, s.engineOptions()...)
	})
	if s.matrixErr != nil {
		return nil, s.matrixErr
	}
	return s.matrix.Build(ctx, codes, category)
}

// ClearCache empties the shared embedding cache between independent
// sessions. Fitted embedders have no shared cache.
func (s *AlignmentService) ClearCache() {
	if s.shared != nil {
		s.shared.Clear()
	}
}

// fittedCache builds a fresh embedder, fits it on texts and wraps it in a
// cache private to the caller.
func (s *AlignmentService) fittedCache(texts []string) (*embedding.Cache, error) {
	emb, err := s.deps.NewEmbedder()
	if err != nil {
		return nil, fmt.Errorf("service: embedder: %w", err)
	}
	f, ok := emb.(domain.Fitter)
	if !ok {
		return nil, fmt.Errorf("service: embedder %s is not fittable", emb.Name())
	}
	if err := f.Prepare(texts); err != nil {
		return nil, &domain.EmbeddingError{Text: "(fit)", Err: err}
	}
	return embedding.NewCache(emb, s.cacheOptions()...), nil
}
