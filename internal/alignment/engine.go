// Package alignment scores documents against framework requirements and
// builds the framework-to-framework similarity matrix.
//
// Scoring policy:
//   - a topic scores the maximum similarity over every (requirement, segment)
//     pair, and keeps that pair as its best match. Ties keep the first pair
//     in requirement order, then segment order;
//   - a framework scores the unweighted mean of its topic scores;
//   - topics keep the framework's canonical order, frameworks are ranked by
//     descending score with ties in corpus order.
package alignment

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"esgalign/internal/corpus"
	"esgalign/internal/domain"
	"esgalign/internal/embedding"
	"esgalign/internal/logger"
	"esgalign/internal/observe"
	"esgalign/internal/textutil"
)

// DefaultExcerptLength is the rune length of best-match excerpts.
const DefaultExcerptLength = 240

type options struct {
	workers    int
	excerptLen int
	log        *zap.Logger
	metrics    *observe.Metrics
}

// Option configures an Engine or MatrixBuilder.
type Option func(*options)

// WithWorkers bounds the number of concurrent embedder and scoring tasks.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithExcerptLength sets the excerpt length in runes; 0 keeps whole segments.
func WithExcerptLength(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.excerptLen = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{
		workers:    runtime.GOMAXPROCS(0),
		excerptLen: DefaultExcerptLength,
	}
	for _, fn := range opts {
		fn(&o)
	}
	o.log = logger.OrNop(o.log)
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// Engine scores documents. It is safe for concurrent use; runs share the
// embedding cache and nothing else.
type Engine struct {
	corpus *corpus.Corpus
	cache  *embedding.Cache
	opts   options
}

// NewEngine returns an engine over c whose vectors come from cache.
func NewEngine(c *corpus.Corpus, cache *embedding.Cache, opts ...Option) *Engine {
	return &Engine{corpus: c, cache: cache, opts: buildOptions(opts)}
}

// Score produces the alignment report of segments against the selected
// frameworks. Blank segments are ignored. The report is all or nothing: any
// error, including cancellation, returns a nil report.
func (e *Engine) Score(ctx context.Context, segments iter.Seq[domain.Segment], codes []string) (*domain.Report, error) {
	start := time.Now()
	frameworks, err := e.corpus.Resolve(codes)
	if err != nil {
		return nil, err
	}
	segs := collect(segments)
	if len(segs) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	log := e.opts.log.With(zap.Int("frameworks", len(frameworks)), zap.Int("segments", len(segs)))
	log.Debug("scoring started")

	vecs, err := e.embed(ctx, frameworks, segs)
	if err != nil {
		return nil, err
	}

	scores := make([]domain.FrameworkScore, len(frameworks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.workers)
	for fi, fw := range frameworks {
		name := fw.Name
		if name == "" {
			name = fw.Code
		}
		scores[fi] = domain.FrameworkScore{
			Code:        fw.Code,
			DisplayName: name,
			Topics:      make([]domain.TopicScore, len(fw.Topics)),
		}
		for ti, topic := range fw.Topics {
			g.Go(func() error {
				ts, err := e.scoreTopic(gctx, topic, vecs.requirements[fi][ti], segs, vecs.segments)
				if err != nil {
					return fmt.Errorf("%s/%s: %w", fw.Code, topic.ID, err)
				}
				scores[fi].Topics[ti] = ts
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range scores {
		var sum float64
		for _, t := range scores[i].Topics {
			sum += t.Score
		}
		scores[i].OverallScore = sum / float64(len(scores[i].Topics))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].OverallScore != scores[j].OverallScore {
			return scores[i].OverallScore > scores[j].OverallScore
		}
		return e.corpus.Position(scores[i].Code) < e.corpus.Position(scores[j].Code)
	})

	took := time.Since(start)
	e.opts.metrics.RecordRun(ctx, "score", took)
	log.Info("scoring finished", zap.Duration("took", took), zap.String("top", scores[0].Code))
	return &domain.Report{Frameworks: scores}, nil
}

func (e *Engine) scoreTopic(ctx context.Context, topic domain.Topic, reqs [][]float64, segs []domain.Segment, segVecs [][]float64) (domain.TopicScore, error) {
	best, bestReq, bestSeg := 0.0, -1, -1
	for ri, rv := range reqs {
		if err := ctx.Err(); err != nil {
			return domain.TopicScore{}, err
		}
		for si, sv := range segVecs {
			s, err := e.cache.VectorSimilarity(rv, sv, topic.Requirements[ri])
			if err != nil {
				return domain.TopicScore{}, err
			}
			if bestReq < 0 || s > best {
				best, bestReq, bestSeg = s, ri, si
			}
		}
	}
	seg := segs[bestSeg]
	band := domain.BandFor(best)
	return domain.TopicScore{
		TopicID:     topic.ID,
		TopicName:   topic.Name,
		Score:       best,
		Band:        band,
		Explanation: band.Explanation(),
		BestMatch: domain.Match{
			RequirementText: topic.Requirements[bestReq],
			SegmentIndex:    seg.Index,
			SegmentPage:     seg.Page,
			SegmentExcerpt:  textutil.Excerpt(seg.Text, e.opts.excerptLen),
		},
	}, nil
}

// runVectors holds the vectors of one run, indexed like its inputs.
type runVectors struct {
	requirements [][][][]float64 // framework, topic, requirement
	segments     [][]float64
}

// embed fetches every vector the run needs. Each distinct normalised text
// is requested once; the cache collapses requests shared with other runs.
func (e *Engine) embed(ctx context.Context, frameworks []domain.Framework, segs []domain.Segment) (*runVectors, error) {
	var (
		texts []string
		index = make(map[string]int)
	)
	slot := func(text string) int {
		key := textutil.Normalize(text)
		if i, ok := index[key]; ok {
			return i
		}
		index[key] = len(texts)
		texts = append(texts, text)
		return len(texts) - 1
	}

	reqSlots := make([][][]int, len(frameworks))
	for fi, fw := range frameworks {
		reqSlots[fi] = make([][]int, len(fw.Topics))
		for ti, t := range fw.Topics {
			reqSlots[fi][ti] = make([]int, len(t.Requirements))
			for ri, r := range t.Requirements {
				reqSlots[fi][ti][ri] = slot(r)
			}
		}
	}
	segSlots := make([]int, len(segs))
	for si, s := range segs {
		segSlots[si] = slot(s.Text)
	}

	vectors, err := e.fetch(ctx, texts)
	if err != nil {
		return nil, err
	}

	out := &runVectors{
		requirements: make([][][][]float64, len(frameworks)),
		segments:     make([][]float64, len(segs)),
	}
	for fi := range reqSlots {
		out.requirements[fi] = make([][][]float64, len(reqSlots[fi]))
		for ti := range reqSlots[fi] {
			out.requirements[fi][ti] = make([][]float64, len(reqSlots[fi][ti]))
			for ri, s := range reqSlots[fi][ti] {
				out.requirements[fi][ti][ri] = vectors[s]
			}
		}
	}
	for si, s := range segSlots {
		out.segments[si] = vectors[s]
	}
	return out, nil
}

func (e *Engine) fetch(ctx context.Context, texts []string) ([][]float64, error) {
	return fetchAll(ctx, e.cache, texts, e.opts.workers)
}

func fetchAll(ctx context.Context, cache *embedding.Cache, texts []string, workers int) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, text := range texts {
		g.Go(func() error {
			v, err := cache.Get(gctx, text)
			if err != nil {
				return err
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func collect(segments iter.Seq[domain.Segment]) []domain.Segment {
	var out []domain.Segment
	if segments == nil {
		return nil
	}
	for s := range segments {
		if textutil.IsBlank(s.Text) {
			continue
		}
		out = append(out, s)
	}
	return out
}
