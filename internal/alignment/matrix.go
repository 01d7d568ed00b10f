package alignment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"esgalign/internal/corpus"
	"esgalign/internal/domain"
	"esgalign/internal/embedding"
)

// MatrixBuilder computes framework-to-framework similarity. Each framework
// is represented by one aggregate vector: requirement vectors are averaged
// per topic, and topic vectors are averaged per framework. Results are
// memoised per corpus content, embedder and selection.
type MatrixBuilder struct {
	corpus *corpus.Corpus
	cache  *embedding.Cache
	opts   options

	group singleflight.Group
	mu    sync.Mutex
	memo  map[string]*domain.Matrix
}

// NewMatrixBuilder returns a builder over c whose vectors come from cache.
func NewMatrixBuilder(c *corpus.Corpus, cache *embedding.Cache, opts ...Option) *MatrixBuilder {
	return &MatrixBuilder{
		corpus: c,
		cache:  cache,
		opts:   buildOptions(opts),
		memo:   make(map[string]*domain.Matrix),
	}
}

// Build returns the similarity matrix of the selected frameworks in corpus
// order, or of every framework when codes is empty. The matrix is symmetric
// with exactly 1 on the diagonal.
//
// category restricts the topics that make up each framework's vector;
// frameworks without a matching topic are left out of the matrix. The
// computation is shared by concurrent callers asking for the same matrix
// and is not cancelled when one of them gives up.
func (b *MatrixBuilder) Build(ctx context.Context, codes []string, category domain.Category) (*domain.Matrix, error) {
	if category == "" {
		category = domain.CategoryAll
	}
	frameworks := b.corpus.Frameworks()
	if len(codes) > 0 {
		var err error
		if frameworks, err = b.corpus.Resolve(codes); err != nil {
			return nil, err
		}
		sort.SliceStable(frameworks, func(i, j int) bool {
			return b.corpus.Position(frameworks[i].Code) < b.corpus.Position(frameworks[j].Code)
		})
	}
	frameworks = filterTopics(frameworks, category)
	if len(frameworks) == 0 {
		return nil, fmt.Errorf("%w: no selected framework has %s topics", domain.ErrInvalidSelection, category)
	}

	key := b.memoKey(frameworks, category)
	b.mu.Lock()
	m, ok := b.memo[key]
	b.mu.Unlock()
	if ok {
		return cloneMatrix(m), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	computeCtx := context.WithoutCancel(ctx)
	ch := b.group.DoChan(key, func() (any, error) {
		m, err := b.compute(computeCtx, frameworks, category)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.memo[key] = m
		b.mu.Unlock()
		return m, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneMatrix(res.Val.(*domain.Matrix)), nil
	}
}

// filterTopics keeps the topics of each framework that match category and
// drops frameworks left without any.
func filterTopics(frameworks []domain.Framework, category domain.Category) []domain.Framework {
	if category == domain.CategoryAll {
		return frameworks
	}
	out := frameworks[:0]
	for _, fw := range frameworks {
		var topics []domain.Topic
		for _, t := range fw.Topics {
			if category.Matches(t) {
				topics = append(topics, t)
			}
		}
		if len(topics) == 0 {
			continue
		}
		fw.Topics = topics
		out = append(out, fw)
	}
	return out
}

// Invalidate drops every memoised matrix.
func (b *MatrixBuilder) Invalidate() {
	b.mu.Lock()
	b.memo = make(map[string]*domain.Matrix)
	b.mu.Unlock()
}

func (b *MatrixBuilder) memoKey(frameworks []domain.Framework, category domain.Category) string {
	codes := make([]string, len(frameworks))
	for i, fw := range frameworks {
		codes[i] = fw.Code
	}
	return b.corpus.Fingerprint() + "|" + b.cache.Embedder().Name() + "|" + string(category) + "|" + strings.Join(codes, ",")
}

func (b *MatrixBuilder) compute(ctx context.Context, frameworks []domain.Framework, category domain.Category) (*domain.Matrix, error) {
	start := time.Now()
	texts := corpus.RequirementTexts(frameworks)
	vectors, err := fetchAll(ctx, b.cache, texts, b.opts.workers)
	if err != nil {
		return nil, err
	}

	aggregates := make([][]float64, len(frameworks))
	next := 0
	for fi, fw := range frameworks {
		topicVecs := make([][]float64, len(fw.Topics))
		for ti, t := range fw.Topics {
			topicVecs[ti], err = embedding.Mean(vectors[next : next+len(t.Requirements)])
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", fw.Code, t.ID, err)
			}
			next += len(t.Requirements)
		}
		if aggregates[fi], err = embedding.Mean(topicVecs); err != nil {
			return nil, fmt.Errorf("%s: %w", fw.Code, err)
		}
	}

	n := len(frameworks)
	m := &domain.Matrix{
		Codes:  make([]string, n),
		Values: make([][]float64, n),
	}
	for i, fw := range frameworks {
		m.Codes[i] = fw.Code
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < n; j++ {
			s, err := b.cache.VectorSimilarity(aggregates[i], aggregates[j], m.Codes[i]+" vs "+m.Codes[j])
			if err != nil {
				return nil, err
			}
			m.Values[i][j] = s
			m.Values[j][i] = s
		}
	}

	took := time.Since(start)
	b.opts.metrics.RecordRun(ctx, "matrix", took)
	b.opts.log.Info("similarity matrix built", zap.Int("frameworks", n), zap.String("category", string(category)), zap.Duration("took", took))
	return m, nil
}

func cloneMatrix(m *domain.Matrix) *domain.Matrix {
	out := &domain.Matrix{
		Codes:  append([]string(nil), m.Codes...),
		Values: make([][]float64, len(m.Values)),
	}
	for i, row := range m.Values {
		out.Values[i] = append([]float64(nil), row...)
	}
	return out
}
