package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"esgalign/internal/domain"
	"esgalign/internal/logger"
	"esgalign/internal/observe"
	"esgalign/internal/textutil"
)

// Store is an optional second cache tier, typically persistent. Keys are
// normalised texts; vectors are scoped by embedder name.
type Store interface {
	Get(ctx context.Context, embedder, key string) ([]float64, bool, error)
	Put(ctx context.Context, embedder, key string, vec []float64) error
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries    int
	Hits       int64
	Misses     int64
	EmbedCalls int64
	StoreHits  int64
}

// Cache memoises the vectors of one embedder, keyed by normalised text.
// Concurrent requests for the same key result in exactly one backend call.
// Returned vectors are shared and must not be modified.
type Cache struct {
	emb     domain.Embedder
	store   Store
	metrics *observe.Metrics
	log     *zap.Logger

	mu      sync.RWMutex
	entries map[string][]float64
	group   singleflight.Group

	hits, misses, calls, storeHits atomic.Int64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithStore adds a second-tier store consulted on a miss.
func WithStore(s Store) CacheOption {
	return func(c *Cache) { c.store = s }
}

// WithMetrics records cache and backend activity on m.
func WithMetrics(m *observe.Metrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) { c.log = l }
}

// NewCache returns an empty cache bound to emb.
func NewCache(emb domain.Embedder, opts ...CacheOption) *Cache {
	c := &Cache{
		emb:     emb,
		entries: make(map[string][]float64),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = logger.OrNop(c.log).With(zap.String("embedder", emb.Name()))
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Embedder returns the embedder the cache is bound to.
func (c *Cache) Embedder() domain.Embedder { return c.emb }

// Get returns the vector for text, embedding it on first use. Texts that
// normalise to the same string share one vector; the normalised form is
// what gets embedded, so casing and spacing never change a vector, even
// for embedders that would distinguish them.
//
// The backend call is shared by every caller waiting on the same key and
// runs detached from their contexts: a caller that gives up gets its own
// ctx error while the others still receive the vector. Backend deadlines
// are the embedder's own (HTTP timeout, SDK retries).
func (c *Cache) Get(ctx context.Context, text string) ([]float64, error) {
	key := textutil.Normalize(text)
	if key == "" {
		return nil, &domain.EmbeddingError{Text: text, Err: errors.New("blank text")}
	}

	c.mu.RLock()
	vec, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		c.metrics.CacheHits.Add(ctx, 1)
		return vec, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.misses.Add(1)
	c.metrics.CacheMisses.Add(ctx, 1)

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(loadCtx, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var embErr *domain.EmbeddingError
			if errors.As(res.Err, &embErr) {
				return nil, res.Err
			}
			return nil, &domain.EmbeddingError{Text: text, Err: res.Err}
		}
		return res.Val.([]float64), nil
	}
}

func (c *Cache) load(ctx context.Context, key string) ([]float64, error) {
	c.mu.RLock()
	vec, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return vec, nil
	}

	if c.store != nil {
		stored, found, err := c.store.Get(ctx, c.emb.Name(), key)
		if err != nil {
			c.log.Warn("embedding store read failed", zap.Error(err))
		} else if found && Validate(stored) == nil {
			c.storeHits.Add(1)
			c.put(key, stored)
			return stored, nil
		}
	}

	c.calls.Add(1)
	start := time.Now()
	vec, err := c.emb.Embed(ctx, key)
	c.metrics.RecordEmbed(ctx, c.emb.Name(), time.Since(start), err)
	if err != nil {
		return nil, &domain.EmbeddingError{Text: key, Err: err}
	}
	if err := Validate(vec); err != nil {
		return nil, &domain.EmbeddingError{Text: key, Err: err}
	}
	c.put(key, vec)

	if c.store != nil {
		if err := c.store.Put(ctx, c.emb.Name(), key, vec); err != nil {
			c.log.Warn("embedding store write failed", zap.Error(err))
		}
	}
	return vec, nil
}

func (c *Cache) put(key string, vec []float64) {
	c.mu.Lock()
	c.entries[key] = vec
	c.mu.Unlock()
}

// Similarity embeds both texts and returns their validated similarity.
// a and b may be the same text, in which case the result is 1 for any
// non-zero vector.
func (c *Cache) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := c.Get(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := c.Get(ctx, b)
	if err != nil {
		return 0, err
	}
	return c.VectorSimilarity(va, vb, b)
}

// VectorSimilarity compares two cached vectors with the embedder's
// similarity function and validates the result. label names the text in
// any error.
func (c *Cache) VectorSimilarity(a, b []float64, label string) (float64, error) {
	raw, err := c.emb.Similarity(a, b)
	if err != nil {
		return 0, &domain.EmbeddingError{Text: label, Err: err}
	}
	v, err := CheckSimilarity(raw)
	if err != nil {
		return 0, &domain.EmbeddingError{Text: label, Err: err}
	}
	return v, nil
}

// Len is the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every cached vector. The backing store, if any, is untouched.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]float64)
	c.mu.Unlock()
	c.log.Debug("embedding cache cleared")
}

// Stats reports cache activity since construction.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:    c.Len(),
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		EmbedCalls: c.calls.Load(),
		StoreHits:  c.storeHits.Load(),
	}
}
