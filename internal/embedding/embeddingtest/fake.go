// Package embeddingtest provides a deterministic in-process embedder for
// tests.
package embeddingtest

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"esgalign/internal/embedding"
	"esgalign/internal/textutil"
)

// Fake hashes content tokens into a fixed number of buckets and L2
// normalises the counts. Identical token bags give identical vectors.
type Fake struct {
	Dim int

	// Delay is slept before every Embed call, honouring ctx.
	Delay time.Duration

	// Fail makes Embed return an error for the listed normalised texts.
	Fail map[string]error

	// Override, when set, replaces the similarity function.
	Override func(a, b []float64) (float64, error)

	calls atomic.Int64
	mu    sync.Mutex
	seen  []string
}

// New returns a Fake with 256 dimensions.
func New() *Fake { return &Fake{Dim: 256} }

func (f *Fake) Name() string   { return "fake" }
func (f *Fake) Dimension() int { return f.Dim }

// Calls is the number of Embed invocations so far.
func (f *Fake) Calls() int { return int(f.calls.Load()) }

// Seen returns the texts passed to Embed, in call order.
func (f *Fake) Seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

func (f *Fake) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, text)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.Fail[textutil.Normalize(text)]; ok {
		if err == nil {
			err = errors.New("fake failure")
		}
		return nil, err
	}

	vec := make([]float64, f.Dim)
	for _, tok := range textutil.ContentTokens(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[int(h.Sum32()%uint32(f.Dim))]++
	}
	embedding.Normalize(vec)
	return vec, nil
}

func (f *Fake) Similarity(a, b []float64) (float64, error) {
	if f.Override != nil {
		return f.Override(a, b)
	}
	return embedding.Cosine(a, b)
}
