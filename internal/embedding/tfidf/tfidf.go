// Package tfidf implements a corpus-fitted TF-IDF embedder over word
// unigrams and bigrams with smoothed IDF and L2-normalised vectors.
package tfidf

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"esgalign/internal/embedding"
	"esgalign/internal/textutil"
)

// Embedder is fitted with Prepare and is then safe for concurrent Embed
// calls. Refitting changes every vector, so callers must not mix vectors
// from different fits.
type Embedder struct {
	maxN        int
	maxFeatures int

	mu         sync.RWMutex
	vocabulary map[string]int
	idf        []float64
	prepared   bool
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithNGrams sets the longest word n-gram in the vocabulary. Default 2.
func WithNGrams(n int) Option {
	return func(e *Embedder) {
		if n >= 1 {
			e.maxN = n
		}
	}
}

// WithMaxFeatures keeps only the n terms with the highest corpus frequency.
// Zero keeps all terms.
func WithMaxFeatures(n int) Option {
	return func(e *Embedder) {
		if n >= 0 {
			e.maxFeatures = n
		}
	}
}

// NewEmbedder creates an unprepared embedder.
func NewEmbedder(opts ...Option) *Embedder {
	e := &Embedder{maxN: 2}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare fits the vocabulary and IDF weights on corpus. Each element is one
// document for document-frequency purposes.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("tfidf: empty corpus")
	}
	df := make(map[string]int)
	tf := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, term := range e.terms(text) {
			tf[term]++
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return errors.New("tfidf: no terms found in corpus")
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if e.maxFeatures > 0 && len(terms) > e.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] != tf[terms[j]] {
				return tf[terms[i]] > tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:e.maxFeatures]
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	e.mu.Lock()
	e.vocabulary = vocab
	e.idf = idf
	e.prepared = true
	e.mu.Unlock()
	return nil
}

// Dimension returns the vocabulary size, or 0 before Prepare.
func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.idf)
}

// Embed returns the L2-normalised TF-IDF vector of text. Text with no
// in-vocabulary terms yields the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.prepared {
		return nil, errors.New("tfidf: embedder not prepared")
	}
	vec := make([]float64, len(e.idf))
	for _, term := range e.terms(text) {
		if idx, ok := e.vocabulary[term]; ok {
			vec[idx]++
		}
	}
	for i, count := range vec {
		if count > 0 {
			vec[i] = count * e.idf[i]
		}
	}
	embedding.Normalize(vec)
	return vec, nil
}

// Similarity is cosine similarity.
func (e *Embedder) Similarity(a, b []float64) (float64, error) {
	return embedding.Cosine(a, b)
}

// terms returns the unigrams and n-grams of text. Stopwords and single
// character tokens are dropped before n-grams are formed.
func (e *Embedder) terms(text string) []string {
	raw := textutil.ContentTokens(text)
	words := raw[:0]
	for _, w := range raw {
		if utf8.RuneCountInString(w) >= 2 {
			words = append(words, w)
		}
	}
	out := make([]string, 0, len(words)*e.maxN)
	for n := 1; n <= e.maxN; n++ {
		for i := 0; i+n <= len(words); i++ {
			out = append(out, strings.Join(words[i:i+n], " "))
		}
	}
	return out
}
