package domain

import (
	"context"
	"iter"
)

// Embedder converts free text into a numeric vector representation and
// compares two such vectors. Implementations must be safe for concurrent use
// once prepared.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	// Similarity is symmetric and lies in [-1, 1].
	Similarity(a, b []float64) (float64, error)
}

// Fitter is implemented by embedders whose vector space depends on a
// preparation phase over the texts they will see (TF-IDF). A fitted embedder
// and any cache built on it are only valid for that corpus.
type Fitter interface {
	Prepare(corpus []string) error
}

// Extractor turns a document on disk into page-level text.
type Extractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

// Segmenter splits a document into segments. The returned sequence is lazy,
// finite and restartable.
type Segmenter interface {
	Segment(document Document) iter.Seq[Segment]
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
