// Package embedding holds the vector math shared by every embedder and the
// per-embedder vector cache used by the alignment engine.
package embedding

import (
	"errors"
	"fmt"
	"math"
)

// Tolerance is how far outside [-1, 1] a similarity may drift from rounding
// before it is treated as a backend defect rather than clamped.
const Tolerance = 1e-6

var (
	errEmptyVector = errors.New("empty vector")
	errNonFinite   = errors.New("vector contains NaN or Inf")
)

// Cosine returns the cosine similarity of a and b. Vectors of different
// length are an error. A zero-magnitude vector has similarity 0 with
// everything.
func Cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, errEmptyVector
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// CheckSimilarity validates a similarity value. Values within Tolerance of
// the closed range [-1, 1] are clamped into it; NaN and anything further out
// is an error.
func CheckSimilarity(v float64) (float64, error) {
	switch {
	case math.IsNaN(v):
		return 0, errors.New("similarity is NaN")
	case v > 1+Tolerance || v < -1-Tolerance:
		return 0, fmt.Errorf("similarity %g outside [-1, 1]", v)
	case v > 1:
		return 1, nil
	case v < -1:
		return -1, nil
	}
	return v, nil
}

// Mean returns the element-wise mean of vectors, which must all share one
// dimension.
func Mean(vectors [][]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, errors.New("mean of zero vectors")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, errEmptyVector
	}
	out := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("dimension mismatch: %d vs %d", len(v), dim)
		}
		for i, x := range v {
			out[i] += x
		}
	}
	n := float64(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out, nil
}

// Validate rejects empty vectors and vectors holding NaN or Inf.
func Validate(v []float64) error {
	if len(v) == 0 {
		return errEmptyVector
	}
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return errNonFinite
		}
	}
	return nil
}

// Normalize scales v to unit length in place. Zero vectors are left as is.
func Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
}
