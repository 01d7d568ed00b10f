package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	s, err := Cosine([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s, 1e-12)

	s, err = Cosine([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s, 1e-12)

	s, err = Cosine([]float64{1, 0}, []float64{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, s, 1e-12)
}

func TestCosine_Symmetric(t *testing.T) {
	a := []float64{0.3, -1.2, 4.5, 0}
	b := []float64{2, 0.1, -0.7, 9}
	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestCosine_ZeroVector(t *testing.T) {
	s, err := Cosine([]float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)
	assert.Zero(t, s)
}

func TestCosine_Errors(t *testing.T) {
	_, err := Cosine(nil, []float64{1})
	assert.Error(t, err)
	_, err = Cosine([]float64{1, 2}, []float64{1})
	assert.ErrorContains(t, err, "dimension mismatch")
}

func TestCheckSimilarity(t *testing.T) {
	tests := []struct {
		in      float64
		want    float64
		wantErr bool
	}{
		{0.42, 0.42, false},
		{1, 1, false},
		{1 + 1e-9, 1, false},
		{-1 - 1e-9, -1, false},
		{1.5, 0, true},
		{-2, 0, true},
		{math.NaN(), 0, true},
	}
	for _, tt := range tests {
		got, err := CheckSimilarity(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestMean(t *testing.T) {
	m, err := Mean([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, m)

	_, err = Mean(nil)
	assert.Error(t, err)
	_, err = Mean([][]float64{{1}, {1, 2}})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]float64{0, 0}))
	assert.Error(t, Validate(nil))
	assert.Error(t, Validate([]float64{1, math.Inf(1)}))
	assert.Error(t, Validate([]float64{math.NaN()}))
}

func TestNormalize(t *testing.T) {
	v := []float64{3, 4}
	Normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-12)
	assert.InDelta(t, 0.8, v[1], 1e-12)

	zero := []float64{0, 0}
	Normalize(zero)
	assert.Equal(t, []float64{0, 0}, zero)
}
