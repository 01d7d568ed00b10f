package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("score: %w", &SelectionError{Unknown: []string{"XYZ"}})

	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.NotErrorIs(t, err, ErrEmptyDocument)
	assert.Contains(t, err.Error(), "XYZ")

	var sel *SelectionError
	require.True(t, errors.As(err, &sel))
	assert.Equal(t, []string{"XYZ"}, sel.Unknown)
}

func TestSelectionError_Empty(t *testing.T) {
	err := &SelectionError{}
	assert.Contains(t, err.Error(), "no frameworks selected")
}

func TestEmbeddingError_UnwrapsCause(t *testing.T) {
	cause := errors.New("backend unavailable")
	err := &EmbeddingError{Text: "Board oversight", Err: cause}

	assert.ErrorIs(t, err, ErrEmbeddingFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Board oversight")
}

func TestEmbeddingError_AbbreviatesLongText(t *testing.T) {
	long := make([]rune, 200)
	for i := range long {
		long[i] = 'a'
	}
	err := &EmbeddingError{Text: string(long), Err: errors.New("x")}
	assert.Less(t, len(err.Error()), 150)
}

func TestCorpusError(t *testing.T) {
	err := &CorpusError{Framework: "TCFD", Topic: "Governance", Reason: "no requirement statements"}

	assert.ErrorIs(t, err, ErrCorpusIntegrity)
	assert.Equal(t, "corpus integrity error: TCFD/Governance: no requirement statements", err.Error())

	noTopic := &CorpusError{Framework: "TCFD", Reason: "no topics"}
	assert.Equal(t, "corpus integrity error: TCFD: no topics", noTopic.Error())
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Band
	}{
		{0.9, BandStrong},
		{0.5, BandStrong},
		{0.49, BandGood},
		{0.35, BandGood},
		{0.3, BandPartial},
		{0.2, BandWeak},
		{0.15, BandWeak},
		{0.1, BandMinimal},
		{-0.4, BandMinimal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.score), "score %v", tt.score)
	}
	assert.Contains(t, BandStrong.Explanation(), "Strong alignment")
	assert.Contains(t, BandMinimal.Explanation(), "Minimal alignment")
}

func TestMatrixNeighbours(t *testing.T) {
	m := &Matrix{
		Codes: []string{"A", "B", "C", "D"},
		Values: [][]float64{
			{1, 0.2, 0.7, 0.2},
			{0.2, 1, 0.1, 0.3},
			{0.7, 0.1, 1, 0.4},
			{0.2, 0.3, 0.4, 1},
		},
	}

	got := m.Neighbours("A")
	require.Len(t, got, 3)
	assert.Equal(t, Neighbour{Code: "C", Similarity: 0.7}, got[0])
	// Equal similarities keep matrix order.
	assert.Equal(t, "B", got[1].Code)
	assert.Equal(t, "D", got[2].Code)

	assert.Nil(t, m.Neighbours("missing"))
	assert.Equal(t, 2, m.Index("C"))
}

func TestReportFramework(t *testing.T) {
	r := &Report{Frameworks: []FrameworkScore{{Code: "TCFD"}, {Code: "TNFD"}}}

	f, ok := r.Framework("TNFD")
	require.True(t, ok)
	assert.Equal(t, "TNFD", f.Code)

	_, ok = r.Framework("ESRS")
	assert.False(t, ok)
}

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{
		"":            CategoryAll,
		"all_metrics": CategoryAll,
		"All":         CategoryAll,
		"Governance":  CategoryGovernance,
		" risk ":      CategoryRisk,
	} {
		got, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCategory("water")
	assert.ErrorContains(t, err, "unknown topic category")
}

func TestCategoryMatches(t *testing.T) {
	risk := Topic{ID: "RiskManagement", Name: "Risk Management"}
	orsa := Topic{ID: "ORSA", Name: "Own Risk and Solvency Assessment"}
	metrics := Topic{ID: "MetricsandTargets", Name: "Metrics and Targets"}
	gov := Topic{ID: "Governance", Name: "Governance"}

	assert.True(t, CategoryRisk.Matches(risk))
	assert.True(t, CategoryRisk.Matches(orsa))
	assert.False(t, CategoryRisk.Matches(gov))
	assert.True(t, CategoryMetrics.Matches(metrics))
	assert.False(t, CategoryMetrics.Matches(risk))
	assert.True(t, CategoryAll.Matches(gov))
	assert.True(t, Category("").Matches(gov))
}
