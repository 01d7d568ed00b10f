package tfidf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"Describe the board's oversight of climate-related risks and opportunities",
	"Disclose Scope 1, Scope 2 and Scope 3 greenhouse gas emissions",
	"The board oversees climate risk through its risk committee.",
}

func TestEmbed_BeforePrepare(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), "anything")
	assert.Error(t, err)
}

func TestPrepare_Errors(t *testing.T) {
	assert.Error(t, NewEmbedder().Prepare(nil))
	assert.Error(t, NewEmbedder().Prepare([]string{"the and of", "a"}))
}

func TestTerms_IncludeBigrams(t *testing.T) {
	e := NewEmbedder()
	got := e.terms("The board oversees climate risk")
	assert.Equal(t, []string{"board", "oversees", "climate", "risk", "board oversees", "oversees climate", "climate risk"}, got)

	uni := NewEmbedder(WithNGrams(1))
	assert.Equal(t, []string{"board", "oversees", "climate", "risk"}, uni.terms("The board oversees climate risk"))
}

func TestEmbed_UnitLengthAndSelfSimilarity(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	assert.Greater(t, e.Dimension(), 0)

	ctx := context.Background()
	v, err := e.Embed(ctx, corpus[0])
	require.NoError(t, err)
	assert.Len(t, v, e.Dimension())

	self, err := e.Similarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, self, 1e-9)
}

func TestEmbed_RelatedTextsScoreHigher(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	ctx := context.Background()

	req, _ := e.Embed(ctx, corpus[0])
	related, _ := e.Embed(ctx, corpus[2])
	unrelated, _ := e.Embed(ctx, corpus[1])

	sRelated, err := e.Similarity(req, related)
	require.NoError(t, err)
	sUnrelated, err := e.Similarity(req, unrelated)
	require.NoError(t, err)
	assert.Greater(t, sRelated, sUnrelated)
	assert.InDelta(t, 0.0, sUnrelated, 1e-12)
}

func TestEmbed_OutOfVocabularyIsZero(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))

	v, err := e.Embed(context.Background(), "zebra xylophone")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestWithMaxFeatures(t *testing.T) {
	e := NewEmbedder(WithMaxFeatures(3))
	require.NoError(t, e.Prepare(corpus))
	assert.Equal(t, 3, e.Dimension())
	// "scope" appears three times, more than any other term.
	_, ok := e.vocabulary["scope"]
	assert.True(t, ok)
}

func TestEmbed_Cancelled(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Embed(ctx, corpus[0])
	assert.ErrorIs(t, err, context.Canceled)
}
