package segmenter

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgalign/internal/domain"
)

func TestPage(t *testing.T) {
	doc := domain.Document{Pages: []string{"Board oversight\nof climate risk.", "  ", "Scope 3\r\nemissions."}}

	got := slices.Collect(NewPage().Segment(doc))
	require.Len(t, got, 3)
	assert.Equal(t, domain.Segment{Index: 0, Page: 1, Text: "Board oversight of climate risk."}, got[0])
	assert.Equal(t, "", got[1].Text)
	assert.Equal(t, domain.Segment{Index: 2, Page: 3, Text: "Scope 3 emissions."}, got[2])
}

func TestPage_Restartable(t *testing.T) {
	seq := NewPage().Segment(domain.Document{Pages: []string{"a.", "b."}})
	assert.Equal(t, slices.Collect(seq), slices.Collect(seq))
}

func TestPage_StopsEarly(t *testing.T) {
	seq := NewPage().Segment(domain.Document{Pages: []string{"a.", "b.", "c."}})
	var n int
	for range seq {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestSentence_WindowsWithOverlap(t *testing.T) {
	doc := domain.Document{Pages: []string{"One. Two. Three. Four. Five.", "Six. Seven."}}

	got := slices.Collect(NewSentence(2, 1).Segment(doc))
	texts := make([]string, len(got))
	for i, s := range got {
		texts[i] = s.Text
		assert.Equal(t, i, s.Index)
	}
	assert.Equal(t, []string{"One. Two.", "Two. Three.", "Three. Four.", "Four. Five.", "Six. Seven."}, texts)
	assert.Equal(t, 1, got[3].Page)
	assert.Equal(t, 2, got[4].Page)
}

func TestSentence_Defaults(t *testing.T) {
	s := NewSentence(0, -3)
	assert.Equal(t, 5, s.sentencesPerSegment)
	assert.Equal(t, 0, s.overlapSentences)

	capped := NewSentence(3, 7)
	assert.Equal(t, 2, capped.overlapSentences)
}

func TestSentence_NoPunctuation(t *testing.T) {
	got := slices.Collect(NewSentence(3, 0).Segment(domain.Document{Pages: []string{"a page without full stops", ""}}))
	require.Len(t, got, 1)
	assert.Equal(t, "a page without full stops", got[0].Text)
}

func TestSentence_KeepsTextAfterLastPunctuation(t *testing.T) {
	doc := domain.Document{Pages: []string{"We report emissions. Scope 1 emissions 200t\nScope 3 targets approved by SBTi"}}

	got := slices.Collect(NewSentence(5, 0).Segment(doc))
	require.Len(t, got, 1)
	assert.Equal(t, "We report emissions. Scope 1 emissions 200t Scope 3 targets approved by SBTi", got[0].Text)

	windows := slices.Collect(NewSentence(1, 0).Segment(doc))
	require.Len(t, windows, 2)
	assert.Equal(t, "Scope 1 emissions 200t Scope 3 targets approved by SBTi", windows[1].Text)
}

func TestNew(t *testing.T) {
	s, err := New("page", 0, 0)
	require.NoError(t, err)
	assert.IsType(t, &Page{}, s)

	s, err = New("sentence", 4, 1)
	require.NoError(t, err)
	assert.IsType(t, &Sentence{}, s)

	_, err = New("paragraph", 0, 0)
	assert.Error(t, err)
}
