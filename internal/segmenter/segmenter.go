// Package segmenter splits extracted documents into the segments scored by
// the alignment engine.
package segmenter

import (
	"fmt"
	"iter"
	"strings"

	"esgalign/internal/domain"
	"esgalign/internal/textutil"
)

// Page yields one segment per page with line breaks collapsed to spaces.
// Blank pages are yielded too, so segment indexes always equal page
// indexes; the engine skips them.
type Page struct{}

// NewPage returns a page segmenter.
func NewPage() *Page { return &Page{} }

func (Page) Segment(doc domain.Document) iter.Seq[domain.Segment] {
	return func(yield func(domain.Segment) bool) {
		for i, p := range doc.Pages {
			if !yield(domain.Segment{Index: i, Page: i + 1, Text: textutil.CollapseLines(p)}) {
				return
			}
		}
	}
}

// Sentence yields windows of consecutive sentences, overlapping by a fixed
// number of sentences. Windows never span a page break.
type Sentence struct {
	sentencesPerSegment int
	overlapSentences    int
}

// NewSentence returns a sentence-window segmenter. Non-positive sizes fall
// back to 5 sentences, and the overlap is capped below the window size.
func NewSentence(sentencesPerSegment, overlapSentences int) *Sentence {
	if sentencesPerSegment <= 0 {
		sentencesPerSegment = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerSegment {
		overlapSentences = sentencesPerSegment - 1
	}
	return &Sentence{sentencesPerSegment: sentencesPerSegment, overlapSentences: overlapSentences}
}

func (s *Sentence) Segment(doc domain.Document) iter.Seq[domain.Segment] {
	return func(yield func(domain.Segment) bool) {
		idx := 0
		for pi, p := range doc.Pages {
			sentences := textutil.Sentences(textutil.CollapseLines(p))
			for start := 0; start < len(sentences); {
				end := min(start+s.sentencesPerSegment, len(sentences))
				seg := domain.Segment{Index: idx, Page: pi + 1, Text: strings.Join(sentences[start:end], " ")}
				if !yield(seg) {
					return
				}
				idx++
				if end == len(sentences) {
					break
				}
				start = end - s.overlapSentences
			}
		}
	}
}

// New builds the segmenter named by kind: "page" or "sentence".
func New(kind string, sentencesPerSegment, overlapSentences int) (domain.Segmenter, error) {
	switch kind {
	case "", "page":
		return NewPage(), nil
	case "sentence":
		return NewSentence(sentencesPerSegment, overlapSentences), nil
	}
	return nil, fmt.Errorf("segmenter: unknown type %q", kind)
}
