package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Alignment errors. Every failure of a run wraps exactly one of these; none
// of them is recoverable within the run that produced it.
var (
	// ErrInvalidSelection indicates a requested framework code is not in the
	// corpus, or no framework was requested.
	ErrInvalidSelection = errors.New("invalid framework selection")

	// ErrEmptyDocument indicates the document has no non-blank segment.
	ErrEmptyDocument = errors.New("empty document")

	// ErrEmbeddingFailure indicates the embedder could not produce a usable
	// vector or similarity for some text.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrCorpusIntegrity indicates a framework without topics or a topic
	// without requirement statements.
	ErrCorpusIntegrity = errors.New("corpus integrity error")

	// ErrUnsupportedDocument indicates no extractor handles the file type.
	ErrUnsupportedDocument = errors.New("unsupported document type")
)

// SelectionError lists the framework codes that could not be resolved.
type SelectionError struct {
	Unknown []string
}

func (e *SelectionError) Error() string {
	if len(e.Unknown) == 0 {
		return ErrInvalidSelection.Error() + ": no frameworks selected"
	}
	return fmt.Sprintf("%s: unknown framework code(s) %s", ErrInvalidSelection, strings.Join(e.Unknown, ", "))
}

func (e *SelectionError) Is(target error) bool { return target == ErrInvalidSelection }

// EmbeddingError carries the text that could not be embedded or compared.
type EmbeddingError struct {
	Text string
	Err  error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("%s for %q: %v", ErrEmbeddingFailure, abbreviate(e.Text, 80), e.Err)
}

func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbeddingFailure }

func (e *EmbeddingError) Unwrap() error { return e.Err }

// CorpusError locates a corpus integrity violation.
type CorpusError struct {
	Framework string
	Topic     string
	Reason    string
}

func (e *CorpusError) Error() string {
	loc := e.Framework
	if e.Topic != "" {
		loc += "/" + e.Topic
	}
	return fmt.Sprintf("%s: %s: %s", ErrCorpusIntegrity, loc, e.Reason)
}

func (e *CorpusError) Is(target error) bool { return target == ErrCorpusIntegrity }

func abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
