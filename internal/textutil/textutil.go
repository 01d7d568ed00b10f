// Package textutil holds the tokenisation and normalisation rules shared by
// the embedders, segmenters and presenters.
package textutil

import (
	"regexp"
	"strings"
)

var (
	tokenPattern    = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
	sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	stopwords       = buildStopwords()
)

// Normalize lower-cases text and collapses all runs of whitespace to a single
// space. Two texts with the same normal form share one embedding.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// CollapseLines replaces line breaks with spaces and trims the result.
func CollapseLines(text string) string {
	r := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
	return strings.TrimSpace(r.Replace(text))
}

// IsBlank reports whether text has no visible characters.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// Tokens returns the lower-cased word tokens of text, stopwords included.
func Tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// ContentTokens returns Tokens without stopwords.
func ContentTokens(text string) []string {
	raw := Tokens(text)
	out := raw[:0]
	for _, t := range raw {
		if IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokens(text)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// IsStopword reports whether a lower-cased token is an English stopword.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// Sentences splits text into trimmed sentences. Text after the last
// terminal punctuation mark, or text without any, is kept as a final
// sentence.
func Sentences(text string) []string {
	var out []string
	end := 0
	for _, loc := range sentencePattern.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		end = loc[1]
	}
	if tail := strings.TrimSpace(text[end:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// Excerpt shortens text to at most n runes, cutting at a word boundary when
// one is close and appending an ellipsis. n <= 0 returns text unchanged.
func Excerpt(text string, n int) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if n <= 0 || len(r) <= n {
		return text
	}
	cut := n
	for i := n; i > n*3/4; i-- {
		if r[i] == ' ' {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(r[:cut])) + "…"
}

func buildStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now", "has", "have", "had", "do", "does", "did", "which", "who", "whom", "what", "how", "all", "any", "each", "other", "their", "our", "we", "they", "not", "no", "nor", "only", "more", "most", "some", "also",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
