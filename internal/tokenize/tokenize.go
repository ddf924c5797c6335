// Package tokenize turns lyric lines into the word tokens the word index is
// keyed by.
package tokenize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTokenLength is the shortest token, in characters, that is kept.
const MinTokenLength = 2

const edgeChars = "'-"

// Tokenize lowercases text, strips everything except letters, digits,
// whitespace, apostrophes and hyphens, splits on whitespace and trims
// apostrophes and hyphens from both ends of every token. Tokens shorter than
// MinTokenLength are dropped. Order and duplicates are preserved.
func Tokenize(text string) []string {
	var tokens []string
	for _, field := range strings.Fields(clean(text)) {
		word := strings.Trim(field, edgeChars)
		if utf8.RuneCountInString(word) < MinTokenLength {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// NormalizeWord applies the same normalization as Tokenize to a single query
// word. Inner whitespace is removed, so "Don't  " and "DON'T" both map to
// "don't". The result may be shorter than MinTokenLength; callers decide
// what to do with it.
func NormalizeWord(word string) string {
	cleaned := clean(word)
	cleaned = strings.Join(strings.Fields(cleaned), "")
	return strings.Trim(cleaned, edgeChars)
}

func clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		case r == '\'' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
