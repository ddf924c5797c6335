package tokenize

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"repeated words kept", "Love, love, love!", []string{"love", "love", "love"}},
		{"apostrophes inside kept", "Don't stop me now", []string{"don't", "stop", "me", "now"}},
		{"edge quotes stripped", "'Cause I'm 'bout to go-", []string{"cause", "i'm", "bout", "to", "go"}},
		{"short tokens dropped", "I a am o", []string{"am"}},
		{"hyphenated word", "Semi-charmed kinda life", []string{"semi-charmed", "kinda", "life"}},
		{"punctuation only", "... !!! ---", nil},
		{"digits kept", "99 problems, 1 ain't", []string{"99", "problems", "ain't"}},
		{"unicode letters", "Señorita, ¿qué pasa?", []string{"señorita", "qué", "pasa"}},
		{"underscore stripped", "snake_case", []string{"snakecase"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestTokenizeInvariants(t *testing.T) {
	lines := []string{
		"We will, we will rock you!",
		"(Ooh-ooh) -- yeah' 'yeah",
		"Mamma mia, here I go again",
		"  x  y  z  ",
	}
	for _, line := range lines {
		for _, tok := range Tokenize(line) {
			assert.GreaterOrEqual(t, utf8.RuneCountInString(tok), MinTokenLength, tok)
			assert.NotEqual(t, byte('\''), tok[0], tok)
			assert.NotEqual(t, byte('-'), tok[len(tok)-1], tok)
		}
	}
}

func TestNormalizeWord(t *testing.T) {
	assert.Equal(t, "love", NormalizeWord("LOVE"))
	assert.Equal(t, "don't", NormalizeWord(" Don't! "))
	assert.Equal(t, "rock", NormalizeWord("'rock-"))
	assert.Equal(t, "", NormalizeWord("?!"))
}
