package tokenizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases text and strips diacritics, so "Música" and "musica" compare equal.
func Fold(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}
	return strings.ToLower(out)
}

// IsWordRune reports whether r can appear inside a word token.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Words splits text into maximal runs of word runes. No folding is applied.
func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return !IsWordRune(r) })
}

// Tokens folds text and returns the words that are at least minLen runes long.
func Tokens(text string, minLen int) []string {
	words := Words(Fold(text))
	out := words[:0]
	for _, w := range words {
		if len([]rune(w)) >= minLen {
			out = append(out, w)
		}
	}
	return out
}

// Normalize folds text, replaces punctuation with spaces and collapses whitespace.
//
//	Normalize("  Olá, Mundo! ") == "ola mundo"
func Normalize(text string) string {
	return strings.Join(Words(Fold(text)), " ")
}
