// Package nlp turns free text into comparable terms and weights them.
//
// The pipeline is: split into letter/digit runs -> lowercase -> drop stopwords ->
// Snowball English stem -> drop stems that are stopwords or shorter than three
// runes. Keyword extraction and query classification both consume its output, so a
// document keyword and a query word only match when they normalize to the same stem.
//
// All functions are pure and safe for concurrent use.
package nlp

import (
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
)

const minTokenRunes = 3 // tokens of two runes or fewer carry no signal

// Words yields the maximal runs of letters and digits in text, lowercased, in order.
func Words(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i, r := range text {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !yield(strings.ToLower(text[start:i])) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			yield(strings.ToLower(text[start:]))
		}
	}
}

// Stem reduces a lowercase word to its Snowball English stem.
// Words the stemmer rejects are returned unchanged.
func Stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// Normalize yields the normalized tokens of text in their original order.
// The sequence is lazy and can be ranged over any number of times.
func Normalize(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for word := range Words(text) {
			if IsStopword(word) {
				continue
			}
			stem := Stem(word)
			if utf8.RuneCountInString(stem) < minTokenRunes || IsStopword(stem) {
				continue
			}
			if !yield(stem) {
				return
			}
		}
	}
}

// Tokens collects Normalize(text) into a slice.
func Tokens(text string) []string {
	return slices.Collect(Normalize(text))
}
