// Package tokenize provides the single tokenisation rule shared by the
// indexer and the query path: lower-case, split on runs of letters or
// digits, drop stop-words, and stem with a real Snowball implementation.
// Indexer and query sides must agree on this rule, or a stemmed query term
// will never match a posting list built from a different rule.
package tokenize

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Token is a single normalised term and the word-position (0-based, after
// stop-word removal) it occupied in the source text.
type Token struct {
	Term     string
	Position int
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// isWordRune accepts letters (including accented Latin letters such as
// á/é/í/ó/ú/ü/ñ) and digits, matching the indexer and query side
// identically.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Tokenize splits text into stemmed, stop-word-filtered Tokens.
func Tokenize(text string) []Token {
	lowered := strings.ToLower(text)
	words := strings.FieldsFunc(lowered, func(r rune) bool { return !isWordRune(r) })

	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if len(word) < 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		stemmed := english.Stem(word, false)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, Token{Term: stemmed, Position: pos})
		pos++
	}
	return tokens
}

// Terms returns just the stemmed terms from Tokenize, in position order,
// duplicates included. Used by query parsing, which only needs term
// identity and not positional data.
func Terms(text string) []string {
	tokens := Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}
