package search

import (
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
}

func normalize(word string) string {
	trimmed := strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	return strings.ToLower(trimmed)
}

// Tokenize converts source text into token frequencies. Words shorter than
// two characters and stopwords are dropped so the postings stay compact.
func Tokenize(text string) map[string]int {
	freqs := make(map[string]int)
	for _, w := range strings.Fields(text) {
		tok := normalize(w)
		if len(tok) < 2 || stopwords[tok] {
			continue
		}
		freqs[tok]++
	}
	return freqs
}

// QueryTokens preprocesses a query with the same normalization as Tokenize
// so query terms and stored postings line up exactly. Duplicate terms are
// collapsed; a query of only stopwords comes back empty.
func QueryTokens(query string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range strings.Fields(query) {
		tok := normalize(w)
		if len(tok) < 2 || stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}
