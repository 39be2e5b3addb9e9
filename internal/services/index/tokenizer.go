package index

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minTokenLength drops tokens too short to carry meaning.
const minTokenLength = 3

// stopWords are excluded from indexing and from queries alike, so the
// two sides always agree on which terms exist.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "him": {},
	"his": {}, "how": {}, "its": {}, "may": {}, "new": {}, "now": {},
	"old": {}, "see": {}, "two": {}, "way": {}, "who": {}, "did": {},
	"get": {}, "this": {}, "that": {}, "with": {}, "from": {}, "they": {},
	"will": {}, "would": {}, "there": {}, "their": {}, "what": {},
	"about": {}, "which": {}, "when": {}, "were": {}, "been": {},
	"them": {}, "than": {}, "then": {}, "some": {}, "into": {},
	"could": {}, "other": {}, "your": {}, "more": {}, "these": {},
	"also": {}, "such": {}, "only": {}, "over": {}, "very": {},
	"does": {}, "each": {}, "where": {}, "here": {}, "just": {},
}

// Tokenize lowercases text, splits it into word-character runs and
// drops short tokens and stop words. Indexing and query processing both
// go through this function.
func Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		token := current.String()
		current.Reset()
		// Length in runes, so multi-byte tokens are measured correctly
		if utf8.RuneCountInString(token) < minTokenLength {
			return
		}
		if _, stop := stopWords[token]; stop {
			return
		}
		tokens = append(tokens, token)
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// TokenCounts returns per-token occurrence counts and the total number
// of surviving tokens.
func TokenCounts(text string) (map[string]int, int) {
	tokens := Tokenize(text)
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	return counts, len(tokens)
}
