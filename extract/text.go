package extract

import (
	"sort"
	"strings"
	"unicode"
)

// Stop words filtered out of keyword term sets. Superset of common English
// function words plus boilerplate frequent in startup pitches and
// procurement prose.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "we": true, "our": true, "us": true, "or": true,
	"its": true, "will": true, "can": true, "into": true, "their": true,
	"they": true, "using": true, "via": true, "per": true, "all": true,
	"any": true, "shall": true, "must": true, "may": true,
}

// Normalize lowercases text, strips punctuation, and collapses whitespace.
// Hyphens inside tokens survive so compound category names like
// "earth-observation" stay intact. Returns "" for whitespace-only input.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Terms splits normalized text into a sorted, de-duplicated keyword set with
// stop words removed. Input must already be normalized.
func Terms(normalized string) []string {
	seen := make(map[string]bool)
	for _, word := range strings.Fields(normalized) {
		word = strings.Trim(word, "-")
		if word == "" || stopWords[word] {
			continue
		}
		seen[word] = true
	}

	terms := make([]string, 0, len(seen))
	for word := range seen {
		terms = append(terms, word)
	}
	sort.Strings(terms)
	return terms
}

// ContainsTerm reports whether the sorted term set contains the term.
func ContainsTerm(terms []string, term string) bool {
	i := sort.SearchStrings(terms, term)
	return i < len(terms) && terms[i] == term
}
