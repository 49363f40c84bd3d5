// Package lexical implements the forward-tokenized multi-field
// inverted index used for lexical retrieval: tokenize, strip
// diacritics, index per field, and serve prefix queries plus the
// "#tag term" tag-filter syntax. Hits are not scored (no BM25 term
// weighting); each field's list is ordered by match order.
package lexical

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Tokenize lowercases text, strips diacritics, splits on non-alphanumeric
// boundaries, and keeps tokens of length >= 1.
func Tokenize(text string) []string {
	stripped, _, err := transform.String(diacriticStripper, text)
	if err != nil {
		stripped = text
	}
	matches := tokenRegex.FindAllString(strings.ToLower(stripped), -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) >= 1 {
			tokens = append(tokens, m)
		}
	}
	return tokens
}
