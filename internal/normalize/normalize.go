// Package normalize canonicalizes free-form user text for keyword matching.
//
// Raw user text is always stored and forwarded verbatim; normalization
// exists only so intent matching is diacritic-, case- and
// punctuation-insensitive.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// punctuation is the set stripped after case folding.
const punctuation = ".,;:!?"

// Text folds txt for keyword matching: Unicode NFD decomposition,
// removal of combining marks, lowercasing, punctuation stripping and
// whitespace trimming, in that order. The result is stable under
// re-application.
func Text(txt string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), txt)
	if err != nil {
		// Malformed input is folded as-is rather than rejected.
		stripped = txt
	}
	lowered := strings.ToLower(stripped)
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, lowered)
	return strings.TrimSpace(cleaned)
}
