package analyzer

import (
	"strings"
	"unicode"

	"github.com/arbovm/levenshtein"
)

// DefaultCliches are the insults the persona prompt forbids, plus the line
// from its format example that replies tend to parrot.
func DefaultCliches() []string {
	return []string{
		"pack up and go home",
		"designed by a toddler",
		"made by a 5-year-old",
	}
}

// DetectCliches returns the phrases that appear in text, allowing up to
// tolerance*len(phrase) character edits so near misses are caught.
func DetectCliches(text string, phrases []string, tolerance float64) []string {
	words := tokenize(text)
	if len(words) == 0 {
		return nil
	}

	var hits []string
	for _, phrase := range phrases {
		target := tokenize(phrase)
		if len(target) == 0 || len(target) > len(words) {
			continue
		}
		joined := strings.Join(target, " ")
		maxDist := int(tolerance * float64(len(joined)))

		for i := 0; i+len(target) <= len(words); i++ {
			window := strings.Join(words[i:i+len(target)], " ")
			if levenshtein.Distance(window, joined) <= maxDist {
				hits = append(hits, phrase)
				break
			}
		}
	}
	return hits
}

// tokenize lowercases text and splits it into words, keeping inner hyphens
// and digits so "5-year-old" stays one token.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})
}
