package resolver

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// Similarity scores two names from 0 to 100 as
// 100 * (maxLen - editDistance) / maxLen over lowercased runes.
// Equal strings score 100 and a comparison with an empty string scores 0.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	maxLen := max(la, lb)
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * float64(maxLen-dist) / float64(maxLen)
}

var (
	punctuation = strings.NewReplacer(",", " ", "(", " ", ")", " ")
	whitespace  = regexp.MustCompile(`\s+`)
	statePrefix = regexp.MustCompile(`^(?:state of california|california)\s+`)
)

// Normalize folds a name for comparison: Unicode compatibility form,
// lowercase, without commas or parentheses, with collapsed whitespace and
// without a leading "California" or "State of California".
func Normalize(name string) string {
	s := norm.NFKC.String(name)
	s = strings.ToLower(s)
	s = punctuation.Replace(s)
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	return statePrefix.ReplaceAllString(s, "")
}
