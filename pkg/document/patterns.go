package document

import (
	"strings"

	"github.com/civicledger/budgetmap/internal/matcher"
)

var ci = &matcher.Options{CaseInsensitive: true}

var (
	// "3-Year Expenditures and Positions", "THREE YR EXPENDITURES AND POSITIONS", ...
	expenditureMarker = matcher.MustNewMultiMatcher([]string{
		`\b(?:\d+|one|two|three|four|five|six|seven|eight|nine|ten)[-\s]?(?:years?|yrs?)\s+expenditures\s+and\s+positions\b`,
	}, matcher.Regex, ci)

	continuationHeader = matcher.MustNewMultiMatcher([]string{
		`^(\d{4})\s+(.+?)\s*[-–—]\s*continued\s*$`,
		`^(\d{4})\s+(.+?)\s*\(continued\)\s*$`,
	}, matcher.Regex, ci)

	departmentHeader = matcher.MustNew(matcher.Regex, `^(\d{4})\s+([A-Za-z].*)$`)
	bareOrgCode      = matcher.MustNew(matcher.Regex, `^\d{4}$`)
	startsWithCode   = matcher.MustNew(matcher.Regex, `^\d{4}\b`)
)

// IsExpenditureMarker reports whether text is an "N-year expenditures and
// positions" heading.
func IsExpenditureMarker(text string) bool {
	return expenditureMarker.Match(text)
}

// ParseContinuation extracts org code and name from a "<code> <name> -
// Continued" page header.
func ParseContinuation(text string) (code, name string, ok bool) {
	m := continuationHeader.Submatch(strings.TrimSpace(text))
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// ParseHeader extracts org code and name from a "<code> <name>" department
// header. Continuation headers are not department headers.
func ParseHeader(text string) (code, name string, ok bool) {
	text = strings.TrimSpace(text)
	if strings.Contains(strings.ToLower(text), "continued") {
		return "", "", false
	}
	m := departmentHeader.Submatch(text)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}
