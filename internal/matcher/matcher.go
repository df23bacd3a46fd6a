// Package matcher compiles the glob and regex patterns used for document
// markers, section headers and processed-file filters.
package matcher

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// PatternType selects how a pattern is interpreted.
type PatternType int

const (
	// Glob uses shell-style patterns (*, ?, []).
	Glob PatternType = iota
	// Regex uses RE2 regular expressions.
	Regex
	// Auto picks Regex when the pattern contains regex syntax, else Glob.
	Auto
)

var patternTypeNames = [...]string{"glob", "regex", "auto"}

func (pt PatternType) String() string {
	if pt < 0 || int(pt) >= len(patternTypeNames) {
		return "unknown"
	}
	return patternTypeNames[pt]
}

// Matcher matches input against one compiled pattern.
type Matcher interface {
	Match(input string) bool
	// Submatch returns the capture groups of the first match with the whole
	// match at index 0, or nil. A glob has no groups and returns the input.
	Submatch(input string) []string
	Pattern() string
	Type() PatternType
}

// Options adjusts compilation.
type Options struct {
	CaseInsensitive bool
	// Anchored wraps a regex in ^...$ unless already anchored.
	Anchored bool
}

// New compiles pattern. Only the first opts value is used.
func New(patternType PatternType, pattern string, opts ...*Options) (Matcher, error) {
	var o Options
	if len(opts) > 0 && opts[0] != nil {
		o = *opts[0]
	}
	if patternType == Auto {
		patternType = Detect(pattern)
	}

	var (
		m   Matcher
		err error
	)
	switch patternType {
	case Glob:
		m, err = newGlob(pattern, o)
	case Regex:
		m, err = newRegex(pattern, o)
	default:
		err = fmt.Errorf("unsupported pattern type %d", patternType)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MustNew is New for package-level patterns.
func MustNew(patternType PatternType, pattern string, opts ...*Options) Matcher {
	m, err := New(patternType, pattern, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

type globMatcher struct {
	pattern string
	folded  string
	fold    bool
}

func newGlob(pattern string, o Options) (*globMatcher, error) {
	g := &globMatcher{pattern: pattern, folded: pattern, fold: o.CaseInsensitive}
	if g.fold {
		g.folded = strings.ToLower(pattern)
	}
	if _, err := filepath.Match(g.folded, ""); err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	return g, nil
}

func (g *globMatcher) Match(input string) bool {
	if g.fold {
		input = strings.ToLower(input)
	}
	ok, _ := filepath.Match(g.folded, input)
	return ok
}

func (g *globMatcher) Submatch(input string) []string {
	if !g.Match(input) {
		return nil
	}
	return []string{input}
}

func (g *globMatcher) Pattern() string   { return g.pattern }
func (g *globMatcher) Type() PatternType { return Glob }

type regexMatcher struct {
	pattern string
	re      *regexp.Regexp
}

func newRegex(pattern string, o Options) (*regexMatcher, error) {
	expr := pattern
	if o.Anchored {
		if !strings.HasPrefix(expr, "^") {
			expr = "^" + expr
		}
		if !strings.HasSuffix(expr, "$") {
			expr += "$"
		}
	}
	if o.CaseInsensitive && !strings.HasPrefix(expr, "(?i)") {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return &regexMatcher{pattern: pattern, re: re}, nil
}

func (r *regexMatcher) Match(input string) bool        { return r.re.MatchString(input) }
func (r *regexMatcher) Submatch(input string) []string { return r.re.FindStringSubmatch(input) }
func (r *regexMatcher) Pattern() string                { return r.pattern }
func (r *regexMatcher) Type() PatternType              { return Regex }

// regexSyntax are fragments that never appear in a plain file glob.
var regexSyntax = []string{`^`, `$`, `\d`, `\w`, `\s`, `\b`, `\.`, `(`, `)`, `{`, `}`, `+`, `|`}

// Detect guesses the type of a user supplied pattern.
func Detect(pattern string) PatternType {
	for _, s := range regexSyntax {
		if strings.Contains(pattern, s) {
			return Regex
		}
	}
	return Glob
}

// MultiMatcher holds alternative patterns tried in order.
type MultiMatcher []Matcher

// NewMultiMatcher compiles every pattern with the same type and options.
func NewMultiMatcher(patterns []string, patternType PatternType, opts ...*Options) (MultiMatcher, error) {
	mm := make(MultiMatcher, 0, len(patterns))
	for _, p := range patterns {
		m, err := New(patternType, p, opts...)
		if err != nil {
			return nil, err
		}
		mm = append(mm, m)
	}
	return mm, nil
}

// MustNewMultiMatcher is NewMultiMatcher for package-level patterns.
func MustNewMultiMatcher(patterns []string, patternType PatternType, opts ...*Options) MultiMatcher {
	mm, err := NewMultiMatcher(patterns, patternType, opts...)
	if err != nil {
		panic(err)
	}
	return mm
}

// Match reports whether any pattern matches.
func (mm MultiMatcher) Match(input string) bool {
	return mm.Submatch(input) != nil
}

// Submatch returns the groups of the first matching pattern.
func (mm MultiMatcher) Submatch(input string) []string {
	for _, m := range mm {
		if groups := m.Submatch(input); groups != nil {
			return groups
		}
	}
	return nil
}

// Len returns the number of patterns.
func (mm MultiMatcher) Len() int { return len(mm) }

// FilterStrings returns the items matching pattern, in input order.
func FilterStrings(patternType PatternType, pattern string, items ...string) ([]string, error) {
	m, err := New(patternType, pattern)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, item := range items {
		if m.Match(item) {
			out = append(out, item)
		}
	}
	return out, nil
}
